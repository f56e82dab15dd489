package logger

import (
	"time"

	"go.uber.org/zap"
)

// Time logs how long op took once the returned func runs; pass it the address
// of the caller's named error so failures are logged with their cause.
//
//	defer logger.Time("assign", zap.String("train_id", id))(&err)
func Time(op string, fields ...zap.Field) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		all := append(fields, zap.String("op", op), zap.Duration("dur", time.Since(start)))
		if errp != nil && *errp != nil {
			Get().Warn("operation failed", append(all, zap.Error(*errp))...)
			return
		}
		Get().Debug("operation finished", all...)
	}
}
