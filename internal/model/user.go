package model

import "fmt"

// Role is the kind of actor a user account represents.
type Role string

const (
	RoleTrainOperator Role = "Train Operator"
	RoleParcelOwner   Role = "Parcel Owner"
	RolePostMaster    Role = "Post Master"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTrainOperator, RoleParcelOwner, RolePostMaster:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is an account that can sign in and act in one role.
type User struct {
	Base
	Username     string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"size:32;not null" json:"role"`
}
