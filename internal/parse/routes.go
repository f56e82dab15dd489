package parse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRoutes is returned when a route list holds no usable label.
var ErrNoRoutes = errors.New("no routes given")

// Routes splits a comma separated route list into trimmed, de-duplicated labels.
// The first occurrence of a label decides its position.
func Routes(raw string) ([]string, error) {
	return RouteList(strings.Split(raw, ","))
}

// RouteList normalises labels that already arrive as a list.
func RouteList(labels []string) ([]string, error) {
	seen := make(map[string]struct{}, len(labels))
	var routes []string
	for _, l := range labels {
		label := strings.Join(strings.Fields(l), " ")
		if label == "" {
			continue
		}
		if strings.Contains(label, ",") {
			return nil, fmt.Errorf("route label %q must not contain a comma", label)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		routes = append(routes, label)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	return routes, nil
}

// Destination normalises a single route label the same way Routes does.
func Destination(raw string) (string, error) {
	label := strings.Join(strings.Fields(raw), " ")
	if label == "" {
		return "", errors.New("destination is empty")
	}
	if strings.Contains(label, ",") {
		return "", fmt.Errorf("destination %q must not contain a comma", label)
	}
	return label, nil
}
