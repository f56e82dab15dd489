package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  []string
		expectErr bool
	}{
		{name: "Single", raw: "A", expected: []string{"A"}},
		{name: "Several", raw: "A,B,C", expected: []string{"A", "B", "C"}},
		{name: "Spaces trimmed", raw: " A , B ", expected: []string{"A", "B"}},
		{name: "Inner spaces collapsed", raw: "North   Line,South Line", expected: []string{"North Line", "South Line"}},
		{name: "Duplicates dropped", raw: "B,A,B", expected: []string{"B", "A"}},
		{name: "Empty entries skipped", raw: ",A,,B,", expected: []string{"A", "B"}},
		{name: "Case kept", raw: "a,A", expected: []string{"a", "A"}},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Only separators", raw: " , ,", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			routes, err := Routes(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrNoRoutes)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, routes)
			}
		})
	}
}

func TestRouteList_RejectsComma(t *testing.T) {
	_, err := RouteList([]string{"A,B"})
	assert.Error(t, err)
}

func TestDestination(t *testing.T) {
	d, err := Destination("  North  Line ")
	assert.NoError(t, err)
	assert.Equal(t, "North Line", d)

	_, err = Destination("   ")
	assert.Error(t, err)

	_, err = Destination("A,B")
	assert.Error(t, err)
}
