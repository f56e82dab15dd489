package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrain_Routes(t *testing.T) {
	train := NewTrain("op", 1, 1, 10, 10, []string{"A", "B"})

	assert.Equal(t, []string{"A", "B"}, train.Routes())
	assert.True(t, train.ServesRoute("B"))
	assert.False(t, train.ServesRoute("C"))
	assert.False(t, train.ServesRoute(""))
	assert.Equal(t, TrainAvailable, train.Status)
	assert.True(t, train.IsActive)

	empty := &Train{}
	assert.Nil(t, empty.Routes())
	assert.False(t, empty.ServesRoute("A"))
}

func TestTrain_Fits(t *testing.T) {
	train := &Train{MaxWeight: 100, MaxVolume: 50, CurrentWeight: 90, CurrentVolume: 20}

	assert.True(t, train.Fits(10, 30), "exactly full on both axes is allowed")
	assert.False(t, train.Fits(10.5, 1))
	assert.False(t, train.Fits(1, 31))
	assert.True(t, train.Fits(0, 0))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Post Master")
	assert.NoError(t, err)
	assert.Equal(t, RolePostMaster, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestParcel_Assigned(t *testing.T) {
	p := NewParcel("owner", 1, 2, "A")
	assert.False(t, p.Assigned())
	assert.True(t, p.IsActive)

	empty := ""
	p.TrainID = &empty
	assert.False(t, p.Assigned())

	id := "train-1"
	p.TrainID = &id
	assert.True(t, p.Assigned())
}
