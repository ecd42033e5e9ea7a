package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/user"
)

func TestTask_CloneIsDeep(t *testing.T) {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	orig := &Task{
		ID:       "t1",
		Title:    "original",
		Assignee: &user.User{ID: "u1", Name: "Anna"},
		DueDate:  &due,
	}

	clone := orig.Clone()
	clone.Title = "changed"
	clone.Assignee.Name = "Bela"
	*clone.DueDate = due.AddDate(0, 1, 0)

	assert.Equal(t, "original", orig.Title)
	assert.Equal(t, "Anna", orig.Assignee.Name)
	assert.True(t, due.Equal(*orig.DueDate))
}

func TestEnums_Valid(t *testing.T) {
	assert.True(t, StatusInProgress.Valid())
	assert.False(t, Status("DONE").Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("URGENT").Valid())
	assert.True(t, NetworkASZI.Valid())
	assert.False(t, NetworkType("VPN").Valid())
}

func TestPatch_Validate(t *testing.T) {
	empty := ""
	err := (&Patch{Title: &empty}).Validate()
	require.Error(t, err)

	bad := Status("NOPE")
	err = (&Patch{Status: &bad}).Validate()
	require.Error(t, err)

	good := StatusReview
	require.NoError(t, (&Patch{Status: &good}).Validate())
}

func TestPatch_FieldCount(t *testing.T) {
	assert.Equal(t, 0, (&Patch{}).FieldCount())

	s := StatusReview
	p := PriorityHigh
	assert.Equal(t, 1, (&Patch{Status: &s}).FieldCount())
	assert.Equal(t, 2, (&Patch{Status: &s, Priority: &p}).FieldCount())
}
