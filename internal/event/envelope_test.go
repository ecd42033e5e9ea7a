package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhub/tasksync/internal/task"
)

func TestEnvelope_EncodeDecode(t *testing.T) {
	env := NewTaskCreated(&task.Task{ID: "t1", TaskNumber: 4, Title: "hello"})

	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeTaskCreated, decoded.Type)
	assert.Equal(t, "t1", decoded.TaskID)
	require.NotNil(t, decoded.Task)
	assert.Equal(t, "hello", decoded.Task.Title)
}

func TestDecode_RejectsMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"taskId":"t1"}`))
	require.Error(t, err)

	_, err = Decode([]byte(`garbage`))
	require.Error(t, err)
}

func TestDecode_KeepsUnknownTypes(t *testing.T) {
	// Unknown types decode fine; dropping them is the consumer's decision.
	decoded, err := Decode([]byte(`{"type":"task_teleported","taskId":"t1"}`))
	require.NoError(t, err)
	assert.Equal(t, Type("task_teleported"), decoded.Type)
}

func TestEnvelope_IsControl(t *testing.T) {
	assert.True(t, NewPing().IsControl())
	assert.True(t, NewConnected().IsControl())
	assert.False(t, NewTaskDeleted("t1").IsControl())
}

func TestNewTasksCount(t *testing.T) {
	env := NewTasksCount(2)
	assert.Equal(t, TypeTaskCreated, env.Type)
	assert.Nil(t, env.Task)
	require.NotNil(t, env.NewTasksCount)
	assert.Equal(t, 2, *env.NewTasksCount)
}

func TestNewTaskAssigned(t *testing.T) {
	env := NewTaskAssigned(&task.Task{ID: "t1"}, "u7")
	assert.Equal(t, TypeTaskAssigned, env.Type)
	assert.Equal(t, "u7", env.UserID)
}
