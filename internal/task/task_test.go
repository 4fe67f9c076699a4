package task

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iris/internal/storage"
)

func TestNew(t *testing.T) {
	t.Parallel()

	task := New("send_email", map[string]string{"to": "friend@example.com"}, "assistant", "user@example.com", "session-abc")
	assert.True(t, strings.HasPrefix(task.ID, "task-"))
	assert.NotEmpty(t, task.CreatedAt)
	require.NoError(t, task.Validate())

	bare := New("send_email", nil, "assistant", "user@example.com", "")
	assert.NotNil(t, bare.Params, "nil params normalize to an empty map")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := New("send_email", nil, "assistant", "user@example.com", "")
	assert.NoError(t, valid.Validate())

	noAction := valid
	noAction.Action = " "
	assert.Error(t, noAction.Validate())

	noSender := valid
	noSender.OriginalSender = ""
	assert.Error(t, noSender.Validate())

	noID := valid
	noID.ID = ""
	assert.Error(t, noID.Validate())
}

func TestOutbox_Write(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "inputs")
	outbox := NewOutbox(dir, nil)

	task := New("send_email", map[string]string{"subject": "hi"}, "assistant", "user@example.com", "")
	path, err := outbox.Write(task)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "task_"+task.ID+".json"), path)

	var loaded AgentTask
	require.True(t, storage.LoadJSON(path, &loaded, nil))
	assert.Equal(t, task.ID, loaded.ID)
	assert.Equal(t, "hi", loaded.Params["subject"])

	// No temp files may survive in the poller's directory.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))
}

func TestOutbox_RejectsInvalidTask(t *testing.T) {
	t.Parallel()

	outbox := NewOutbox(t.TempDir(), nil)
	bad := New("", nil, "assistant", "user@example.com", "")
	_, err := outbox.Write(bad)
	assert.Error(t, err)
}
