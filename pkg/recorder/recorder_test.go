package recorder_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence/file"
	"github.com/calder/automa/pkg/recorder"
)

func newRecorder(t *testing.T) (*recorder.Recorder, *file.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pers := file.NewPersistence(t.TempDir())

	return recorder.NewRecorder(pers.ExecutionRepository(), logger), pers
}

func TestBeginRecordFinish(t *testing.T) {
	rec, pers := newRecorder(t)
	ctx := context.Background()

	record, err := rec.Begin(ctx, "flow-1", map[string]any{"source": "manual"})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.ExecutionStatusRunning, record.Status)
	assert.Nil(t, record.FinishedAt)

	err = rec.Record(ctx, record.ID, models.OperationResult{
		NodeID: "a",
		Status: models.OperationStatusSuccess,
		Output: "done",
	})
	require.NoError(t, err)

	err = rec.Finish(ctx, record.ID, models.ExecutionStatusCompleted)
	require.NoError(t, err)

	stored, err := pers.ExecutionRepository().GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	require.NotNil(t, stored.FinishedAt)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, "a", stored.Results[0].NodeID)
}

func TestFinishTwiceReturnsAlreadyFinalized(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	record, err := rec.Begin(ctx, "flow-1", nil)
	require.NoError(t, err)

	require.NoError(t, rec.Finish(ctx, record.ID, models.ExecutionStatusCompleted))

	err = rec.Finish(ctx, record.ID, models.ExecutionStatusFailed)
	require.Error(t, err)
	assert.True(t, recorder.IsAlreadyFinalized(err))
}

func TestRecordAfterFinishIsRejected(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	record, err := rec.Begin(ctx, "flow-1", nil)
	require.NoError(t, err)
	require.NoError(t, rec.Finish(ctx, record.ID, models.ExecutionStatusCancelled))

	err = rec.Record(ctx, record.ID, models.OperationResult{NodeID: "a"})
	require.Error(t, err)
}

func TestFinishRejectsNonTerminalStatus(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	record, err := rec.Begin(ctx, "flow-1", nil)
	require.NoError(t, err)

	err = rec.Finish(ctx, record.ID, models.ExecutionStatusRunning)
	require.Error(t, err)
	assert.False(t, recorder.IsAlreadyFinalized(err))
}
