package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/engine"
)

func TestJournal_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run := createTestRun("run-1", testStart)
	run.DryRun = true
	require.NoError(t, s.BeginRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.False(t, got.Finished())
	assert.True(t, got.DryRun)
	assert.Equal(t, []string{"metaobjects"}, got.Kinds)
	assert.Equal(t, map[string]string{"definitions": "true", "data": "true"}, got.Options)
	assert.True(t, testStart.Equal(got.StartedAt))

	summary := engine.Result{Created: 3, Updated: 2, References: engine.ReferenceStats{Processed: 4, Transformed: 4}}
	require.NoError(t, s.FinishRun(ctx, "run-1", summary, testStart.Add(time.Minute)))

	got, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.Finished())
	assert.Equal(t, summary, got.Summary)
}

func TestJournal_FailedItemsStatus(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testStart)))

	require.NoError(t, s.FinishRun(ctx, "run-1", engine.Result{Updated: 1, Failed: 1}, testStart))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedItems, got.Status)
}

func TestJournal_BeginRunIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testStart)))
	second := createTestRun("run-1", testStart.Add(time.Hour))
	second.Target = "other"
	require.NoError(t, s.BeginRun(ctx, second))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "production", got.Target)
}

func TestJournal_UnknownRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.ReadRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = s.FinishRun(ctx, "missing", engine.Result{}, testStart)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestJournal_ListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, s.BeginRun(ctx, createTestRun(id, testStart.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-a", runs[2].ID)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestJournal_ListRunsEmpty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestJournal_RecorderWritesMutations(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testStart)))

	rec := s.Recorder("run-1", nil)
	var _ engine.Recorder = rec
	rec.RecordMutation(ctx, engine.MutationRecord{
		Seq: 2, Op: engine.OpSetFields, Kind: "product", NaturalKey: "chair",
		Outcome: engine.OutcomeRejected, Error: "USER_ERROR set_fields: rejected", At: testStart,
	})
	rec.RecordMutation(ctx, engine.MutationRecord{
		Seq: 1, Op: engine.OpCreateDefinition, Kind: "metafield_definition", NaturalKey: "custom.material",
		Outcome: engine.OutcomeOK, Downgraded: true, Fingerprint: "abc", At: testStart,
	})
	require.NoError(t, rec.Err())

	all, err := s.ReadMutations(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.True(t, all[0].Downgraded)
	assert.Equal(t, "abc", all[0].Fingerprint)
	assert.Equal(t, "run-1", all[1].RunID)

	rejected, err := s.ReadMutations(ctx, "run-1", engine.OutcomeRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "chair", rejected[0].NaturalKey)
}

func TestJournal_RecorderKeepsFirstFailure(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := s.Recorder("never-started", slog.New(slog.DiscardHandler))
	rec.RecordMutation(ctx, engine.MutationRecord{Seq: 1, Op: engine.OpDeleteEntity, Outcome: engine.OutcomeOK, At: testStart})
	rec.RecordMutation(ctx, engine.MutationRecord{Seq: 2, Op: engine.OpDeleteEntity, Outcome: engine.OutcomeOK, At: testStart})

	err := rec.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 journal writes failed")
}

func TestJournal_DuplicateSeqIgnored(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testStart)))

	m := engine.MutationRecord{Seq: 1, Op: engine.OpUpdateEntity, Outcome: engine.OutcomeOK, At: testStart}
	require.NoError(t, s.WriteMutation(ctx, "run-1", m))
	m.Outcome = engine.OutcomeFailed
	require.NoError(t, s.WriteMutation(ctx, "run-1", m))

	all, err := s.ReadMutations(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, engine.OutcomeOK, all[0].Outcome)
}
