package cli

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/store"
)

func TestHistory_ListAndShow(t *testing.T) {
	env := newCLIEnv(t, designerShops(), "")
	_, _, err := env.run("sync", "source", "target", "metaobjects")
	require.NoError(t, err)

	out, _, err := env.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "source->target")
	assert.Contains(t, out, store.StatusCompleted)

	out, _, err = env.run("history", "run-1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sync", resp.Data.Run.Command)
	assert.Equal(t, []string{"metaobjects"}, resp.Data.Run.Kinds)
	assert.Equal(t, 2, resp.Data.Run.Summary.Created)
	require.NotNil(t, resp.Data.Run.FinishedAt)

	require.Len(t, resp.Data.Mutations, 2)
	assert.Equal(t, "designer", resp.Data.Mutations[0].Key)
	assert.Equal(t, "ada", resp.Data.Mutations[1].Key)
	for _, m := range resp.Data.Mutations {
		assert.Equal(t, engine.OutcomeOK, m.Outcome)
	}
}

func TestHistory_ShowText(t *testing.T) {
	env := newCLIEnv(t, designerShops(), "")
	_, _, err := env.run("sync", "source", "target", "metaobjects", "--dry-run")
	require.NoError(t, err)

	out, _, err := env.run("history", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, engine.OutcomeDryRun)

	out, _, err = env.run("history", "run-1", "--outcome", engine.OutcomeFailed)
	require.NoError(t, err)
	assert.Contains(t, out, "no writes recorded")
}

func TestHistory_Empty(t *testing.T) {
	env := newCLIEnv(t, nil, "")

	out, _, err := env.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func TestHistory_UnknownRun(t *testing.T) {
	env := newCLIEnv(t, nil, "")

	_, _, err := env.run("history", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, CodeJournal, errorCode(err))
}

func TestHistory_NoJournal(t *testing.T) {
	env := newCLIEnv(t, nil, "")

	_, _, err := env.run("history", "--no-journal")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
