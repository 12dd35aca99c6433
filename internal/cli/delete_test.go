package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
	"github.com/roach88/shopsync/internal/testutil"
)

func furnitureShops() map[string]*remote.Memory {
	return map[string]*remote.Memory{
		"target": testutil.Shop("target", nil,
			testutil.Product("chair", "Chair"),
			testutil.Product("table", "Table"),
		),
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	env := newCLIEnv(t, furnitureShops(), "")

	_, _, err := env.run("delete", "target", "products")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--yes")
	assert.Empty(t, env.shops["target"].Writes())
}

func TestDelete_ByHandle(t *testing.T) {
	env := newCLIEnv(t, furnitureShops(), "")

	out, _, err := env.run("delete", "target", "products", "--handle", "chair", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted=1")

	target := env.shops["target"]
	_, ok := target.Entity(model.EntityProduct, "chair")
	assert.False(t, ok)
	_, ok = target.Entity(model.EntityProduct, "table")
	assert.True(t, ok)
}

func TestDelete_DryRunNeedsNoConfirmation(t *testing.T) {
	env := newCLIEnv(t, furnitureShops(), "")

	out, _, err := env.run("delete", "target", "products", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted=2")
	assert.Contains(t, out, "dry run: no changes were made")

	_, ok := env.shops["target"].Entity(model.EntityProduct, "chair")
	assert.True(t, ok)
}

func TestDelete_UndeletableKind(t *testing.T) {
	env := newCLIEnv(t, furnitureShops(), "")

	_, _, err := env.run("delete", "target", "variants", "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "cannot be deleted")
}
