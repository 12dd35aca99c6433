package engine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_ChildPath(t *testing.T) {
	root := NewScope(nil)
	products := root.Child("products")
	defs := products.Child("definitions")
	custom := defs.Child("custom")
	specs := defs.Child("specs")

	assert.Equal(t, "", root.Path())
	assert.Equal(t, "products/definitions/custom", custom.Path())
	assert.Equal(t, "products/definitions/specs", specs.Path())
	assert.Equal(t, 3, custom.Depth())
	// siblings never share path storage
	assert.Equal(t, "products/definitions", defs.Path())
}

func TestScope_LogsWithPath(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewScope(logger).Child("metaobjects").Child("designer").Info("created", "key", "jane")

	out := buf.String()
	assert.Contains(t, out, "scope=metaobjects/designer")
	assert.Contains(t, out, "msg=created")
	assert.Contains(t, out, "key=jane")
}

func TestScope_NilLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		NewScope(nil).Child("x").Warn("ignored")
		Scope{}.Error("zero value scope")
	})
}
