package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	assert.NoError(t, opts.Validate())

	opts.Level = "verbose"
	assert.Error(t, opts.Validate())

	opts = NewOptions()
	opts.Format = "xml"
	assert.Error(t, opts.Validate())
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	assert.Error(t, Init(&Options{Level: "loud", Format: "json"}))
}

func TestInitAndSync(t *testing.T) {
	opts := NewOptions()
	opts.Level = "debug"
	opts.AddInitialField("service", "test")
	require.NoError(t, Init(opts))

	Infow("logger ready", "key", "value")

	// Sync's result is discardable; stdout sinks may reject fsync.
	_ = Sync()
}
