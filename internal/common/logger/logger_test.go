package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	zl := NewWithOutput("debug", "json", path)
	log := NewZapAdapter(zl).
		WithFields(map[string]interface{}{"workerId": "w-1"}).
		WithError(errors.New("boom"))

	log.Debug("debug line", map[string]interface{}{"requestId": 3})
	log.Info("info line", nil)
	require.NoError(t, zl.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"debug line"`)
	assert.Contains(t, out, `"requestId":3`)
	assert.Contains(t, out, `"workerId":"w-1"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestNewWithOutput_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	zl := NewWithOutput("warn", "json", path)
	log := NewZapAdapter(zl)
	log.Info("hidden", nil)
	log.Warn("shown", nil)
	require.NoError(t, zl.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"a": 1}).Error("nothing", map[string]interface{}{"b": 2})
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "error", ParseLevel("error").String())
	assert.Equal(t, "info", ParseLevel("verbose").String())
	assert.Equal(t, "info", ParseLevel("").String())
}

func TestToFields_SortedAndNamedErrors(t *testing.T) {
	fields := toFields(map[string]interface{}{
		"z":     1,
		"a":     "x",
		"cause": errors.New("boom"),
	})
	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "cause", fields[1].Key)
	assert.Equal(t, "z", fields[2].Key)
	assert.Nil(t, toFields(nil))
}
