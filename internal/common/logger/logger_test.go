package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.log")

	l := NewZapAdapter(NewWithOutput("info", "json", FileConfig{Path: path}))
	l.WithFields(map[string]interface{}{"session": "s1"}).Info("interpreted", map[string]interface{}{"intent": "greeting"})
	l.Debug("below level", nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"interpreted"`)
	assert.Contains(t, string(data), `"session":"s1"`)
	assert.NotContains(t, string(data), "below level")
}

func TestNewWithOutput_StdoutFallsBack(t *testing.T) {
	assert.NotNil(t, NewWithOutput("debug", "console", FileConfig{Path: "stdout"}))
	assert.NotNil(t, NewWithOutput("warn", "json", FileConfig{}))
}

func TestWrappers(t *testing.T) {
	l := NewTestLogger(t)
	l.With(map[string]interface{}{"k": "v"}).Warn("warn", nil)
	l.WithError(errors.New("boom")).Error("failed", map[string]interface{}{"op": "lookup"})

	NewNoOpLogger().Info("nothing", nil)
	NewStructured("error", "json").Debug("dropped", nil)
}
