package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"k": 2})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestConfigureJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "json", "warn"))
	defer func() { _ = Configure(os.Stdout, "", "info") }()

	l := New("board")
	l.Infof("dropped")
	l.Warnf("kept %s", "warning")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "board", entry["component"])
	assert.Equal(t, "kept warning", entry["message"])
	assert.Equal(t, "warn", entry["level"])
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := Configure(nil, "", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
