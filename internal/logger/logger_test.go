package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Output: "file"})
	assert.Error(t, err)

	_, err = New(Config{Output: "stdout"})
	assert.Error(t, err, "stdout is reserved for the transport")
}

func TestLogLLMInteractionMasks(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(Config{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	l.LogLLMInteraction("suggest_examples",
		map[string]any{"api_key": "x", "password": "hunter2", "path": "/pets"},
		map[string]any{"body.name": "Rex"}, nil)
	l.LogLLMInteraction("suggest_examples", map[string]string{"auth_bearer": "tok"}, nil, errors.New("rate limited"))
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.Contains(t, out, "/pets")
	assert.Contains(t, out, "Rex")
	assert.Contains(t, out, "rate limited")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "tok\"")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-tester.log")
	l, err := New(Config{Output: "file", FilePath: path, Format: "json"})
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Close())
	assert.FileExists(t, path)
}
