package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn, FormatText)

	l.Info("should not appear")
	l.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestWithMergesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug, FormatJSON)

	child := l.With("component", "rmi.skeleton")
	child.Info("starting", "addr", "127.0.0.1:9000")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	fields := decoded["fields"].(map[string]interface{})
	assert.Equal(t, "rmi.skeleton", fields["component"])
	assert.Equal(t, "127.0.0.1:9000", fields["addr"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, Debug, FormatJSON)
	_ = base.With("component", "a")

	base.Info("plain")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	// Empty fields are omitted from the JSON entry, so "fields" may be absent.
	fields, _ := decoded["fields"].(map[string]interface{})
	_, hasComponent := fields["component"]
	assert.False(t, hasComponent)
}

func TestComponentLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Error, FormatText)
	l.SetComponentLevel("rmi.skeleton", Debug)

	scoped := l.With("component", "rmi.skeleton")
	scoped.Debug("visible because component override lowers the bar")

	other := l.With("component", "naming.core")
	other.Debug("suppressed by the global Error level")

	out := buf.String()
	assert.Contains(t, out, "visible because")
	assert.NotContains(t, out, "suppressed")
}

func TestTextFormatIncludesMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Info, FormatText)
	l.Info("listening", "addr", "0.0.0.0:0")

	out := buf.String()
	assert.True(t, strings.Contains(out, "listening"))
	assert.True(t, strings.Contains(out, "addr=0.0.0.0:0"))
}

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel("debug"))
	assert.Equal(t, Warn, ParseLevel("WARNING"))
	assert.Equal(t, Info, ParseLevel("unknown"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
}
