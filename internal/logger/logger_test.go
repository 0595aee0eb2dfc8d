package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(&Config{Level: "debug", Format: "json", ServiceName: "test", Output: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestCtxFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())
	ctx = SetSyncID(ctx, "sync-1")
	ctx = SetComponent(ctx, "sync")

	CtxInfo(ctx, "fetched %d items", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "fetched 3 items", line["message"])
	assert.Equal(t, "sync-1", line[FieldSyncID])
	assert.Equal(t, "sync", line[FieldComponent])
	assert.Equal(t, "test", line["service"])
	assert.Equal(t, "sync-1", GetSyncID(ctx))
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf).WithContext(context.Background())

	With(Fields{FieldKind: "ANIME"}).WithCount(50).WithDuration(12).WithStatus("ok").Info(ctx, "page done")

	line := decodeLine(t, &buf)
	assert.Equal(t, "ANIME", line[FieldKind])
	assert.EqualValues(t, 50, line[FieldCount])
	assert.EqualValues(t, 12, line[FieldDurationMs])
	assert.Equal(t, "ok", line[FieldStatus])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})
	ctx := l.WithContext(context.Background())

	CtxInfo(ctx, "hidden")
	assert.Zero(t, buf.Len())

	CtxWarn(ctx, "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}
