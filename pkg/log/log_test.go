package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	assert.Equal(t, "req-1", WithRequestID(ctx).Data[RequestIDKey])
	assert.Equal(t, "unknown", WithRequestID(context.Background()).Data[RequestIDKey])
}

func TestErrorWithTraceID(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	l := NewLogger()
	var buf bytes.Buffer
	out := l.Out
	l.SetOutput(&buf)
	defer l.SetOutput(out)

	assert.Equal(t, "abc", ErrorWithTraceID(Fields{RequestIDKey: "abc"}, "boom"))
	id := ErrorWithTraceID(nil, "boom")
	assert.Len(t, id, 36)
	assert.Contains(t, buf.String(), "boom")
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewTestLogger(&buf)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
