package log

import (
	"errors"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKratosAdapter_EmptyKeyvals(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	adapter := NewKratosAdapter(zapLogger)

	require.NoError(t, adapter.Log(log.LevelInfo))
	assert.Empty(t, buf.String())
}

func TestKratosAdapter_LevelMapping(t *testing.T) {
	tests := []struct {
		level    log.Level
		expected string
	}{
		{log.LevelDebug, `"level":"debug"`},
		{log.LevelInfo, `"level":"info"`},
		{log.LevelWarn, `"level":"warn"`},
		{log.LevelError, `"level":"error"`},
		{log.Level(99), `"level":"info"`},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			zapLogger, buf := newBufferedZap(t)
			adapter := NewKratosAdapter(zapLogger)

			require.NoError(t, adapter.Log(tt.level, "msg", "hello"))
			assert.Contains(t, buf.String(), tt.expected)
			assert.Contains(t, buf.String(), `"msg":"hello"`)
		})
	}
}

func TestKratosAdapter_Fields(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	adapter := NewKratosAdapter(zapLogger)

	err := adapter.Log(log.LevelInfo,
		"msg", "call finished",
		"service", "openweathermap",
		"attempt", 2,
		"error", errors.New("boom"),
		"dangling",
	)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"service":"openweathermap"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.NotContains(t, out, "dangling")
}

func TestKratosAdapter_SanitizesSecrets(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	adapter := NewKratosAdapter(zapLogger)

	err := adapter.Log(log.LevelInfo,
		"msg", "request",
		"api_key", "abcd1234efgh5678",
		"url", "http://api.example.com/weather?q=Paris&appid=abcd1234efgh5678",
	)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "abcd1234efgh5678")
	assert.Contains(t, out, "abcd********5678")
	assert.Contains(t, out, "q=Paris")
}

func TestKratosAdapter_WithHelper(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	logger := log.With(NewKratosAdapter(zapLogger), "module", "test")
	helper := log.NewHelper(logger)

	helper.Infow("msg", "with helper", "user_id", int64(42))

	out := buf.String()
	assert.Contains(t, out, `"module":"test"`)
	assert.Contains(t, out, `"user_id":42`)
}
