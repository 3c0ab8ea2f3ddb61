package log

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogHelper_TypedMethods(t *testing.T) {
	tests := []struct {
		name     string
		call     func(h *LogHelper)
		expected []string
	}{
		{"startup", func(h *LogHelper) { h.Startup("booting") }, []string{`"type":"startup"`, `"level":"info"`}},
		{"success", func(h *LogHelper) { h.Success("done") }, []string{`"type":"success"`}},
		{"rate_limit", func(h *LogHelper) { h.RateLimit("limited", "user_id", 7) }, []string{`"type":"rate_limit"`, `"level":"warn"`, `"user_id":7`}},
		{"circuit", func(h *LogHelper) { h.Circuit("tripped", "service", "openweathermap") }, []string{`"type":"circuit"`, `"service":"openweathermap"`}},
		{"redis", func(h *LogHelper) { h.Redis("ping") }, []string{`"type":"redis"`, `"level":"debug"`}},
		{"scheduler", func(h *LogHelper) { h.Scheduler("janitor run") }, []string{`"type":"scheduler"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapLogger, buf := newBufferedZap(t)
			h := NewLogHelper(NewKratosAdapter(zapLogger))
			tt.call(h)
			for _, e := range tt.expected {
				assert.Contains(t, buf.String(), e)
			}
		})
	}
}

func TestLogHelper_APICall(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	h := NewLogHelper(NewKratosAdapter(zapLogger))
	ctx := WithRequestContext(context.Background(), "req0000001", 42, "weather")

	h.APICall(ctx, "openweathermap", "http://api.example.com/weather", 1, 200, 15*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req0000001"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"attempt":1`)
	assert.NotContains(t, out, "slow_request")
}

func TestLogHelper_APICall_Slow(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	h := NewLogHelper(NewKratosAdapter(zapLogger))

	h.APICall(context.Background(), "icanhazdadjoke", "https://icanhazdadjoke.com/", 1, 0, 3*time.Second)

	out := buf.String()
	assert.Contains(t, out, `"type":"slow_request"`)
	assert.NotContains(t, out, `"status"`)
}

func TestLogHelper_Command(t *testing.T) {
	zapLogger, buf := newBufferedZap(t)
	h := NewLogHelper(NewKratosAdapter(zapLogger))
	ctx := WithRequestContext(context.Background(), "abcdefghij", 7, "joke")

	h.Command(ctx, "done")

	out := buf.String()
	assert.Contains(t, out, "/joke from user 7 - done")
	assert.Contains(t, out, `"command":"joke"`)
	assert.Contains(t, out, `"user_id":7`)
}

func TestRequestContext(t *testing.T) {
	assert.Equal(t, "unknown", GetRequestID(context.Background()))
	assert.Equal(t, int64(0), GetElapsedTime(context.Background()))

	id := GenerateRequestID()
	assert.Len(t, id, 10)

	ctx := WithRequestContext(context.Background(), id, 5, "help")
	reqCtx := GetRequestContext(ctx)
	assert.Equal(t, id, reqCtx.RequestID)
	assert.Equal(t, int64(5), reqCtx.UserID)
	assert.Equal(t, "help", reqCtx.Command)
}
