package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestHTTPObserver(t *testing.T) {
	obs := NewHTTPObserver()

	before := testutil.ToFloat64(upstreamAttemptsTotal.WithLabelValues("metrics-test", "ok", "200"))
	obs.AttemptFinished("metrics-test", "ok", 200, 10*time.Millisecond)
	obs.AttemptFinished("metrics-test", "timeout", 0, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamAttemptsTotal.WithLabelValues("metrics-test", "ok", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(upstreamAttemptsTotal.WithLabelValues("metrics-test", "timeout", "none")))

	obs.CircuitTripped("metrics-test", time.Now())
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitOpen.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitTripsTotal.WithLabelValues("metrics-test")))

	obs.CircuitReset("metrics-test", "cooldown")
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitOpen.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitResetsTotal.WithLabelValues("metrics-test", "cooldown")))
}

func TestCommandCounters(t *testing.T) {
	before := testutil.ToFloat64(rateLimitedTotal)
	RateLimited()
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimitedTotal))

	ObserveCommand("metrics-test", "done", -time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(commandsTotal.WithLabelValues("metrics-test", "done")))

	ReplyFailed("fallback")
	assert.GreaterOrEqual(t, testutil.ToFloat64(replyFailuresTotal.WithLabelValues("fallback")), float64(1))
}
