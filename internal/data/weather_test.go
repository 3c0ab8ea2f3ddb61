package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	"RelayBot/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisBody = `{
  "name": "Paris",
  "sys": {"country": "FR"},
  "main": {"temp": 21.5, "feels_like": 20.9, "humidity": 60, "pressure": 1013},
  "weather": [{"main": "Clear", "description": "clear sky"}]
}`

func newTestHTTPClient(t *testing.T) *httpclient.Client {
	t.Helper()
	breaker := httpclient.NewCircuitBreaker(httpclient.NewMemoryCircuitStore(), time.Minute, nil, testLogger())
	client := httpclient.NewClient(httpclient.Options{
		Timeout:     2 * time.Second,
		MaxRetries:  3,
		BackoffUnit: time.Millisecond,
	}, breaker, nil, testLogger())
	t.Cleanup(client.Close)
	return client
}

func newTestWeatherRepo(t *testing.T, handler http.HandlerFunc) biz.WeatherRepo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWeatherRepo(newTestHTTPClient(t), &conf.Clients{
		Weather: &conf.Weather{BaseURL: srv.URL, APIKey: "test-key"},
	}, testLogger())
}

func requireDomainError(t *testing.T, err error, kind biz.ErrorKind, reason string) *biz.DomainError {
	t.Helper()
	require.Error(t, err)
	de, ok := biz.AsDomainError(err)
	require.True(t, ok, "expected DomainError, got %T: %v", err, err)
	assert.Equal(t, kind, de.Kind)
	assert.Equal(t, reason, de.Reason)
	return de
}

func TestWeatherRepo_CurrentByCity(t *testing.T) {
	var query atomic.Value
	repo := newTestWeatherRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(parisBody))
	})

	rec, err := repo.CurrentByCity(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, 21.5, rec.Temperature)
	assert.Equal(t, 20.9, rec.FeelsLike)
	assert.Equal(t, 60, rec.Humidity)
	require.NotNil(t, rec.Pressure)
	assert.Equal(t, 1013, *rec.Pressure)
	assert.Equal(t, "clear sky", rec.Description)
	assert.Equal(t, "Clear", rec.Condition)
	assert.Equal(t, "Paris", rec.City)
	assert.Equal(t, "FR", rec.Country)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"Paris"}, q["q"])
	assert.Equal(t, []string{"test-key"}, q["appid"])
	assert.Equal(t, []string{"metric"}, q["units"])
	assert.Equal(t, []string{"en"}, q["lang"])
}

func TestWeatherRepo_CurrentByCoordinates(t *testing.T) {
	repo := newTestWeatherRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.8566", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.3522", r.URL.Query().Get("lon"))
		assert.Empty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(parisBody))
	})

	rec, err := repo.CurrentByCoordinates(context.Background(), 48.8566, 2.3522)
	require.NoError(t, err)
	assert.Equal(t, "Paris", rec.City)
}

func TestWeatherRepo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		kind    biz.ErrorKind
		reason  string
		message string
	}{
		{name: "not_found", status: http.StatusNotFound, kind: biz.KindNotFound, reason: biz.ReasonCityNotFound, message: "City 'Atlantis' not found"},
		{name: "unauthorized", status: http.StatusUnauthorized, kind: biz.KindAuth, reason: biz.ReasonAuth, message: "Weather service authentication failed"},
		{name: "server_error", status: http.StatusBadGateway, kind: biz.KindUnavailable, reason: biz.ReasonServiceUnavailable, message: "Weather service temporarily unavailable"},
		{name: "bad_request", status: http.StatusBadRequest, kind: biz.KindInternal, reason: biz.ReasonAPI, message: "Weather service error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestWeatherRepo(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := repo.CurrentByCity(context.Background(), "Atlantis")
			de := requireDomainError(t, err, tt.kind, tt.reason)
			assert.Equal(t, tt.message, de.Message)
			assert.Equal(t, biz.WeatherServiceName, de.Service)
		})
	}
}

func TestWeatherRepo_CoordinatesErrorMapping(t *testing.T) {
	repo := newTestWeatherRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := repo.CurrentByCoordinates(context.Background(), 1, 2)
	de := requireDomainError(t, err, biz.KindInternal, biz.ReasonAPI)
	assert.Equal(t, "Location weather lookup failed", de.Message)

	repo = newTestWeatherRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err = repo.CurrentByCoordinates(context.Background(), 1, 2)
	requireDomainError(t, err, biz.KindUnavailable, biz.ReasonServiceUnavailable)
}

func TestWeatherRepo_CircuitOpenAfterExhaustion(t *testing.T) {
	var calls atomic.Int32
	repo := newTestWeatherRepo(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := repo.CurrentByCity(context.Background(), "Paris")
	requireDomainError(t, err, biz.KindUnavailable, biz.ReasonServiceUnavailable)
	assert.Equal(t, int32(4), calls.Load())

	_, err = repo.CurrentByCity(context.Background(), "Paris")
	requireDomainError(t, err, biz.KindInternal, biz.ReasonAPI)
	assert.Equal(t, int32(4), calls.Load(), "open circuit makes no network call")
}

func TestParseWeather(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		reason  string
		message string
	}{
		{
			name:    "missing_temp",
			body:    map[string]any{"main": map[string]any{}},
			reason:  biz.ReasonDataFormat,
			message: "Invalid weather data format: missing main.temp",
		},
		{
			name: "empty_weather_list",
			body: map[string]any{
				"main":    map[string]any{"temp": 1.0, "feels_like": 1.0, "humidity": 1.0},
				"weather": []any{},
			},
			reason:  biz.ReasonDataFormat,
			message: "Invalid weather data format: missing weather[0].description",
		},
		{
			name:    "non_numeric_temp",
			body:    map[string]any{"main": map[string]any{"temp": "warm"}},
			reason:  biz.ReasonDataType,
			message: "Invalid weather data types",
		},
		{
			name: "missing_country",
			body: map[string]any{
				"main":    map[string]any{"temp": 1.0, "feels_like": 1.0, "humidity": 1.0},
				"weather": []any{map[string]any{"main": "Rain", "description": "light rain"}},
				"name":    "Oslo",
			},
			reason:  biz.ReasonDataFormat,
			message: "Invalid weather data format: missing sys.country",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseWeather(tt.body)
			de := requireDomainError(t, err, biz.KindInternal, tt.reason)
			assert.Equal(t, tt.message, de.Message)
		})
	}
}

func TestParseWeather_PressureOptional(t *testing.T) {
	rec, err := parseWeather(map[string]any{
		"main":    map[string]any{"temp": 3.0, "feels_like": 1.0, "humidity": 80.0},
		"weather": []any{map[string]any{"main": "Snow", "description": "snow"}},
		"name":    "Oslo",
		"sys":     map[string]any{"country": "NO"},
	})
	require.NoError(t, err)
	assert.Nil(t, rec.Pressure)
	assert.Equal(t, 80, rec.Humidity)
}
