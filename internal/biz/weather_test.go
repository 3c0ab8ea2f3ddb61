package biz

import (
	"bytes"
	"context"
	"os"
	"testing"

	"RelayBot/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWeatherRepo struct {
	mock.Mock
}

func (m *MockWeatherRepo) CurrentByCity(ctx context.Context, city string) (*WeatherRecord, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WeatherRecord), args.Error(1)
}

func (m *MockWeatherRepo) CurrentByCoordinates(ctx context.Context, lat, lon float64) (*WeatherRecord, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WeatherRecord), args.Error(1)
}

func newTestWeatherUseCase(repo WeatherRepo, apiKey string) *WeatherUseCase {
	return NewWeatherUseCase(repo, &conf.Clients{Weather: &conf.Weather{APIKey: apiKey}}, log.NewStdLogger(os.Stdout))
}

func TestWeatherUseCase_GetCurrentWeather(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "key")
	want := &WeatherRecord{Temperature: 21.5, City: "New York", Country: "US"}
	repo.On("CurrentByCity", mock.Anything, "New York").Return(want, nil)

	got, err := uc.GetCurrentWeather(context.Background(), "  New   York ")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
}

func TestWeatherUseCase_GetCurrentWeather_StripsControlCharacters(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "key")
	want := &WeatherRecord{City: "Newark", Country: "US"}
	// tabs are control characters and are removed, not collapsed
	repo.On("CurrentByCity", mock.Anything, "NewYork").Return(want, nil)

	got, err := uc.GetCurrentWeather(context.Background(), " New\tYork\x00 ")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
}

func TestWeatherUseCase_LogsRetrievalAsSuccess(t *testing.T) {
	var buf bytes.Buffer
	repo := new(MockWeatherRepo)
	uc := NewWeatherUseCase(repo, &conf.Clients{Weather: &conf.Weather{APIKey: "key"}}, log.NewStdLogger(&buf))
	repo.On("CurrentByCoordinates", mock.Anything, 48.85, 2.35).Return(&WeatherRecord{City: "Paris"}, nil)

	_, err := uc.GetWeatherByCoordinates(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=weather data retrieved")
	assert.Contains(t, buf.String(), "type=success")
	assert.Contains(t, buf.String(), "coordinates=48.8500,2.3500")
}

func TestWeatherUseCase_ValidationBeforeNetwork(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "key")

	_, err := uc.GetCurrentWeather(context.Background(), "Paris<script>")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, de.Kind)
	assert.Equal(t, "City name contains invalid characters", de.Message)
	repo.AssertNotCalled(t, "CurrentByCity", mock.Anything, mock.Anything)
}

func TestWeatherUseCase_MissingCredential(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "")
	assert.False(t, uc.IsAvailable())

	_, err := uc.GetCurrentWeather(context.Background(), "Paris")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindInternal, de.Kind)
	assert.Equal(t, ReasonConfiguration, de.Reason)

	_, err = uc.GetWeatherByCoordinates(context.Background(), 1, 2)
	de, ok = AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonConfiguration, de.Reason)

	repo.AssertNotCalled(t, "CurrentByCity", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CurrentByCoordinates", mock.Anything, mock.Anything, mock.Anything)
}

func TestWeatherUseCase_ValidationWinsOverCredential(t *testing.T) {
	uc := newTestWeatherUseCase(new(MockWeatherRepo), "")

	_, err := uc.GetCurrentWeather(context.Background(), "")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, de.Kind)
}

func TestWeatherUseCase_RepoErrorPassesThrough(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "key")
	notFound := NewDomainError(KindNotFound, ReasonCityNotFound, "City 'Atlantis' not found", WeatherServiceName)
	repo.On("CurrentByCity", mock.Anything, "Atlantis").Return(nil, notFound)

	_, err := uc.GetCurrentWeather(context.Background(), "Atlantis")
	assert.Same(t, notFound, err)
}

func TestWeatherUseCase_GetWeatherByCoordinates(t *testing.T) {
	repo := new(MockWeatherRepo)
	uc := newTestWeatherUseCase(repo, "key")
	want := &WeatherRecord{City: "Paris"}
	repo.On("CurrentByCoordinates", mock.Anything, 48.85, 2.35).Return(want, nil)

	got, err := uc.GetWeatherByCoordinates(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = uc.GetWeatherByCoordinates(context.Background(), 91, 0)
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, de.Kind)
}
