package biz

import (
	"context"
	"fmt"

	"RelayBot/internal/conf"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// WeatherServiceName identifies the weather API in logs, metrics and circuits.
const WeatherServiceName = "openweathermap"

// WeatherRecord is a fully parsed current-weather report.
type WeatherRecord struct {
	Temperature float64
	FeelsLike   float64
	Humidity    int
	Pressure    *int
	Description string
	Condition   string
	City        string
	Country     string
}

// WeatherRepo fetches current weather. Implementations return *DomainError.
type WeatherRepo interface {
	CurrentByCity(ctx context.Context, city string) (*WeatherRecord, error)
	CurrentByCoordinates(ctx context.Context, lat, lon float64) (*WeatherRecord, error)
}

// WeatherUseCase validates weather queries before they reach the network.
type WeatherUseCase struct {
	repo   WeatherRepo
	apiKey string
	logger *pkglog.LogHelper
}

// NewWeatherUseCase creates a new weather use case.
func NewWeatherUseCase(repo WeatherRepo, c *conf.Clients, logger log.Logger) *WeatherUseCase {
	uc := &WeatherUseCase{
		repo:   repo,
		logger: pkglog.NewLogHelper(log.With(logger, "module", "biz/weather")),
	}
	if c != nil && c.Weather != nil {
		uc.apiKey = c.Weather.APIKey
	}
	if uc.apiKey == "" {
		uc.logger.Warn("OpenWeatherMap API key not configured, weather commands will report unavailable")
	}
	return uc
}

// IsAvailable reports whether a credential is configured. No network call.
func (uc *WeatherUseCase) IsAvailable() bool {
	return uc.apiKey != ""
}

// GetCurrentWeather returns the weather for a city name.
func (uc *WeatherUseCase) GetCurrentWeather(ctx context.Context, city string) (*WeatherRecord, error) {
	sanitized := SanitizeInput(city)
	if msg := ValidateCity(sanitized); msg != "" {
		uc.logger.Warnw("msg", "invalid weather query", "city", city, "reason", msg)
		return nil, NewDomainError(KindValidation, ReasonValidation, msg, WeatherServiceName)
	}
	if !uc.IsAvailable() {
		return nil, NewDomainError(KindInternal, ReasonConfiguration, "Weather service not configured", WeatherServiceName)
	}

	uc.logger.Infow("msg", "requesting weather data", "city", sanitized)
	record, err := uc.repo.CurrentByCity(ctx, sanitized)
	if err != nil {
		return nil, err
	}
	uc.logger.Success("weather data retrieved", "city", record.City)
	return record, nil
}

// GetWeatherByCoordinates returns the weather at a position.
func (uc *WeatherUseCase) GetWeatherByCoordinates(ctx context.Context, lat, lon float64) (*WeatherRecord, error) {
	if msg := ValidateCoordinates(lat, lon); msg != "" {
		return nil, NewDomainError(KindValidation, ReasonValidation, msg, WeatherServiceName)
	}
	if !uc.IsAvailable() {
		return nil, NewDomainError(KindInternal, ReasonConfiguration, "Weather service not configured", WeatherServiceName)
	}

	coords := fmt.Sprintf("%.4f,%.4f", lat, lon)
	uc.logger.Infow("msg", "requesting weather data", "coordinates", coords)
	record, err := uc.repo.CurrentByCoordinates(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	uc.logger.Success("weather data retrieved", "coordinates", coords, "city", record.City)
	return record, nil
}
