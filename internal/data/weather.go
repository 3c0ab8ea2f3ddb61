package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	"RelayBot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

type weatherRepo struct {
	client *httpclient.Client
	cfg    conf.Weather
	logger *log.Helper
}

// NewWeatherRepo creates the OpenWeatherMap repository.
func NewWeatherRepo(client *httpclient.Client, c *conf.Clients, logger log.Logger) biz.WeatherRepo {
	r := &weatherRepo{
		client: client,
		logger: log.NewHelper(log.With(logger, "module", "data/weather")),
	}
	if c != nil && c.Weather != nil {
		r.cfg = *c.Weather
	}
	if r.cfg.Units == "" {
		r.cfg.Units = "metric"
	}
	if r.cfg.Lang == "" {
		r.cfg.Lang = "en"
	}
	return r
}

func (r *weatherRepo) CurrentByCity(ctx context.Context, city string) (*biz.WeatherRecord, error) {
	resp, err := r.get(ctx, map[string]string{"q": city})
	if err != nil {
		return nil, r.mapCityError(city, err)
	}
	return parseWeather(resp.Body)
}

func (r *weatherRepo) CurrentByCoordinates(ctx context.Context, lat, lon float64) (*biz.WeatherRecord, error) {
	resp, err := r.get(ctx, map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	})
	if err != nil {
		if te, ok := httpclient.AsTransportError(err); ok && te.StatusCode >= http.StatusInternalServerError {
			return nil, biz.NewDomainError(biz.KindUnavailable, biz.ReasonServiceUnavailable,
				"Weather service temporarily unavailable", biz.WeatherServiceName)
		}
		r.logger.Warnw("msg", "coordinate weather lookup failed", "error", err)
		return nil, biz.NewDomainError(biz.KindInternal, biz.ReasonAPI,
			"Location weather lookup failed", biz.WeatherServiceName)
	}
	return parseWeather(resp.Body)
}

func (r *weatherRepo) get(ctx context.Context, query map[string]string) (*httpclient.Response, error) {
	query["appid"] = r.cfg.APIKey
	query["units"] = r.cfg.Units
	query["lang"] = r.cfg.Lang
	return r.client.Get(ctx, httpclient.Request{
		URL:     r.cfg.BaseURL + "/weather",
		Query:   query,
		Service: biz.WeatherServiceName,
	})
}

func (r *weatherRepo) mapCityError(city string, err error) error {
	te, ok := httpclient.AsTransportError(err)
	if !ok {
		return biz.NewDomainError(biz.KindInternal, biz.ReasonAPI, "Weather service error occurred", biz.WeatherServiceName)
	}

	switch {
	case te.Kind == httpclient.KindNotFound:
		return biz.NewDomainError(biz.KindNotFound, biz.ReasonCityNotFound,
			fmt.Sprintf("City '%s' not found", city), biz.WeatherServiceName)
	case te.StatusCode == http.StatusUnauthorized:
		r.logger.Errorw("msg", "weather API rejected the credential", "error", err)
		return biz.NewDomainError(biz.KindAuth, biz.ReasonAuth,
			"Weather service authentication failed", biz.WeatherServiceName)
	case te.StatusCode >= http.StatusInternalServerError:
		return biz.NewDomainError(biz.KindUnavailable, biz.ReasonServiceUnavailable,
			"Weather service temporarily unavailable", biz.WeatherServiceName)
	default:
		r.logger.Warnw("msg", "weather request failed", "kind", string(te.Kind), "error", err)
		return biz.NewDomainError(biz.KindInternal, biz.ReasonAPI,
			"Weather service error occurred", biz.WeatherServiceName)
	}
}

// parseWeather builds a WeatherRecord from an OpenWeatherMap current-weather body.
func parseWeather(body map[string]any) (*biz.WeatherRecord, error) {
	rec := &biz.WeatherRecord{}
	var err error

	fail := func(field string, err error) error {
		if errors.Is(err, errFieldMissing) {
			return biz.NewDomainError(biz.KindInternal, biz.ReasonDataFormat,
				"Invalid weather data format: missing "+field, biz.WeatherServiceName)
		}
		return biz.NewDomainError(biz.KindInternal, biz.ReasonDataType,
			"Invalid weather data types", biz.WeatherServiceName)
	}

	if rec.Temperature, err = lookupFloat(body, "main", "temp"); err != nil {
		return nil, fail("main.temp", err)
	}
	if rec.FeelsLike, err = lookupFloat(body, "main", "feels_like"); err != nil {
		return nil, fail("main.feels_like", err)
	}
	if rec.Humidity, err = lookupInt(body, "main", "humidity"); err != nil {
		return nil, fail("main.humidity", err)
	}
	if rec.Description, err = lookupString(body, "weather", 0, "description"); err != nil {
		return nil, fail("weather[0].description", err)
	}
	if rec.Condition, err = lookupString(body, "weather", 0, "main"); err != nil {
		return nil, fail("weather[0].main", err)
	}
	if rec.City, err = lookupString(body, "name"); err != nil {
		return nil, fail("name", err)
	}
	if rec.Country, err = lookupString(body, "sys", "country"); err != nil {
		return nil, fail("sys.country", err)
	}

	pressure, err := lookupInt(body, "main", "pressure")
	switch {
	case err == nil:
		rec.Pressure = &pressure
	case !errors.Is(err, errFieldMissing):
		return nil, fail("main.pressure", err)
	}

	return rec, nil
}
