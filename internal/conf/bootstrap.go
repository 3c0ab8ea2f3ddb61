// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with RELAYBOT_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Short environment aliases are accepted for the common deployment knobs:
//   - OPENWEATHER_API_KEY: weather service credential
//   - API_TIMEOUT: outbound request timeout (seconds or Go duration)
//   - API_MAX_RETRIES: extra attempts after the first one
//   - LOG_LEVEL: log level
//   - REDIS_ADDR: enables the Redis backend for circuit and rate state
//   - PORT: HTTP listen port
//   - WEBHOOK_SECRET: secret token expected on command webhook calls
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RELAYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("clients.weather.api_key", "OPENWEATHER_API_KEY", "RELAYBOT_CLIENTS_WEATHER_API_KEY")
	_ = v.BindEnv("clients.timeout", "API_TIMEOUT", "RELAYBOT_CLIENTS_TIMEOUT")
	_ = v.BindEnv("clients.max_retries", "API_MAX_RETRIES", "RELAYBOT_CLIENTS_MAX_RETRIES")
	_ = v.BindEnv("log.level", "LOG_LEVEL", "RELAYBOT_LOG_LEVEL")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "RELAYBOT_DATA_REDIS_ADDR")
	_ = v.BindEnv("server.http.webhook_secret", "WEBHOOK_SECRET", "RELAYBOT_SERVER_HTTP_WEBHOOK_SECRET")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	httpAddr := v.GetString("server.http.addr")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RELAYBOT_SERVER_HTTP_ADDR") == "" {
		httpAddr = ":" + port
	}

	clientTimeout, err := getSeconds(v, "clients.timeout")
	if err != nil {
		return nil, err
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &HTTPServer{
				Network: v.GetString("server.http.network"),
				Addr:    httpAddr,
				Timeout: v.GetDuration("server.http.timeout"),

				WebhookSecret: v.GetString("server.http.webhook_secret"),
			},
		},
		Data: &Data{
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Clients: &Clients{
			Timeout:     clientTimeout,
			MaxRetries:  v.GetInt("clients.max_retries"),
			BackoffUnit: v.GetDuration("clients.backoff_unit"),
			ProxyURL:    v.GetString("clients.proxy_url"),
			UserAgent:   v.GetString("clients.user_agent"),
			Weather: &Weather{
				BaseURL:   strings.TrimSuffix(v.GetString("clients.weather.base_url"), "/"),
				APIKey:    v.GetString("clients.weather.api_key"),
				Units:     v.GetString("clients.weather.units"),
				Lang:      v.GetString("clients.weather.lang"),
				RateLimit: v.GetFloat64("clients.weather.rate_limit"),
			},
			Joke: &Joke{
				BaseURL:   strings.TrimSuffix(v.GetString("clients.joke.base_url"), "/"),
				RateLimit: v.GetFloat64("clients.joke.rate_limit"),
			},
		},
		Limits: &Limits{
			RatePerWindow:   v.GetInt("limits.rate_per_window"),
			RateWindow:      v.GetDuration("limits.rate_window"),
			MaxTrackedUsers: v.GetInt("limits.max_tracked_users"),
			CircuitCooldown: v.GetDuration("limits.circuit_cooldown"),
			JanitorSpec:     v.GetString("limits.janitor_spec"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 2*time.Minute)

	// data.redis.addr stays empty: state lives in process memory unless Redis is configured
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("clients.timeout", "10s")
	v.SetDefault("clients.max_retries", 3)
	v.SetDefault("clients.backoff_unit", time.Second)
	v.SetDefault("clients.user_agent", "RelayBot/1.0.0")
	v.SetDefault("clients.weather.base_url", "http://api.openweathermap.org/data/2.5")
	v.SetDefault("clients.weather.units", "metric")
	v.SetDefault("clients.weather.lang", "en")
	v.SetDefault("clients.joke.base_url", "https://icanhazdadjoke.com/")

	v.SetDefault("limits.rate_per_window", 20)
	v.SetDefault("limits.rate_window", time.Minute)
	v.SetDefault("limits.max_tracked_users", 10000)
	v.SetDefault("limits.circuit_cooldown", time.Minute)
	v.SetDefault("limits.janitor_spec", "0 */5 * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// getSeconds reads a duration that may be given as bare seconds ("10") or as a Go duration ("10s").
func getSeconds(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, raw)
	}
	return d, nil
}

// Validate checks that configuration values are usable.
// It returns an error listing every invalid field.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Server == nil || bc.Server.HTTP == nil || bc.Server.HTTP.Addr == "" {
		invalid = append(invalid, "server.http.addr")
	}

	if bc.Clients == nil {
		invalid = append(invalid, "clients")
	} else {
		if bc.Clients.Timeout <= 0 {
			invalid = append(invalid, "clients.timeout (API_TIMEOUT)")
		}
		if bc.Clients.MaxRetries < 0 {
			invalid = append(invalid, "clients.max_retries (API_MAX_RETRIES)")
		}
		if bc.Clients.BackoffUnit < 0 {
			invalid = append(invalid, "clients.backoff_unit")
		}
		if bc.Clients.Weather == nil || !validBaseURL(bc.Clients.Weather.BaseURL) {
			invalid = append(invalid, "clients.weather.base_url")
		}
		if bc.Clients.Joke == nil || !validBaseURL(bc.Clients.Joke.BaseURL) {
			invalid = append(invalid, "clients.joke.base_url")
		}
	}

	if bc.Limits == nil || bc.Limits.RatePerWindow <= 0 || bc.Limits.RateWindow <= 0 {
		invalid = append(invalid, "limits.rate_per_window / limits.rate_window")
	}
	if bc.Limits != nil && bc.Limits.CircuitCooldown <= 0 {
		invalid = append(invalid, "limits.circuit_cooldown")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
