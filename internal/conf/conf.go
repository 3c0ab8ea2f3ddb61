package conf

import "time"

// Bootstrap is the root configuration of the RelayBot service.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Clients *Clients
	Limits  *Limits
	Log     *Log
}

// Server holds the inbound transport settings.
type Server struct {
	HTTP *HTTPServer
}

// HTTPServer configures the webhook/health HTTP listener.
type HTTPServer struct {
	Network       string
	Addr          string
	Timeout       time.Duration
	// WebhookSecret must match the secret token header on command calls.
	// Empty disables the check.
	WebhookSecret string
}

// Data holds optional shared-state backends.
type Data struct {
	Redis *Redis
}

// Redis configures the optional Redis backend for circuit and rate state.
// An empty Addr keeps all state in process memory.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Clients configures the outbound resilient HTTP client and the services behind it.
type Clients struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffUnit time.Duration
	ProxyURL    string
	UserAgent   string
	Weather     *Weather
	Joke        *Joke
}

// Weather configures the OpenWeatherMap client.
type Weather struct {
	BaseURL string
	APIKey  string
	Units   string
	Lang    string
	// RateLimit paces outbound calls in requests per second. Zero disables pacing.
	RateLimit float64
}

// Joke configures the icanhazdadjoke client.
type Joke struct {
	BaseURL   string
	RateLimit float64
}

// Limits holds the per-user and per-service guard settings.
type Limits struct {
	RatePerWindow   int
	RateWindow      time.Duration
	MaxTrackedUsers int
	CircuitCooldown time.Duration
	JanitorSpec     string
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
