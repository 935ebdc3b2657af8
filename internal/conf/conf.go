package conf

import "time"

// Bootstrap is the root configuration for the service.
type Bootstrap struct {
	Server   *Server
	Data     *Data
	Client   *Client
	Services *Services
	Log      *Log
}

// Server holds the inbound transport configuration.
type Server struct {
	HTTP *ServerHTTP
}

// ServerHTTP configures the HTTP listener.
type ServerHTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds storage configuration.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database configures the MySQL connection.
type Database struct {
	Driver string
	Source string
}

// Redis configures the Redis connection.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client configures the resilient outbound HTTP client.
type Client struct {
	MaxRetries              int
	BaseBackoff             time.Duration
	Timeout                 time.Duration
	CircuitFailureThreshold int
	CircuitOpenTimeout      time.Duration
	ProxyURL                string
}

// Services maps peer service names to their base URLs. ServiceToken is the
// bearer token used for service-to-service calls (escalation notifications).
type Services struct {
	Gateway       string
	Users         string
	Booking       string
	GPA           string
	Notifications string
	ServiceToken  string
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	OutputFile string
	Env        string
}
