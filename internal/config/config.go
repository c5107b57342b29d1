package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the monitor
type Config struct {
	Upstream    UpstreamConfig
	Stream      StreamConfig
	Server      ServerConfig
	JWT         JWTConfig
	History     HistoryConfig
	Influx      InfluxConfig
	Preferences PreferencesConfig
	Logging     LoggingConfig

	// EnvFile is the .env file that was loaded, empty if none
	EnvFile string
}

// UpstreamConfig locates the data service
type UpstreamConfig struct {
	Host           string
	UseSSL         bool
	RequestTimeout time.Duration
	TokenSecret    string
}

// WebsocketURL is the push channel endpoint
func (u UpstreamConfig) WebsocketURL() string {
	scheme := "ws"
	if u.UseSSL {
		scheme = "wss"
	}
	return scheme + "://" + u.Host
}

// APIURL is the base of the query endpoints
func (u UpstreamConfig) APIURL() string {
	scheme := "http"
	if u.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

// StreamConfig tunes the reconnect schedule
type StreamConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// ServerConfig holds the local status API settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// JWTConfig holds JWT configuration for the local API
type JWTConfig struct {
	SecretKey         string
	ExpirationMinutes int
}

const (
	BackendHTTP   = "http"
	BackendInflux = "influx"
)

// HistoryConfig selects where range queries go first
type HistoryConfig struct {
	Backend string
}

// InfluxConfig is used when History.Backend is "influx"
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

type PreferencesConfig struct {
	Sound bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from a .env file, config.yaml and
// AGRISENSE_ prefixed environment variables, in rising precedence.
func LoadConfig() (*Config, error) {
	var envFile string
	for _, path := range []string{".env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			envFile = path
			break
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/agrisense")
	setDefaults(v)

	v.SetEnvPrefix("AGRISENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// shorter names kept for deployment scripts
	v.BindEnv("upstream.host", "AGRISENSE_UPSTREAM_HOST", "SERVER_URL")
	v.BindEnv("upstream.useSSL", "AGRISENSE_UPSTREAM_USESSL", "USE_SSL")
	v.BindEnv("jwt.secretKey", "AGRISENSE_JWT_SECRETKEY", "JWT_SECRET_KEY")
	v.BindEnv("influx.token", "AGRISENSE_INFLUX_TOKEN", "INFLUXDB_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.host", "adviser-server.onrender.com")
	v.SetDefault("upstream.useSSL", true)
	v.SetDefault("upstream.requestTimeout", "15s")

	v.SetDefault("stream.baseDelay", "1s")
	v.SetDefault("stream.maxDelay", "10s")

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "5s")

	v.SetDefault("jwt.expirationMinutes", 30)

	v.SetDefault("history.backend", BackendHTTP)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.measurement", "sensor_data")

	v.SetDefault("preferences.sound", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	var err error

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"upstream.requestTimeout", &cfg.Upstream.RequestTimeout},
		{"stream.baseDelay", &cfg.Stream.BaseDelay},
		{"stream.maxDelay", &cfg.Stream.MaxDelay},
		{"server.readTimeout", &cfg.Server.ReadTimeout},
		{"server.writeTimeout", &cfg.Server.WriteTimeout},
		{"server.shutdownTimeout", &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	cfg.Upstream.Host = v.GetString("upstream.host")
	cfg.Upstream.UseSSL = v.GetBool("upstream.useSSL")
	cfg.Upstream.TokenSecret = v.GetString("upstream.tokenSecret")

	cfg.Server.Port = v.GetString("server.port")
	cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowedOrigins")

	cfg.JWT = JWTConfig{
		SecretKey:         v.GetString("jwt.secretKey"),
		ExpirationMinutes: v.GetInt("jwt.expirationMinutes"),
	}

	cfg.History.Backend = v.GetString("history.backend")
	cfg.Influx = InfluxConfig{
		URL:         v.GetString("influx.url"),
		Token:       v.GetString("influx.token"),
		Org:         v.GetString("influx.org"),
		Bucket:      v.GetString("influx.bucket"),
		Measurement: v.GetString("influx.measurement"),
	}

	cfg.Preferences.Sound = v.GetBool("preferences.sound")

	cfg.Logging = LoggingConfig{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upstream.Host == "" {
		return errors.New("upstream host is required")
	}
	if c.Stream.BaseDelay <= 0 || c.Stream.MaxDelay < c.Stream.BaseDelay {
		return fmt.Errorf("invalid reconnect delays: base %s, max %s", c.Stream.BaseDelay, c.Stream.MaxDelay)
	}
	switch c.History.Backend {
	case BackendHTTP:
	case BackendInflux:
		if c.Influx.Bucket == "" || c.Influx.Org == "" {
			return errors.New("influx backend needs influx.org and influx.bucket")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	return nil
}
