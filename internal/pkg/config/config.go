package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	AI            AIConfig            `mapstructure:"ai"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Search        SearchConfig        `mapstructure:"search"`
	Guide         GuideConfig         `mapstructure:"guide"`
	Session       SessionConfig       `mapstructure:"session"`
	Europeana     EuropeanaConfig     `mapstructure:"europeana"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AIConfig configures the generative-AI backend. APIKey is the fallback
// credential; sessions may select their own.
type AIConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Language         string        `mapstructure:"language"`
	CityTimeout      time.Duration `mapstructure:"city_timeout"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	Temperature      float32       `mapstructure:"temperature"`
	MuseumCount      int           `mapstructure:"museum_count"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend             string `mapstructure:"backend"`
	Namespace           string `mapstructure:"namespace"`
	Version             string `mapstructure:"version"`
	CoordinatePrecision int    `mapstructure:"coordinate_precision"`
	MaxBlobBytes        int    `mapstructure:"max_blob_bytes"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SearchConfig struct {
	MaxDistanceKm       float64       `mapstructure:"max_distance_km"`
	DistanceToleranceKm float64       `mapstructure:"distance_tolerance_km"`
	PlaceRadiusKm       float64       `mapstructure:"place_radius_km"`
	GeoTimeout          time.Duration `mapstructure:"geo_timeout"`
}

type GuideConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	DefaultRadiusKm int           `mapstructure:"default_radius_km"`
	Topic           string        `mapstructure:"topic"`
	Tips            int           `mapstructure:"tips"`
}

type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SecureCookie  bool          `mapstructure:"secure_cookie"`
}

type EuropeanaConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	PprofAddr    string `mapstructure:"pprof_addr"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// defaults mirrors Defaults() as flat viper keys so env overrides resolve.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.language", d.AI.Language)
	v.SetDefault("ai.city_timeout", d.AI.CityTimeout)
	v.SetDefault("ai.discovery_timeout", d.AI.DiscoveryTimeout)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.museum_count", d.AI.MuseumCount)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.version", d.Cache.Version)
	v.SetDefault("cache.coordinate_precision", d.Cache.CoordinatePrecision)
	v.SetDefault("cache.max_blob_bytes", d.Cache.MaxBlobBytes)

	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("search.max_distance_km", d.Search.MaxDistanceKm)
	v.SetDefault("search.distance_tolerance_km", d.Search.DistanceToleranceKm)
	v.SetDefault("search.place_radius_km", d.Search.PlaceRadiusKm)
	v.SetDefault("search.geo_timeout", d.Search.GeoTimeout)

	v.SetDefault("guide.debounce", d.Guide.Debounce)
	v.SetDefault("guide.default_radius_km", d.Guide.DefaultRadiusKm)
	v.SetDefault("guide.topic", d.Guide.Topic)
	v.SetDefault("guide.tips", d.Guide.Tips)

	v.SetDefault("session.cookie_name", d.Session.CookieName)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	v.SetDefault("session.secure_cookie", d.Session.SecureCookie)

	v.SetDefault("europeana.enabled", d.Europeana.Enabled)
	v.SetDefault("europeana.base_url", d.Europeana.BaseURL)
	v.SetDefault("europeana.api_key", d.Europeana.APIKey)
	v.SetDefault("europeana.timeout", d.Europeana.Timeout)

	v.SetDefault("observability.service_name", d.Observability.ServiceName)
	v.SetDefault("observability.metrics_addr", d.Observability.MetricsAddr)
	v.SetDefault("observability.otlp_endpoint", d.Observability.OTLPEndpoint)
	v.SetDefault("observability.pprof_addr", d.Observability.PprofAddr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8091",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // guide and ask endpoints stream without a deadline
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
		},
		AI: AIConfig{
			Model:            "gemini-2.5-flash",
			Language:         "English",
			CityTimeout:      5 * time.Second,
			DiscoveryTimeout: 25 * time.Second,
			Temperature:      0.1,
			MuseumCount:      8,
		},
		Cache: CacheConfig{
			Backend:             "memory",
			Namespace:           "museum_radar_cache",
			Version:             "v14",
			CoordinatePrecision: 2,
			MaxBlobBytes:        5 << 20,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Search: SearchConfig{
			MaxDistanceKm:       50,
			DistanceToleranceKm: 0.1,
			PlaceRadiusKm:       15,
			GeoTimeout:          5 * time.Second,
		},
		Guide: GuideConfig{
			Debounce:        500 * time.Millisecond,
			DefaultRadiusKm: 10,
			Topic:           "culture",
			Tips:            6,
		},
		Session: SessionConfig{
			CookieName:    "museumradar_session",
			TTL:           2 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Europeana: EuropeanaConfig{
			Enabled: true,
			BaseURL: "https://api.europeana.eu/record/v2/search.json",
			APIKey:  "api2demo",
			Timeout: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			ServiceName: "museum-radar",
			MetricsAddr: ":9092",
			PprofAddr:   ":6060",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, a .env file
// and MUSEUMRADAR_* environment variables, in increasing precedence.
// GEMINI_API_KEY and API_KEY are accepted for the AI key.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MUSEUMRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", "MUSEUMRADAR_AI_API_KEY", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("bind ai.api_key: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the core cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.AI.CityTimeout <= 0 || c.AI.DiscoveryTimeout <= 0 {
		errs = append(errs, errors.New("ai timeouts must be positive"))
	}
	if c.AI.MuseumCount <= 0 {
		errs = append(errs, errors.New("ai.museum_count must be positive"))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not memory or redis", c.Cache.Backend))
	}
	if c.Cache.Namespace == "" || c.Cache.Version == "" {
		errs = append(errs, errors.New("cache.namespace and cache.version are required"))
	}
	if c.Cache.CoordinatePrecision < 0 || c.Cache.CoordinatePrecision > 6 {
		errs = append(errs, errors.New("cache.coordinate_precision must be between 0 and 6"))
	}
	if c.Search.MaxDistanceKm <= 0 || c.Search.DistanceToleranceKm < 0 {
		errs = append(errs, errors.New("search distances must be positive"))
	}
	if c.Guide.DefaultRadiusKm < 1 || c.Guide.DefaultRadiusKm > 50 {
		errs = append(errs, errors.New("guide.default_radius_km must be between 1 and 50"))
	}
	if c.Guide.Debounce < 0 {
		errs = append(errs, errors.New("guide.debounce must not be negative"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	return errors.Join(errs...)
}
