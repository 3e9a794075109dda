package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"OptiFeed/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		ErrorRing int    `yaml:"error_ring"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Monitor struct {
		Interval     time.Duration `yaml:"interval"`
		Underlyings  []string      `yaml:"underlyings"`
		RiskFreeRate float64       `yaml:"risk_free_rate"`
		WarmupWait   time.Duration `yaml:"warmup_wait"`
		MaxContracts int           `yaml:"max_contracts"`
		ErrorBackoff time.Duration `yaml:"error_backoff"`
		StopTimeout  time.Duration `yaml:"stop_timeout"`
		HistorySize  int           `yaml:"history_size"`
	} `yaml:"monitor"`
	Screener struct {
		MinDTE            int      `yaml:"min_dte"`
		MaxDTE            int      `yaml:"max_dte"`
		StrikeRangePct    float64  `yaml:"strike_range_pct"`
		MaxSpreadWidthPct float64  `yaml:"max_spread_width_pct"`
		MinMidPrice       float64  `yaml:"min_mid_price"`
		MinVolume         int64    `yaml:"min_volume"`
		MinOpenInterest   int64    `yaml:"min_open_interest"`
		StrikeIncrement   float64  `yaml:"strike_increment"`
		Symbols           []string `yaml:"symbols"`
	} `yaml:"screener"`
	Feed struct {
		Mode           string        `yaml:"mode"` // ws or sim
		URL            string        `yaml:"url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		SimSeed        int64         `yaml:"sim_seed"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SnapshotTopic string   `yaml:"snapshot_topic"`
		OptionsTopic  string   `yaml:"options_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_MODE"); v != "" {
		c.Feed.Mode = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("UNDERLYINGS"); v != "" {
		c.Monitor.Underlyings = strings.Split(v, ",")
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("MONITOR_MAX_CONTRACTS"); v != "" {
		c.Monitor.MaxContracts = util.ParseIntDefault(v, c.Monitor.MaxContracts)
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse SIM_SEED: %w", err)
		}
		c.Feed.SimSeed = seed
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Monitor.Underlyings) == 0 {
		return fmt.Errorf("monitor.underlyings cannot be empty")
	}
	switch c.Feed.Mode {
	case "ws":
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url is required in ws mode")
		}
	case "sim":
	default:
		return fmt.Errorf("feed.mode must be 'ws' or 'sim', got '%s'", c.Feed.Mode)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
