package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	PRPC      PRPCConfig      `json:"prpc" yaml:"prpc"`
	Collector CollectorConfig `json:"collector" yaml:"collector"`
	Networks  []NetworkConfig `json:"networks" yaml:"networks"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	GeoIP     GeoIPConfig     `json:"geoip" yaml:"geoip"`
	MongoDB   MongoDBConfig   `json:"mongodb" yaml:"mongodb"`
	Discord   DiscordConfig   `json:"discord" yaml:"discord"`
	Alerts    AlertsConfig    `json:"alerts" yaml:"alerts"`
}

type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	Host           string   `json:"host" yaml:"host"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// PRPCConfig covers both the per-node pRPC endpoint and the network directories.
type PRPCConfig struct {
	DefaultPort     int `json:"default_port" yaml:"default_port"`
	Timeout         int `json:"timeout_seconds" yaml:"timeout_seconds"`
	RegistryTimeout int `json:"registry_timeout_seconds" yaml:"registry_timeout_seconds"`
}

type CollectorConfig struct {
	Interval     int `json:"interval_seconds" yaml:"interval_seconds"`
	InitialDelay int `json:"initial_delay_seconds" yaml:"initial_delay_seconds"`
	BatchSize    int `json:"batch_size" yaml:"batch_size"`
}

// NetworkConfig is one logical network and its directory endpoint.
type NetworkConfig struct {
	Name   string `json:"name" yaml:"name"`
	RPCURL string `json:"rpc_url" yaml:"rpc_url"`
}

type CacheConfig struct {
	TTL int `json:"ttl_seconds" yaml:"ttl_seconds"`
}

type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	UseTLS   bool   `json:"use_tls" yaml:"use_tls"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type MongoDBConfig struct {
	URI           string `json:"uri" yaml:"uri"`
	Database      string `json:"database" yaml:"database"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
}

type DiscordConfig struct {
	Token string `json:"token" yaml:"token"`
}

type AlertsConfig struct {
	WebhookTimeout int `json:"webhook_timeout_seconds" yaml:"webhook_timeout_seconds"`
	HistoryLimit   int `json:"history_limit" yaml:"history_limit"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		PRPC: PRPCConfig{
			DefaultPort:     6000,
			Timeout:         8,
			RegistryTimeout: 30,
		},
		Collector: CollectorConfig{
			Interval:     300,
			InitialDelay: 5,
			BatchSize:    10,
		},
		Networks: []NetworkConfig{},
		Cache: CacheConfig{
			TTL: 600,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Enabled: true,
		},
		MongoDB: MongoDBConfig{
			URI:           "mongodb://localhost:27017",
			Database:      "xandpulse",
			Enabled:       true,
			RetentionDays: 30,
		},
		Alerts: AlertsConfig{
			WebhookTimeout: 10,
			HistoryLimit:   1000,
		},
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.json"
	}
	return Load(configPath, os.Args[1:])
}

// Load applies defaults, the config file at path (if present), the environment and
// finally the command-line args, in that order.
func Load(path string, args []string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	loadEnv(cfg)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	_ = fs.Parse(args)

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadEnv(cfg *Config) {
	// Server configuration
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = p
		}
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = strings.Split(val, ",")
	}

	// PRPC configuration
	if val := os.Getenv("PRPC_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.PRPC.DefaultPort = p
		}
	}
	if val := os.Getenv("PRPC_TIMEOUT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.PRPC.Timeout = p
		}
	}
	if val := os.Getenv("REGISTRY_TIMEOUT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.PRPC.RegistryTimeout = p
		}
	}

	// Collector configuration
	if val := os.Getenv("COLLECT_INTERVAL"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Collector.Interval = p
		}
	}
	if val := os.Getenv("COLLECT_INITIAL_DELAY"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Collector.InitialDelay = p
		}
	}
	if val := os.Getenv("COLLECT_BATCH_SIZE"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Collector.BatchSize = p
		}
	}

	// NETWORKS=devnet=https://...,mainnet=https://...
	if val := os.Getenv("NETWORKS"); val != "" {
		cfg.Networks = parseNetworks(val)
	}

	if val := os.Getenv("CACHE_TTL"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Cache.TTL = p
		}
	}

	// Redis configuration
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = p
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		cfg.Redis.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("REDIS_USE_TLS"); val != "" {
		cfg.Redis.UseTLS = val == "true" || val == "1"
	}

	// GeoIP configuration
	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.GeoIP.DBPath = val
	}

	// MongoDB configuration
	if val := os.Getenv("MONGODB_URI"); val != "" {
		cfg.MongoDB.URI = val
	}
	if val := os.Getenv("MONGODB_DATABASE"); val != "" {
		cfg.MongoDB.Database = val
	}
	if val := os.Getenv("MONGODB_ENABLED"); val != "" {
		cfg.MongoDB.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("RETENTION_DAYS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.MongoDB.RetentionDays = p
		}
	}

	// Discord configuration
	if val := os.Getenv("DISCORD_BOT_TOKEN"); val != "" {
		cfg.Discord.Token = val
	}

	if val := os.Getenv("ALERT_WEBHOOK_TIMEOUT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Alerts.WebhookTimeout = p
		}
	}
}

func parseNetworks(val string) []NetworkConfig {
	var networks []NetworkConfig
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, _ := strings.Cut(part, "=")
		networks = append(networks, NetworkConfig{
			Name:   strings.TrimSpace(name),
			RPCURL: strings.TrimSpace(url),
		})
	}
	return networks
}

// Validate rejects configurations the collector cannot run with.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return errors.New("no networks configured")
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Name == "" || n.RPCURL == "" {
			return fmt.Errorf("network %d: name and rpc_url are required", i)
		}
		if seen[n.Name] {
			return fmt.Errorf("network %q configured twice", n.Name)
		}
		seen[n.Name] = true
	}
	if c.Collector.BatchSize <= 0 {
		return fmt.Errorf("collector batch_size must be positive, got %d", c.Collector.BatchSize)
	}
	if c.Collector.Interval <= 0 {
		return fmt.Errorf("collector interval_seconds must be positive, got %d", c.Collector.Interval)
	}
	if c.PRPC.Timeout <= 0 || c.PRPC.RegistryTimeout <= 0 {
		return errors.New("prpc timeouts must be positive")
	}
	if c.MongoDB.RetentionDays <= 0 {
		return fmt.Errorf("mongodb retention_days must be positive, got %d", c.MongoDB.RetentionDays)
	}
	return nil
}

// NetworkNames returns the configured network names in order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for _, n := range c.Networks {
		names = append(names, n.Name)
	}
	return names
}

// Helper methods for duration conversion
func (c *Config) PRPCTimeoutDuration() time.Duration {
	return time.Duration(c.PRPC.Timeout) * time.Second
}

func (c *Config) RegistryTimeoutDuration() time.Duration {
	return time.Duration(c.PRPC.RegistryTimeout) * time.Second
}

func (c *Config) CollectorIntervalDuration() time.Duration {
	return time.Duration(c.Collector.Interval) * time.Second
}

func (c *Config) InitialDelayDuration() time.Duration {
	return time.Duration(c.Collector.InitialDelay) * time.Second
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func (c *Config) RetentionDuration() time.Duration {
	return time.Duration(c.MongoDB.RetentionDays) * 24 * time.Hour
}

func (c *Config) WebhookTimeoutDuration() time.Duration {
	return time.Duration(c.Alerts.WebhookTimeout) * time.Second
}
