package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ThreadConfig holds the engine endpoints serving one execution thread.
type ThreadConfig struct {
	Thread   uint8    `yaml:"thread"`
	NodeURLs []string `yaml:"nodes"`
}

// Config holds the event collector configuration.
type Config struct {
	// Engine feed endpoints, one entry per execution thread.
	Threads []ThreadConfig `yaml:"threads"`

	// NATS configuration
	NatsURL     string `yaml:"nats_url"`
	NatsStream  string `yaml:"nats_stream"`
	NatsSubject string `yaml:"nats_subject"`

	// Redis configuration (dedupe cache); empty selects the in-memory cache
	RedisURL string `yaml:"redis_url"`

	// DuckDB archive location; empty disables archiving
	ArchivePath string `yaml:"archive_path"`

	// Retention tuning
	DedupeTTL  time.Duration `yaml:"dedupe_ttl"`
	PruneDepth uint64        `yaml:"prune_depth"` // periods kept in the pool

	// Retry configuration
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load reads the YAML config file when it exists and falls back to
// environment variables otherwise.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.applyDefaults()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	threadsStr := os.Getenv("SCE_THREADS")
	if threadsStr == "" {
		return nil, fmt.Errorf("SCE_THREADS is required (comma-separated list of thread numbers)")
	}

	threadNames := strings.Split(threadsStr, ",")
	threads := make([]ThreadConfig, 0, len(threadNames))

	for _, name := range threadNames {
		name = strings.TrimSpace(name)
		thread, err := strconv.ParseUint(name, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid thread number %q in SCE_THREADS", name)
		}

		prefix := fmt.Sprintf("SCE_THREAD_%d", thread)
		nodesStr := os.Getenv(prefix + "_NODES")
		if nodesStr == "" {
			return nil, fmt.Errorf("%s_NODES is required", prefix)
		}
		nodes := strings.Split(nodesStr, ",")
		for i := range nodes {
			nodes[i] = strings.TrimSpace(nodes[i])
		}

		threads = append(threads, ThreadConfig{
			Thread:   uint8(thread),
			NodeURLs: nodes,
		})
	}

	cfg := &Config{
		Threads:        threads,
		NatsURL:        getEnvWithDefault("SCE_NATS_URL", "nats://localhost:4222"),
		NatsStream:     getEnvWithDefault("SCE_NATS_STREAM", "SC_EVENTS"),
		NatsSubject:    getEnvWithDefault("SCE_NATS_SUBJECT", "sc.events"),
		RedisURL:       os.Getenv("SCE_REDIS_URL"),
		ArchivePath:    os.Getenv("SCE_ARCHIVE_PATH"),
		DedupeTTL:      getEnvDuration("SCE_DEDUPE_TTL", 24*time.Hour),
		PruneDepth:     getEnvUint("SCE_PRUNE_DEPTH", 1000),
		RetryDelay:     getEnvDuration("SCE_RETRY_DELAY", 5*time.Second),
		RequestTimeout: getEnvDuration("SCE_REQUEST_TIMEOUT", 10*time.Second),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NatsURL == "" {
		c.NatsURL = "nats://localhost:4222"
	}
	if c.NatsStream == "" {
		c.NatsStream = "SC_EVENTS"
	}
	if c.NatsSubject == "" {
		c.NatsSubject = "sc.events"
	}
	if c.DedupeTTL == 0 {
		c.DedupeTTL = 24 * time.Hour
	}
	if c.PruneDepth == 0 {
		c.PruneDepth = 1000
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if len(c.Threads) == 0 {
		return fmt.Errorf("at least one thread must be configured")
	}
	seen := make(map[uint8]bool, len(c.Threads))
	for _, t := range c.Threads {
		if seen[t.Thread] {
			return fmt.Errorf("thread %d configured twice", t.Thread)
		}
		seen[t.Thread] = true
		if len(t.NodeURLs) == 0 {
			return fmt.Errorf("thread %d has no nodes", t.Thread)
		}
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
