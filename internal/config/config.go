// Package config provides configuration for the indexer service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. It is loaded once in main and
// passed explicitly into each component's constructor.
type Config struct {
	NATS       NATSConfig       `mapstructure:"nats"`
	Lookup     LookupConfig     `mapstructure:"lookup"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Schema     SchemaConfig     `mapstructure:"schema"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NATSConfig holds queue transport settings. Topic and channel form a
// queue-group subscription; the channel is created by the broker on first
// subscribe.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Topic         string        `mapstructure:"topic"`
	Channel       string        `mapstructure:"channel"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// LookupConfig holds remote lookup gateway settings. Methods maps an entity
// type to the JSON-RPC method name exposed by the remote service.
type LookupConfig struct {
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Methods map[string]string `mapstructure:"methods"`
}

// OpenSearchConfig holds store connection and partitioning settings.
type OpenSearchConfig struct {
	URL          string `mapstructure:"url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Insecure     bool   `mapstructure:"insecure"`
	IndexPrefix  string `mapstructure:"index_prefix"`
	DocumentType string `mapstructure:"document_type"`
	ShardCount   int    `mapstructure:"shard_count"`
	ReplicaCount int    `mapstructure:"replica_count"`
}

// SchemaConfig controls event validation. File optionally points to a YAML
// schema definition overriding the built-in one.
type SchemaConfig struct {
	File         string `mapstructure:"file"`
	MaxKeys      int    `mapstructure:"max_keys"`
	ExcludedType string `mapstructure:"excluded_type"`
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the optional YAML file at path and from
// environment variables. All settings have defaults, so the service runs with
// no configuration present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INDEXER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.topic", "events")
	v.SetDefault("nats.channel", "indexer")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("lookup.url", "http://localhost:4040/rpc")
	v.SetDefault("lookup.timeout", "1s")
	v.SetDefault("lookup.methods", map[string]string{
		"attempt": "get_attempt",
		"course":  "get_course",
		"trainee": "get_trainee",
		"user":    "get_user",
	})

	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "admin")
	v.SetDefault("opensearch.insecure", true)
	v.SetDefault("opensearch.index_prefix", "events-")
	v.SetDefault("opensearch.document_type", "event")
	v.SetDefault("opensearch.shard_count", 1)
	v.SetDefault("opensearch.replica_count", 0)

	v.SetDefault("schema.file", "")
	v.SetDefault("schema.max_keys", 7)
	v.SetDefault("schema.excluded_type", "FOO")

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
