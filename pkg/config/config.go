// Package config loads and validates benchmark configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (corpus, gold standard, index, extractor, scorer, and the optional
// Postgres, Redis, and Kafka sinks).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

// Config is the top-level benchmark configuration.
type Config struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Gold     GoldConfig     `yaml:"gold"`
	Index    IndexConfig    `yaml:"index"`
	Extract  ExtractConfig  `yaml:"extract"`
	Lemma    LemmaConfig    `yaml:"lemma"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CorpusConfig points at the zipped corpus and names the entry format.
type CorpusConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// GoldConfig points at the one-term-per-line gold standard.
type GoldConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig controls where the index lives and how candidates are
// generated at index time.
type IndexConfig struct {
	Home               string `yaml:"home"`
	Core               string `yaml:"core"`
	SegmentMaxSize     int64  `yaml:"segmentMaxSize"`
	CandidateMinTokens int    `yaml:"candidateMinTokens"`
	CandidateMaxTokens int    `yaml:"candidateMaxTokens"`
}

// ExtractConfig selects the ranking algorithm run against the index.
type ExtractConfig struct {
	Algorithm    string `yaml:"algorithm"`
	MinFrequency int64  `yaml:"minFrequency"`
}

// LemmaConfig optionally points at a word<TAB>lemma exception table.
type LemmaConfig struct {
	ExceptionsPath string `yaml:"exceptionsPath"`
}

// ScorerConfig holds the lexical matching rules and the rank cutoffs.
type ScorerConfig struct {
	UseLemmaMatching         bool  `yaml:"useLemmaMatching"`
	CaseSensitive            bool  `yaml:"caseSensitive"`
	RequireExactTermBoundary bool  `yaml:"requireExactTermBoundary"`
	MinTermLength            int   `yaml:"minTermLength"`
	MaxTermLength            int   `yaml:"maxTermLength"`
	MinTokenCount            int   `yaml:"minTokenCount"`
	MaxTokenCount            int   `yaml:"maxTokenCount"`
	Cutoffs                  []int `yaml:"cutoffs"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RunCompleted string `yaml:"runCompleted"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks the fields a benchmark run cannot start without.
func (c *Config) Validate() error {
	if c.Corpus.Path == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "corpus.path is required")
	}
	if c.Gold.Path == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "gold.path is required")
	}
	if c.Index.Home == "" || c.Index.Core == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "index.home and index.core are required")
	}
	switch c.Corpus.Format {
	case "acl-xml", "text":
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown corpus.format %q", c.Corpus.Format)
	}
	s := c.Scorer
	if s.MinTermLength < 0 || s.MinTokenCount < 0 || s.MaxTermLength < 0 || s.MaxTokenCount < 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "scorer length and token bounds must be non-negative")
	}
	if s.MaxTermLength > 0 && s.MinTermLength > s.MaxTermLength {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "scorer.minTermLength %d exceeds maxTermLength %d", s.MinTermLength, s.MaxTermLength)
	}
	if s.MaxTokenCount > 0 && s.MinTokenCount > s.MaxTokenCount {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "scorer.minTokenCount %d exceeds maxTokenCount %d", s.MinTokenCount, s.MaxTokenCount)
	}
	if c.Index.CandidateMinTokens < 1 || c.Index.CandidateMaxTokens < c.Index.CandidateMinTokens {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "invalid candidate token range %d-%d",
			c.Index.CandidateMinTokens, c.Index.CandidateMaxTokens)
	}
	return nil
}

// defaultConfig returns a Config matching the ACL RD-TEC benchmark settings.
func defaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Format: "acl-xml",
		},
		Index: IndexConfig{
			Home:               "testdata/index-home",
			Core:               "ACLRDTEC",
			SegmentMaxSize:     256 * 1024 * 1024,
			CandidateMinTokens: 1,
			CandidateMaxTokens: 5,
		},
		Extract: ExtractConfig{
			Algorithm:    "cvalue",
			MinFrequency: 2,
		},
		Scorer: ScorerConfig{
			UseLemmaMatching:         true,
			CaseSensitive:            false,
			RequireExactTermBoundary: true,
			MinTermLength:            2,
			MaxTermLength:            100,
			MinTokenCount:            1,
			MaxTokenCount:            10,
			Cutoffs: []int{
				50, 100, 300, 500, 800, 1000, 1500, 2000,
				3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "termbench",
			User:            "termbench",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "termbench-collector",
			Topics: KafkaTopics{
				RunCompleted: "benchmark.run-completed",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
			CacheTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// applyEnvOverrides reads TB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TB_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("TB_CORPUS_FORMAT"); v != "" {
		cfg.Corpus.Format = v
	}
	if v := os.Getenv("TB_GOLD_PATH"); v != "" {
		cfg.Gold.Path = v
	}
	if v := os.Getenv("TB_INDEX_HOME"); v != "" {
		cfg.Index.Home = v
	}
	if v := os.Getenv("TB_INDEX_CORE"); v != "" {
		cfg.Index.Core = v
	}
	if v := os.Getenv("TB_EXTRACT_ALGORITHM"); v != "" {
		cfg.Extract.Algorithm = v
	}
	if v := os.Getenv("TB_LEMMA_EXCEPTIONS_PATH"); v != "" {
		cfg.Lemma.ExceptionsPath = v
	}
	if v := os.Getenv("TB_SCORER_CUTOFFS"); v != "" {
		if cutoffs, err := parseInts(v); err == nil {
			cfg.Scorer.Cutoffs = cutoffs
		}
	}
	if v := os.Getenv("TB_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("TB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TB_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TB_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("TB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TB_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("TB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TB_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("TB_KAFKA_TOPIC_RUN_COMPLETED"); v != "" {
		cfg.Kafka.Topics.RunCompleted = v
	}
	if v := os.Getenv("TB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TB_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("TB_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func parseInts(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
