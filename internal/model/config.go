package model

import "time"

// Config holds every tunable of intralign. Thresholds are documented defaults,
// not authoritative values; override them per corpus in the config file.
type Config struct {
	Alignment   AlignmentConfig   `yaml:"alignment" mapstructure:"alignment"`
	Detection   DetectionConfig   `yaml:"detection" mapstructure:"detection"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Salience    SalienceConfig    `yaml:"salience" mapstructure:"salience"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// AlignmentConfig controls the similarity cutoffs per level
type AlignmentConfig struct {
	ParagraphThreshold float64 `yaml:"paragraph_threshold" mapstructure:"paragraph_threshold"`
	SentenceThreshold  float64 `yaml:"sentence_threshold" mapstructure:"sentence_threshold"`
	PhraseThreshold    float64 `yaml:"phrase_threshold" mapstructure:"phrase_threshold"`
	FragmentRatio      float64 `yaml:"fragment_ratio" mapstructure:"fragment_ratio"` // Fraction of the threshold an unaligned target needs to count as a fragment
}

// DetectionConfig controls the cascade
type DetectionConfig struct {
	IncludeMicroSpans bool `yaml:"include_micro_spans" mapstructure:"include_micro_spans"`
}

// ScoringConfig controls the confidence engine
type ScoringConfig struct {
	ProfilesFile  string             `yaml:"profiles_file,omitempty" mapstructure:"profiles_file"`
	MinConfidence map[string]float64 `yaml:"min_confidence,omitempty" mapstructure:"min_confidence"` // Per-code override of the profile minimum
}

// SalienceConfig controls lexical salience ranking
type SalienceConfig struct {
	Method    string `yaml:"method" mapstructure:"method"` // frequency, keyword
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // local, openai, ollama
	Model             string  `yaml:"model,omitempty" mapstructure:"model"`
	APIKey            string  `yaml:"-" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // Seconds
	Dimensions        int     `yaml:"dimensions" mapstructure:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the embedding vector cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StorageMode selects the persistence topology
type StorageMode string

const (
	StorageFS       StorageMode = "fs"
	StorageSQLite   StorageMode = "sqlite"
	StorageDual     StorageMode = "dual"
	StorageFallback StorageMode = "fallback"
)

// StorageConfig controls the annotation store backends
type StorageConfig struct {
	Mode       StorageMode `yaml:"mode" mapstructure:"mode"`
	Dir        string      `yaml:"dir" mapstructure:"dir"`
	SQLitePath string      `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// InputConfig bounds accepted input
type InputConfig struct {
	MaxBytes int `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// ConcurrencyConfig controls batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console, json
	Output string `yaml:"output" mapstructure:"output"` // stderr, stdout or a file path
}

// DefaultConfig returns the documented defaults
func DefaultConfig() *Config {
	return &Config{
		Alignment: AlignmentConfig{
			ParagraphThreshold: 0.50,
			SentenceThreshold:  0.45,
			PhraseThreshold:    0.40,
			FragmentRatio:      0.75,
		},
		Detection: DetectionConfig{
			IncludeMicroSpans: false,
		},
		Salience: SalienceConfig{
			Method:    "frequency",
			CacheSize: 256,
		},
		Embedding: EmbeddingConfig{
			Provider:          "local",
			Timeout:           30,
			Dimensions:        4096,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".intralign/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Mode:       StorageFallback,
			Dir:        ".intralign/sessions",
			SQLitePath: ".intralign/annotations.db",
		},
		Input: InputConfig{
			MaxBytes: 1_000_000,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}
