// Package config resolves the four-level configuration hierarchy for the
// core service: built-in defaults, YAML file, environment variables, and
// finally programmatic/CLI overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphConfig groups Brain Graph Store capacity and decay settings.
type GraphConfig struct {
	MaxNodes      int     `yaml:"maxNodes"`
	MaxEdges      int     `yaml:"maxEdges"`
	NodeMinScore  float64 `yaml:"nodeMinScore"`
	EdgeMinWeight float64 `yaml:"edgeMinWeight"`
	NodeHalfLifeH float64 `yaml:"nodeHalfLifeH"`
	EdgeHalfLifeH float64 `yaml:"edgeHalfLifeH"`
}

// MinerConfig groups Habitus Miner thresholds and windows.
type MinerConfig struct {
	WindowsSec        []int   `yaml:"windowsSec"`
	MinSupportA       int     `yaml:"minSupportA"`
	MinSupportB       int     `yaml:"minSupportB"`
	MinHits           int     `yaml:"minHits"`
	MinConfidence     float64 `yaml:"minConfidence"`
	MinConfidenceLB   float64 `yaml:"minConfidenceLB"`
	MinLift           float64 `yaml:"minLift"`
	MinLeverage       float64 `yaml:"minLeverage"`
	MaxRules          int     `yaml:"maxRules"`
	CooldownSec       int     `yaml:"cooldownSec"`
	DebounceSec       int     `yaml:"debounceSec"`
	ThrottleSec       int     `yaml:"throttleSec"`
	ExcludeSelfRules  bool    `yaml:"excludeSelfRules"`
	ExcludeSameEntity bool    `yaml:"excludeSameEntity"`
}

// NeuronConfig groups Neuron Manager evaluation settings.
type NeuronConfig struct {
	MoodHistory int `yaml:"moodHistory"`
}

// DispatcherConfig groups in-process pub/sub queue settings.
type DispatcherConfig struct {
	TelemetryQueueDepth int `yaml:"telemetryQueueDepth"`
	LifecycleQueueDepth int `yaml:"lifecycleQueueDepth"`
}

// DaemonConfig groups background daemon interval settings.
type DaemonConfig struct {
	DecayInterval   time.Duration `yaml:"decayInterval"`
	PruneInterval   time.Duration `yaml:"pruneInterval"`
	MineInterval    time.Duration `yaml:"mineInterval"`
	PersistInterval time.Duration `yaml:"persistInterval"`
}

// WorkerConfig groups the bounded blocking-operation worker pool settings.
type WorkerConfig struct {
	PoolSize int `yaml:"poolSize"`
}

// StorageConfig groups persistence settings.
type StorageConfig struct {
	DataPath                   string        `yaml:"dataPath"`
	WALEnabled                 bool          `yaml:"walEnabled"`
	FsyncPolicy                string        `yaml:"fsyncPolicy"`
	FsyncInterval              time.Duration `yaml:"fsyncInterval"`
	ChecksumValidationInterval time.Duration `yaml:"checksumValidationInterval"`
	StartupRepair              bool          `yaml:"startupRepair"`
}

// ProjectionConfig groups the optional async SQL graph projection settings.
type ProjectionConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// LoggingConfig groups logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration object for the core service.
type Config struct {
	Graph      GraphConfig      `yaml:"graph"`
	Miner      MinerConfig      `yaml:"miner"`
	Neurons    NeuronConfig     `yaml:"neurons"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Daemons    DaemonConfig     `yaml:"daemons"`
	Worker     WorkerConfig     `yaml:"worker"`
	Storage    StorageConfig    `yaml:"storage"`
	Projection ProjectionConfig `yaml:"projection"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DefaultConfig returns a Config populated with the defaults named in §6.5.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			MaxNodes:      500,
			MaxEdges:      1500,
			NodeMinScore:  0.1,
			EdgeMinWeight: 0.1,
			NodeHalfLifeH: 24,
			EdgeHalfLifeH: 12,
		},
		Miner: MinerConfig{
			WindowsSec:        []int{30, 120, 600, 3600},
			MinSupportA:       20,
			MinSupportB:       20,
			MinHits:           10,
			MinConfidence:     0.5,
			MinConfidenceLB:   0.3,
			MinLift:           1.2,
			MinLeverage:       0.05,
			MaxRules:          200,
			CooldownSec:       2,
			DebounceSec:       120,
			ThrottleSec:       1800,
			ExcludeSelfRules:  true,
			ExcludeSameEntity: false,
		},
		Neurons: NeuronConfig{
			MoodHistory: 10,
		},
		Dispatcher: DispatcherConfig{
			TelemetryQueueDepth: 256,
			LifecycleQueueDepth: 64,
		},
		Daemons: DaemonConfig{
			DecayInterval:   1 * time.Minute,
			PruneInterval:   10 * time.Minute,
			MineInterval:    30 * time.Minute,
			PersistInterval: 1 * time.Minute,
		},
		Worker: WorkerConfig{
			PoolSize: 4,
		},
		Storage: StorageConfig{
			DataPath:                   "./data",
			WALEnabled:                 true,
			FsyncPolicy:                "interval",
			FsyncInterval:              1 * time.Second,
			ChecksumValidationInterval: 0,
			StartupRepair:              true,
		},
		Projection: ProjectionConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigFromFile reads a YAML configuration file and merges it on top of
// the built-in defaults. Fields absent from the file retain their defaults.
func ConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigFromEnv applies COPILOT_*-prefixed environment variable overrides.
// If cfg is nil a new default Config is created first.
func ConfigFromEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	setEnvInt("COPILOT_GRAPH_MAX_NODES", &cfg.Graph.MaxNodes)
	setEnvInt("COPILOT_GRAPH_MAX_EDGES", &cfg.Graph.MaxEdges)
	setEnvFloat("COPILOT_GRAPH_NODE_MIN_SCORE", &cfg.Graph.NodeMinScore)
	setEnvFloat("COPILOT_GRAPH_EDGE_MIN_WEIGHT", &cfg.Graph.EdgeMinWeight)
	setEnvFloat("COPILOT_GRAPH_NODE_HALF_LIFE_H", &cfg.Graph.NodeHalfLifeH)
	setEnvFloat("COPILOT_GRAPH_EDGE_HALF_LIFE_H", &cfg.Graph.EdgeHalfLifeH)

	setEnvCSVInts("COPILOT_MINER_WINDOWS_SEC", &cfg.Miner.WindowsSec)
	setEnvInt("COPILOT_MINER_MIN_SUPPORT_A", &cfg.Miner.MinSupportA)
	setEnvInt("COPILOT_MINER_MIN_SUPPORT_B", &cfg.Miner.MinSupportB)
	setEnvInt("COPILOT_MINER_MIN_HITS", &cfg.Miner.MinHits)
	setEnvFloat("COPILOT_MINER_MIN_CONFIDENCE", &cfg.Miner.MinConfidence)
	setEnvFloat("COPILOT_MINER_MIN_CONFIDENCE_LB", &cfg.Miner.MinConfidenceLB)
	setEnvFloat("COPILOT_MINER_MIN_LIFT", &cfg.Miner.MinLift)
	setEnvFloat("COPILOT_MINER_MIN_LEVERAGE", &cfg.Miner.MinLeverage)
	setEnvInt("COPILOT_MINER_MAX_RULES", &cfg.Miner.MaxRules)
	setEnvInt("COPILOT_MINER_COOLDOWN_SEC", &cfg.Miner.CooldownSec)
	setEnvInt("COPILOT_MINER_DEBOUNCE_SEC", &cfg.Miner.DebounceSec)
	setEnvInt("COPILOT_MINER_THROTTLE_SEC", &cfg.Miner.ThrottleSec)
	setEnvBool("COPILOT_MINER_EXCLUDE_SELF_RULES", &cfg.Miner.ExcludeSelfRules)
	setEnvBool("COPILOT_MINER_EXCLUDE_SAME_ENTITY", &cfg.Miner.ExcludeSameEntity)

	setEnvInt("COPILOT_NEURONS_MOOD_HISTORY", &cfg.Neurons.MoodHistory)

	setEnvStr("COPILOT_DATA_PATH", &cfg.Storage.DataPath)
	setEnvBool("COPILOT_WAL_ENABLED", &cfg.Storage.WALEnabled)
	setEnvStr("COPILOT_FSYNC_POLICY", &cfg.Storage.FsyncPolicy)
	setEnvDuration("COPILOT_FSYNC_INTERVAL", &cfg.Storage.FsyncInterval)
	setEnvDuration("COPILOT_CHECKSUM_VALIDATION_INTERVAL", &cfg.Storage.ChecksumValidationInterval)
	setEnvBool("COPILOT_STARTUP_REPAIR", &cfg.Storage.StartupRepair)

	setEnvDuration("COPILOT_DECAY_INTERVAL", &cfg.Daemons.DecayInterval)
	setEnvDuration("COPILOT_PRUNE_INTERVAL", &cfg.Daemons.PruneInterval)
	setEnvDuration("COPILOT_MINE_INTERVAL", &cfg.Daemons.MineInterval)
	setEnvDuration("COPILOT_PERSIST_INTERVAL", &cfg.Daemons.PersistInterval)

	setEnvInt("COPILOT_WORKER_POOL_SIZE", &cfg.Worker.PoolSize)

	setEnvBool("COPILOT_PROJECTION_ENABLED", &cfg.Projection.Enabled)
	setEnvStr("COPILOT_PROJECTION_DSN", &cfg.Projection.DSN)

	setEnvStr("COPILOT_LOG_LEVEL", &cfg.Logging.Level)

	return cfg
}

// LoadConfig implements the full hierarchy: defaults -> YAML -> env. The
// caller applies CLI overrides afterward via ApplyCLIOverrides.
func LoadConfig(configPath string) (*Config, error) {
	var cfg *Config
	if configPath != "" {
		var err error
		cfg, err = ConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = DefaultConfig()
	}
	return ConfigFromEnv(cfg), nil
}

// Validate performs structural validation, returning the first invalid
// field encountered as a descriptive error. It also logs soft warnings
// for values that are legal but likely misconfigured, in the teacher's
// style.
func (c *Config) Validate() error {
	if c.Graph.MaxNodes < 1 {
		return fmt.Errorf("graph.maxNodes must be >= 1, got %d", c.Graph.MaxNodes)
	}
	if c.Graph.MaxEdges < 1 {
		return fmt.Errorf("graph.maxEdges must be >= 1, got %d", c.Graph.MaxEdges)
	}
	if c.Graph.NodeMinScore < 0 || c.Graph.NodeMinScore > 1 {
		return fmt.Errorf("graph.nodeMinScore must be in [0,1], got %f", c.Graph.NodeMinScore)
	}
	if c.Graph.EdgeMinWeight < 0 || c.Graph.EdgeMinWeight > 1 {
		return fmt.Errorf("graph.edgeMinWeight must be in [0,1], got %f", c.Graph.EdgeMinWeight)
	}
	if c.Graph.NodeHalfLifeH <= 0 {
		return fmt.Errorf("graph.nodeHalfLifeH must be > 0")
	}
	if c.Graph.EdgeHalfLifeH <= 0 {
		return fmt.Errorf("graph.edgeHalfLifeH must be > 0")
	}

	if len(c.Miner.WindowsSec) == 0 {
		return fmt.Errorf("miner.windowsSec must not be empty")
	}
	for _, w := range c.Miner.WindowsSec {
		if w <= 0 {
			return fmt.Errorf("miner.windowsSec entries must be > 0, got %d", w)
		}
	}
	if c.Miner.MinSupportA < 1 || c.Miner.MinSupportB < 1 {
		return fmt.Errorf("miner.minSupportA/B must be >= 1")
	}
	if c.Miner.MaxRules < 1 {
		return fmt.Errorf("miner.maxRules must be >= 1")
	}
	if c.Miner.CooldownSec < 0 || c.Miner.DebounceSec < 0 {
		return fmt.Errorf("miner.cooldownSec/debounceSec must be >= 0")
	}
	if c.Miner.ThrottleSec < 0 {
		return fmt.Errorf("miner.throttleSec must be >= 0")
	}
	minWindow := c.Miner.WindowsSec[0]
	for _, w := range c.Miner.WindowsSec {
		if w < minWindow {
			minWindow = w
		}
	}
	if c.Miner.ThrottleSec > 0 && c.Miner.ThrottleSec < minWindow {
		fmt.Printf("⚠ WARNING: miner.throttleSec=%d is smaller than the smallest mining window (%ds) — mining runs may overlap their own window\n", c.Miner.ThrottleSec, minWindow)
	}

	if c.Neurons.MoodHistory < 1 {
		return fmt.Errorf("neurons.moodHistory must be >= 1")
	}

	policy := strings.ToLower(strings.TrimSpace(c.Storage.FsyncPolicy))
	if policy != "always" && policy != "interval" && policy != "off" {
		return fmt.Errorf("storage.fsyncPolicy must be one of always|interval|off")
	}
	c.Storage.FsyncPolicy = policy
	if policy == "interval" && c.Storage.FsyncInterval <= 0 {
		return fmt.Errorf("storage.fsyncInterval must be > 0 when storage.fsyncPolicy is interval")
	}
	if c.Storage.DataPath == "" {
		return fmt.Errorf("storage.dataPath must not be empty")
	}

	if c.Worker.PoolSize < 1 || c.Worker.PoolSize > 4 {
		return fmt.Errorf("worker.poolSize must be in [1,4], got %d", c.Worker.PoolSize)
	}

	if c.Daemons.DecayInterval <= 0 || c.Daemons.PruneInterval <= 0 ||
		c.Daemons.MineInterval <= 0 || c.Daemons.PersistInterval <= 0 {
		return fmt.Errorf("all daemons.* intervals must be > 0")
	}
	if c.Daemons.PersistInterval < 5*time.Second {
		fmt.Printf("⚠ WARNING: daemons.persistInterval=%v is very aggressive — this will increase disk I/O\n", c.Daemons.PersistInterval)
	}

	if c.Projection.Enabled && c.Projection.DSN == "" {
		return fmt.Errorf("projection.dsn must be set when projection.enabled is true")
	}

	return nil
}

// CLIOverrides carries optional values set via command-line flags. Pointer
// fields are nil when the flag was not explicitly provided.
type CLIOverrides struct {
	ConfigPath   *string
	DataPath     *string
	PoolSize     *int
	LogLevel     *string
	ThrottleSec  *int
	MineInterval *time.Duration
}

// ApplyCLIOverrides patches the Config with any explicitly-set CLI flags.
func (c *Config) ApplyCLIOverrides(o *CLIOverrides) {
	if o == nil {
		return
	}
	if o.DataPath != nil {
		c.Storage.DataPath = *o.DataPath
	}
	if o.PoolSize != nil {
		c.Worker.PoolSize = *o.PoolSize
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.ThrottleSec != nil {
		c.Miner.ThrottleSec = *o.ThrottleSec
	}
	if o.MineInterval != nil {
		c.Daemons.MineInterval = *o.MineInterval
	}
}

func setEnvStr(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setEnvBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func setEnvInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setEnvFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func setEnvDuration(key string, target *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

func setEnvCSVInts(key string, target *[]int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	if len(out) > 0 {
		*target = out
	}
}
