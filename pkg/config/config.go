package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables read on top of the optional .env file.
const (
	EnvConfigFile = "RECOMBMAP_CONFIG"
	EnvLogLevel   = "RECOMBMAP_LOG_LEVEL"
	EnvSeed       = "RECOMBMAP_SEED"
)

type ClusterConfig struct {
	MaxIterations int     `toml:"max_iterations"`
	Trials        int     `toml:"trials"`
	MinTaxa       int     `toml:"min_taxa"`
	MinNonMissing int     `toml:"min_non_missing"`
	MinCoverage   float64 `toml:"min_coverage"`
	Parent1       string  `toml:"parent1"`
	Parent2       string  `toml:"parent2"`
}

type CrossoverConfig struct {
	// "breakpoint" or "segment"
	Boundary string `toml:"boundary"`
}

type ImputeConfig struct {
	Interval       float64 `toml:"interval"`
	HapmapFormat   bool    `toml:"hapmap_format"`
	Nucleotides    bool    `toml:"nucleotides"`
	ReferenceTaxon string  `toml:"reference_taxon"`
	ExcludeFile    string  `toml:"exclude_file"`
}

type Config struct {
	LogLevel    string `toml:"log_level"`
	Seed        int64  `toml:"seed"`
	GeneticMap  string `toml:"genetic_map"`
	HaplotypeDB string `toml:"haplotype_db"`
	OutDir      string `toml:"output_dir"`

	Cluster   ClusterConfig   `toml:"cluster"`
	Crossover CrossoverConfig `toml:"crossover"`
	Impute    ImputeConfig    `toml:"impute"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		HaplotypeDB: "haplotypes.db",
		OutDir:      ".",
		Cluster: ClusterConfig{
			MaxIterations: 5,
			Trials:        5,
			MinTaxa:       10,
		},
		Crossover: CrossoverConfig{Boundary: "breakpoint"},
		Impute:    ImputeConfig{Interval: 1.0},
	}
}

// Load reads .env (if present), then the TOML file named by path or by
// RECOMBMAP_CONFIG, then the environment overrides. A missing .env is not an
// error; the returned bool reports whether one was found.
func Load(path string) (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, dotenv, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	if seed := os.Getenv(EnvSeed); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return nil, dotenv, fmt.Errorf("%s=%q: %w", EnvSeed, seed, err)
		}
		cfg.Seed = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}
	return cfg, dotenv, nil
}

func (c *Config) Validate() error {
	if c.Impute.Interval <= 0 {
		return fmt.Errorf("impute.interval must be positive, got %v", c.Impute.Interval)
	}
	switch c.Crossover.Boundary {
	case "breakpoint", "segment":
	default:
		return fmt.Errorf("crossover.boundary must be breakpoint or segment, got %q", c.Crossover.Boundary)
	}
	if c.Cluster.MinCoverage < 0 || c.Cluster.MinCoverage > 1 {
		return fmt.Errorf("cluster.min_coverage must be within [0, 1], got %v", c.Cluster.MinCoverage)
	}
	return nil
}
