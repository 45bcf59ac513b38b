package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the environment-driven configuration shared by the batch command
// and the HTTP service.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Database struct {
		Type string `env:"DB_TYPE" envDefault:"memory"`
		DSN  string `env:"DB_DSN"`
	}
	Optimization Optimization
	Fitness      Fitness
}

// Optimization configures the genetic search.
type Optimization struct {
	WorkerCount           int           `env:"OPT_WORKER_COUNT" envDefault:"1"`
	PopulationMin         int           `env:"OPT_POPULATION_MIN" envDefault:"50"`
	PopulationMax         int           `env:"OPT_POPULATION_MAX" envDefault:"100"`
	MaxGenerations        int           `env:"OPT_MAX_GENERATIONS" envDefault:"0"`
	StagnationGenerations int           `env:"OPT_STAGNATION_GENERATIONS" envDefault:"500"`
	MaxDuration           time.Duration `env:"OPT_MAX_DURATION" envDefault:"1m"`
	CrossoverProbability  float64       `env:"OPT_CROSSOVER_PROBABILITY" envDefault:"0.75"`
	MutationProbability   float64       `env:"OPT_MUTATION_PROBABILITY" envDefault:"0.1"`
	EliteCount            int           `env:"OPT_ELITE_COUNT" envDefault:"1"`
	Seed                  int64         `env:"OPT_SEED" envDefault:"0"`
	Seeding               string        `env:"OPT_SEEDING" envDefault:"random"`
	Mutation              string        `env:"OPT_MUTATION" envDefault:"reverse"`
	Selection             string        `env:"OPT_SELECTION" envDefault:"elite"`
	TournamentSize        int           `env:"OPT_TOURNAMENT_SIZE" envDefault:"3"`
}

// Fitness configures the tour evaluator.
type Fitness struct {
	Metric      string  `env:"FITNESS_METRIC" envDefault:"euclidean"`
	FieldWeight float64 `env:"FITNESS_FIELD_WEIGHT" envDefault:"1.0"`
	Scale       string  `env:"FITNESS_SCALE" envDefault:"linear"`
	ScaleFactor float64 `env:"FITNESS_SCALE_FACTOR" envDefault:"2.4"`
	ScaleExpr   string  `env:"FITNESS_SCALE_EXPR"`
}

const defaultSQLiteDSN = "file:data/tourfit.db?cache=shared"

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	if cfg.Database.DSN == "" && cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll("data", 0o755); err != nil {
			return nil, err
		}
		cfg.Database.DSN = defaultSQLiteDSN
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting. Names that select an
// implementation (metric, scale, mutation) are checked where they are built.
func (c *Config) Validate() error {
	o := c.Optimization
	switch {
	case o.PopulationMin < 2:
		return fmt.Errorf("OPT_POPULATION_MIN must be at least 2, got %d", o.PopulationMin)
	case o.PopulationMax < o.PopulationMin:
		return fmt.Errorf("OPT_POPULATION_MAX (%d) must not be below OPT_POPULATION_MIN (%d)", o.PopulationMax, o.PopulationMin)
	case o.CrossoverProbability < 0 || o.CrossoverProbability > 1:
		return fmt.Errorf("OPT_CROSSOVER_PROBABILITY must be in [0, 1], got %v", o.CrossoverProbability)
	case o.MutationProbability < 0 || o.MutationProbability > 1:
		return fmt.Errorf("OPT_MUTATION_PROBABILITY must be in [0, 1], got %v", o.MutationProbability)
	case o.EliteCount < 0 || o.EliteCount >= o.PopulationMin:
		return fmt.Errorf("OPT_ELITE_COUNT must be in [0, %d), got %d", o.PopulationMin, o.EliteCount)
	case o.MaxGenerations < 0 || o.StagnationGenerations < 0 || o.MaxDuration < 0:
		return fmt.Errorf("termination limits must not be negative")
	case o.MaxGenerations == 0 && o.StagnationGenerations == 0 && o.MaxDuration == 0:
		return fmt.Errorf("at least one of OPT_MAX_GENERATIONS, OPT_STAGNATION_GENERATIONS, OPT_MAX_DURATION must be set")
	case o.WorkerCount < 1:
		return fmt.Errorf("OPT_WORKER_COUNT must be at least 1, got %d", o.WorkerCount)
	}

	switch strings.ToLower(c.Database.Type) {
	case "memory":
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown DB_TYPE %q", c.Database.Type)
	}

	if c.Fitness.FieldWeight < 0 {
		return fmt.Errorf("FITNESS_FIELD_WEIGHT must not be negative, got %v", c.Fitness.FieldWeight)
	}
	if strings.EqualFold(c.Fitness.Scale, "expr") && c.Fitness.ScaleExpr == "" {
		return fmt.Errorf("FITNESS_SCALE_EXPR is required when FITNESS_SCALE=expr")
	}
	return nil
}

// EnsureDataDir creates the parent directory of a file: DSN such as
// file:data/tourfit.db so SQLite can create the database.
func EnsureDataDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
