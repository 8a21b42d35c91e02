// Package main provides the pick'em optimizer command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pickem-optimizer/internal/cache"
	"github.com/yourusername/pickem-optimizer/internal/config"
	"github.com/yourusername/pickem-optimizer/internal/database"
	"github.com/yourusername/pickem-optimizer/internal/engine"
	"github.com/yourusername/pickem-optimizer/internal/logger"
	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/normalizer"
	"github.com/yourusername/pickem-optimizer/internal/orchestrator"
	"github.com/yourusername/pickem-optimizer/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	inputFile  string
	cfg        *config.Config
	appLog     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "optimizer",
	Short:         "Pick'em scenario optimizer",
	Long:          `Generates, simulates and ranks pick'em scenarios from match win probabilities.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLogger(cfg.App.LogLevel)
		// stdout carries command output
		appLog.SetOutput(os.Stderr)
		metrics.InitRegistry()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "optimizer %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(versionCmd, quickCmd, resimulateCmd, submitCmd, statusCmd, resultCmd, listCmd, overrideCmd, ingestCmd, cacheCmd, workerCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(config.ResolvePath(configFile))
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return config.ValidateEnvironment(cfg)
}

// deps holds what a command needs; close releases it.
type deps struct {
	service *orchestrator.JobService
	db      *database.DB
	checks  map[string]func(context.Context) error
	closers []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// setupDependencies builds the engine and job service. Commands that never
// touch persisted jobs pass withDB=false.
func setupDependencies(ctx context.Context, withDB bool) (*deps, error) {
	d := &deps{checks: make(map[string]func(context.Context) error)}

	simCache, err := buildCache(ctx, d)
	if err != nil {
		d.close()
		return nil, err
	}

	eng := engine.New(engine.Options{
		Simulation:  cfg.SimulationConfig(),
		Constraints: cfg.Engine.Constraints,
		TargetScore: cfg.Engine.TargetScore,
		Cache:       simCache,
		Logger:      appLog,
	})

	var jobs repository.JobRepository
	var matches repository.MatchRepository
	if withDB {
		d.db, err = database.Initialize(ctx, cfg, appLog)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		d.closers = append(d.closers, d.db.Close)
		d.checks["database"] = d.db.HealthCheck

		repos, err := repository.NewRepositories(d.db)
		if err != nil {
			d.close()
			return nil, err
		}
		jobs, matches = repos.Job, repos.Match
	}

	d.service = orchestrator.NewJobService(jobs, matches, eng, normalizer.New(cfg.Engine.ConsensusSource), orchestrator.Options{
		Timeout:             cfg.JobTimeout(),
		EstimatedDuration:   secondsDuration(cfg.Jobs.EstimatedDurationSeconds),
		MaxConcurrent:       cfg.Jobs.MaxConcurrent,
		DefaultListLimit:    cfg.Jobs.DefaultListLimit,
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		Logger:              appLog,
	})
	return d, nil
}

func buildCache(ctx context.Context, d *deps) (cache.SimulationCache, error) {
	switch cfg.Engine.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.CacheTTL(), cfg.Engine.Cache.MaxSize), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.closers = append(d.closers, func() { _ = client.Close() })
		d.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return cache.NewRedisCache(client, cfg.CacheTTL(), appLog), nil
	default:
		return nil, nil
	}
}

func readInput(into any) error {
	var r io.Reader = os.Stdin
	if inputFile != "" && inputFile != "-" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
