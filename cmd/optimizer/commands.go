package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/pickem-optimizer/internal/cache"
	"github.com/yourusername/pickem-optimizer/internal/engine"
	"github.com/yourusername/pickem-optimizer/internal/models"
	"github.com/yourusername/pickem-optimizer/internal/normalizer"
	"github.com/yourusername/pickem-optimizer/internal/orchestrator"
)

var (
	runNow      bool
	listUser    string
	listStatus  string
	listLimit   int
	overrideBy  string
	overrideVal string
)

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Optimize a request synchronously",
	Long:  `Reads an optimization request (matches plus probabilities) as JSON and prints ranked scenarios.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req engine.Request
		if err := readInput(&req); err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.close()

		result, err := d.service.Quick(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeOutput(cmd, result)
	},
}

var resimulateCmd = &cobra.Command{
	Use:   "resimulate",
	Short: "Re-run simulation and ranking for existing scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req engine.ResimulateRequest
		if err := readInput(&req); err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.close()

		result, err := d.service.Resimulate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeOutput(cmd, result)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an optimization job",
	Long:  `Persists a job for the worker. With --run the job is executed immediately in this process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req orchestrator.JobRequest
		if err := readInput(&req); err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		job, err := d.service.Submit(cmd.Context(), req)
		if err != nil {
			if job != nil {
				_ = writeOutput(cmd, job)
			}
			return err
		}
		if runNow {
			// A failed run is recorded on the job; report the stored state.
			if runErr := d.service.Run(cmd.Context(), job.ID); runErr != nil {
				appLog.WithError(runErr).WithField("job_id", job.ID).Warn("Job did not complete")
			}
			view, err := d.service.Status(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			return writeOutput(cmd, view)
		}
		return writeOutput(cmd, job)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's status and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		view, err := d.service.Status(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeOutput(cmd, view)
	},
}

var resultCmd = &cobra.Command{
	Use:   "result <job-id>",
	Short: "Print the result of a completed job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		result, err := d.service.Result(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeOutput(cmd, result)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listUser == "" {
			return fmt.Errorf("--user is required")
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		jobs, err := d.service.ListByUser(cmd.Context(), listUser, models.JobStatus(listStatus), listLimit)
		if err != nil {
			return err
		}
		return writeOutput(cmd, jobs)
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override <match-id>",
	Short: "Set or clear a match's manual safe flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var isSafe *bool
		if overrideVal != "clear" {
			v, err := strconv.ParseBool(overrideVal)
			if err != nil {
				return fmt.Errorf("--safe must be true, false or clear: %w", err)
			}
			isSafe = &v
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		return d.service.SetOverride(cmd.Context(), args[0], isSafe, overrideBy)
	},
}

// ingestBatch is one match's odds in ingest input. Either field may be absent.
type ingestBatch struct {
	MatchID string                      `json:"match_id"`
	Quotes  []normalizer.BookmakerQuote `json:"bookmakers,omitempty"`
	Elo     *eloRatings                 `json:"elo,omitempty"`
}

type eloRatings struct {
	TeamA float64 `json:"team_a"`
	TeamB float64 `json:"team_b"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store bookmaker odds, Elo ratings and their consensus",
	Long:  `Stores each match's odds. Storing a new consensus probability clears the match's manual override.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var batches []ingestBatch
		if err := readInput(&batches); err != nil {
			return err
		}
		d, err := setupDependencies(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.close()

		stored := make([]models.OddsObservation, 0, len(batches))
		for _, b := range batches {
			if len(b.Quotes) == 0 && b.Elo == nil {
				return fmt.Errorf("match %s: no bookmakers or elo ratings", b.MatchID)
			}
			if len(b.Quotes) > 0 {
				obs, err := d.service.IngestQuotes(cmd.Context(), b.MatchID, b.Quotes)
				if err != nil {
					return err
				}
				stored = append(stored, obs)
			}
			if b.Elo != nil {
				obs, err := d.service.IngestElo(cmd.Context(), b.MatchID, b.Elo.TeamA, b.Elo.TeamB)
				if err != nil {
					return err
				}
				stored = append(stored, obs)
			}
		}
		return writeOutput(cmd, stored)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the simulation cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Delete every cached simulation result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Engine.Cache.Backend != "redis" {
			return fmt.Errorf("cache backend %q is per-process; nothing to flush", cfg.Engine.Cache.Backend)
		}
		d := &deps{checks: make(map[string]func(context.Context) error)}
		defer d.close()

		simCache, err := buildCache(cmd.Context(), d)
		if err != nil {
			return err
		}
		deleted, err := simCache.(*cache.RedisCache).Flush(cmd.Context())
		if err != nil {
			return err
		}
		return writeOutput(cmd, map[string]int{"deleted_keys": deleted})
	},
}

func parseJobID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", models.ErrInvalidID, err)
	}
	return id, nil
}

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func init() {
	for _, c := range []*cobra.Command{quickCmd, resimulateCmd, submitCmd, ingestCmd} {
		c.Flags().StringVarP(&inputFile, "input", "i", "-", "JSON input file, - for stdin")
	}
	submitCmd.Flags().BoolVar(&runNow, "run", false, "Run the job in this process after submitting")

	listCmd.Flags().StringVar(&listUser, "user", "", "User ID")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum jobs to list (default from config)")

	overrideCmd.Flags().StringVar(&overrideVal, "safe", "clear", "true, false or clear")
	overrideCmd.Flags().StringVar(&overrideBy, "by", "cli", "Who made the change")

	cacheCmd.AddCommand(cacheFlushCmd)
}
