package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"islandflow/pkg/apperror"
	"islandflow/pkg/config"
	"islandflow/pkg/logger"
	"islandflow/services/solver-svc/internal/repository"
)

// historyOptions are the flags of the history and prune modes.
type historyOptions struct {
	limit     int
	id        string
	olderThan time.Duration
}

// withHistory opens the solve history for the length of fn.
func withHistory(ctx context.Context, cfg *config.Config, fn func(repository.SolveRepository) error) error {
	if !cfg.Database.Enabled {
		return apperror.New(apperror.CodeUnavailable, "solve history is disabled, set database.enabled")
	}

	db, err := openHistory(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(repository.NewPostgresSolveRepository(db))
}

// showHistory prints one solve with its paths when opts.id is set, and the
// newest solves otherwise.
func showHistory(ctx context.Context, repo repository.SolveRepository, opts historyOptions, w io.Writer) error {
	if opts.id != "" {
		id, err := uuid.Parse(opts.id)
		if err != nil {
			return apperror.NewWithField(apperror.CodeInvalidArgument, "id is not a UUID", "id")
		}
		rec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		return printRecord(w, rec)
	}

	records, err := repo.ListRecent(ctx, opts.limit)
	if err != nil {
		return err
	}
	return printHistory(w, records)
}

func pruneHistory(ctx context.Context, repo repository.SolveRepository, olderThan time.Duration, now time.Time) error {
	if olderThan <= 0 {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "older-than must be positive", "older-than")
	}

	cutoff := now.Add(-olderThan)
	deleted, err := repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	logger.Log.Info("solve history pruned", "cutoff", cutoff, "deleted", deleted)
	return nil
}

func printHistory(w io.Writer, records []*repository.SolveRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tISLANDS\tBRIDGES\tSOLDIERS\tMEAN COST\tCACHED\tMS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%t\t%.3f\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339),
			r.Islands, r.Bridges, r.Soldiers,
			meanCost(r), r.CacheHit, r.DurationMs,
		)
	}
	return tw.Flush()
}

func printRecord(w io.Writer, r *repository.SolveRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", r.ID)
	fmt.Fprintf(tw, "created:\t%s\n", r.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "problem:\t%s\n", r.ProblemHash)
	fmt.Fprintf(tw, "size:\t%d islands, %d bridges, %d soldiers\n", r.Islands, r.Bridges, r.Soldiers)
	fmt.Fprintf(tw, "mean cost:\t%s\n", meanCost(r))
	fmt.Fprintf(tw, "total cost:\t%d\n", r.TotalCost)
	if err := tw.Flush(); err != nil {
		return err
	}

	for unit, path := range r.Paths {
		bridges := make([]string, len(path))
		for i, b := range path {
			bridges[i] = strconv.Itoa(b)
		}
		if _, err := fmt.Fprintf(w, "soldier %d: %s\n", unit+1, strings.Join(bridges, " ")); err != nil {
			return err
		}
	}
	return nil
}

func meanCost(r *repository.SolveRecord) string {
	if !r.Feasible {
		return "infeasible"
	}
	return strconv.FormatFloat(r.MeanCost, 'f', 6, 64)
}
