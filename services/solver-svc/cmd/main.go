// Package main is the entry point of the islandflow solver.
//
// The binary routes K soldiers from island 1 to island N over bridges that
// each carry at most one soldier, at minimum total cost. It runs in one of
// three modes:
//
//	solver [solve] [-config path]          read a problem on stdin, print the answer
//	solver serve [-config path]            run the gRPC service
//	solver remote [-addr host:port]        solve on a running service
//	solver history [-limit n] [-id uuid]   show recorded solves
//	solver prune -older-than 720h          delete old solve records
//
// # Line Protocol
//
// Input is whitespace separated integers: islands, bridges, soldiers, then
// one "from to cost" triple per bridge. Islands are numbered from 1.
//
// Output is "-1" when the soldiers cannot all cross. Otherwise the first
// line is the mean cost per soldier with six decimals, followed by one line
// per soldier: the number of bridges taken and the bridge numbers in order.
//
//	$ printf '3 3 2\n1 2 1\n2 3 1\n1 3 10\n' | solver
//	6.000000
//	2 1 2
//	1 3
//
// Both feasible and infeasible answers exit 0. Malformed input and internal
// failures are logged to stderr and exit 1.
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: ISLANDFLOW_)
//  2. Config file (-config, CONFIG_PATH, config.yaml, config/config.yaml,
//     /etc/islandflow/config.yaml)
//  3. Default values
//
// Frequently used keys:
//
//	ISLANDFLOW_GRPC_PORT                 - serve port (default: 50051)
//	ISLANDFLOW_LOG_LEVEL                 - debug, info, warn, error (default: info)
//	ISLANDFLOW_LOG_OUTPUT                - stdout, stderr, file (default: stderr)
//	ISLANDFLOW_SOLVER_MAX_ISLANDS        - request limit (default: 100000)
//	ISLANDFLOW_SOLVER_VERIFY_INVARIANTS  - check flow invariants after every step
//	ISLANDFLOW_CACHE_ENABLED             - answer cache (memory or redis)
//	ISLANDFLOW_DATABASE_ENABLED          - solve history in PostgreSQL
//	ISLANDFLOW_METRICS_ENABLED           - Prometheus endpoint
//	ISLANDFLOW_TRACING_ENABLED           - OTLP tracing
//	ISLANDFLOW_CLIENT_ADDRESS            - remote mode target
//
// # Serve Mode
//
// The service answers islandflow.solver.v1.SolverService/Solve with JSON
// messages (content subtype "json") and the standard grpc.health.v1.Health
// protocol. SIGINT and SIGTERM trigger a graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"islandflow/pkg/apperror"
	"islandflow/pkg/client"
	"islandflow/pkg/config"
	"islandflow/pkg/logger"
	"islandflow/services/solver-svc/internal/converter"
	"islandflow/services/solver-svc/internal/repository"
	"islandflow/services/solver-svc/internal/service"
)

const (
	modeSolve   = "solve"
	modeServe   = "serve"
	modeRemote  = "remote"
	modeHistory = "history"
	modePrune   = "prune"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout))
}

// run returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	mode := modeSolve
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		mode, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "solver service address (remote mode)")
	var hist historyOptions
	fs.IntVar(&hist.limit, "limit", 20, "number of records to list (history mode)")
	fs.StringVar(&hist.id, "id", "", "show one record with its paths (history mode)")
	fs.DurationVar(&hist.olderThan, "older-than", 0, "age of the records to delete (prune mode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Log.Error("failed to load config", "error", err)
		return 1
	}
	initLogger(cfg)

	switch mode {
	case modeSolve:
		err = solveLocal(ctx, cfg, stdin, stdout)
	case modeServe:
		err = serve(ctx, cfg)
	case modeRemote:
		if *addr != "" {
			cfg.Client.Address = *addr
		}
		err = solveRemote(ctx, cfg, stdin, stdout)
	case modeHistory:
		err = withHistory(ctx, cfg, func(repo repository.SolveRepository) error {
			return showHistory(ctx, repo, hist, stdout)
		})
	case modePrune:
		err = withHistory(ctx, cfg, func(repo repository.SolveRepository) error {
			return pruneHistory(ctx, repo, hist.olderThan, time.Now())
		})
	default:
		logger.Log.Error("unknown mode", "mode", mode,
			"expected", strings.Join([]string{modeSolve, modeServe, modeRemote, modeHistory, modePrune}, ", "))
		return 2
	}

	if err != nil {
		logError(mode, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithConfigPaths(path))
	}
	return config.NewLoader(opts...).Load()
}

func initLogger(cfg *config.Config) {
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
}

func logError(mode string, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		logger.Log.Error("solver failed", "mode", mode, "error", err)
		return
	}

	args := []any{"mode", mode, "code", appErr.Code, "severity", appErr.Severity.String()}
	if appErr.Field != "" {
		args = append(args, "field", appErr.Field)
	}
	for k, v := range appErr.Details {
		args = append(args, k, v)
	}
	logger.Log.Error(appErr.Error(), args...)
}

// solveLocal runs one solve in process, without cache or history.
func solveLocal(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	problem, err := converter.ParseProblem(stdin)
	if err != nil {
		return err
	}

	svc := service.NewSolverService(service.ConfigFromSolver(cfg.Solver))
	result, err := svc.Solve(ctx, problem, service.SolveOptions{SkipCache: true})
	if err != nil {
		return err
	}

	return converter.FormatAnswer(stdout, result.Answer)
}

func solveRemote(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	problem, err := converter.ParseProblem(stdin)
	if err != nil {
		return err
	}

	c, err := client.NewSolverClient(client.FromConfig(cfg.Client))
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Solve(ctx, problem, false)
	if err != nil {
		return err
	}

	logger.Log.Debug("remote solve finished",
		"address", cfg.Client.Address,
		"cache_hit", resp.CacheHit,
		"duration_ms", resp.DurationMs,
		"history_id", resp.HistoryID,
	)
	if resp.Statistics != nil {
		logger.Log.Debug("remote answer statistics",
			"crossings", resp.Statistics.TotalCrossings,
			"longest_path", resp.Statistics.LongestPath,
			"reused_bridges", resp.Statistics.ReusedBridges,
		)
	}

	return converter.FormatAnswer(stdout, resp.Answer)
}
