package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/leonunix/docsearch/internal/backend"
	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/config"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/lock"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/operations"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/reindex"
	"github.com/leonunix/docsearch/internal/util"
)

var (
	configPath string
	queryJSON  string
	size       int
	once       bool
	jobName    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "docsearch",
		Short:        "Search, count and reindex against Elasticsearch or OpenSearch",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docsearch.yaml", "path to configuration file")

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Print cluster name and version",
		RunE:  runPing,
	}

	searchCmd := &cobra.Command{
		Use:   "search [index]",
		Short: "Search an index and print the hits as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringVarP(&queryJSON, "query", "q", "", "engine query as JSON (default match_all)")
	searchCmd.Flags().IntVarP(&size, "size", "n", 10, "number of hits to return")

	countCmd := &cobra.Command{
		Use:   "count [index]",
		Short: "Count the documents matching a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runCount,
	}
	countCmd.Flags().StringVarP(&queryJSON, "query", "q", "", "engine query as JSON (default match_all)")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Run configured reindex jobs on their schedules",
		RunE:  runReindex,
	}
	reindexCmd.Flags().BoolVar(&once, "once", false, "run the jobs once and exit (ignore schedules)")
	reindexCmd.Flags().StringVar(&jobName, "job", "", "run only this job")

	rootCmd.AddCommand(pingCmd, searchCmd, countCmd, reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	tpl     *operations.Template
	metrics *metrics.Metrics
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	util.SetupLogger(cfg.Logging.Level)

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}

	transport, err := util.NewTLSTransport(cfg.Engine.TLS)
	if err != nil {
		return nil, fmt.Errorf("configuring engine TLS: %w", err)
	}
	bc := backend.Config{
		Addresses:  cfg.Engine.URLs,
		Username:   cfg.Engine.Username,
		Password:   cfg.Engine.Password,
		MaxRetries: cfg.Engine.MaxRetries,
		Metrics:    m,
	}
	if transport != nil {
		bc.Transport = transport
	}
	exec, err := backend.New(cfg.Dialect(), bc)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Engine.Dialect, err)
	}

	tpl := operations.New(exec,
		operations.WithCompiler(compiler.New(compiler.WithMaxResultWindow(cfg.Search.MaxResultWindow))),
		operations.WithScrollKeepAlive(cfg.Search.ScrollKeepAlive),
	)
	return &app{cfg: cfg, tpl: tpl, metrics: m}, nil
}

func userQuery() *query.Query {
	if queryJSON == "" {
		return query.MatchAll()
	}
	return query.NewStringQuery(queryJSON)
}

func runPing(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	info, err := a.tpl.Info(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %s %s\n",
		info.ClusterName, info.Name, a.tpl.Executor().Name(), info.Version.Number)
	return nil
}

type hitLine struct {
	Index  string             `json:"_index"`
	ID     string             `json:"_id"`
	Score  *float64           `json:"_score,omitempty"`
	Source *document.Document `json:"_source"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	q := userQuery().WithMaxResults(size)
	hits, err := a.tpl.Search(cmd.Context(), q, nil, query.IndexCoordinatesOf(args[0]), nil)
	if err != nil {
		return err
	}
	slog.Debug("search completed", "index", args[0], "total", hits.TotalHits, "relation", hits.TotalHitsRelation.String())

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, h := range hits.Hits {
		line := hitLine{Index: h.Index, ID: h.ID, Source: h.Content}
		if h.HasScore() {
			score := h.Score
			line.Score = &score
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	n, err := a.tpl.Count(cmd.Context(), userQuery(), nil, query.IndexCoordinatesOf(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	jobs := a.cfg.Reindex.Jobs
	if jobName != "" {
		job, ok := a.cfg.Job(jobName)
		if !ok {
			return fmt.Errorf("no reindex job named %q", jobName)
		}
		jobs = []config.JobConfig{job}
	}
	if len(jobs) == 0 {
		slog.Info("no reindex jobs configured, nothing to do")
		return nil
	}

	slog.Info("docsearch reindex starting",
		"engine", a.cfg.Engine.URLs,
		"dialect", a.cfg.Engine.Dialect,
		"jobs", len(jobs),
		"lock_index", a.cfg.Reindex.LockIndex,
		"metrics_index", a.cfg.Reindex.MetricsIndex,
	)

	runner := reindex.NewRunner(a.tpl,
		reindex.WithLock(lock.New(a.tpl, a.cfg.Reindex.LockIndex, a.metrics)),
		reindex.WithLockTTL(a.cfg.Reindex.LockTTL),
		reindex.WithRecorder(reindex.NewIndexRecorder(a.tpl, a.cfg.Reindex.MetricsIndex)),
		reindex.WithMetrics(a.metrics),
	)

	if once {
		if err := runner.RunAll(cmd.Context(), jobs); err != nil {
			return err
		}
		slog.Info("reindex completed, exiting")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := reindex.NewScheduler(ctx, runner, jobs)
	if err != nil {
		return err
	}

	var srv *http.Server
	if a.cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			slog.Info("metrics server listening", "addr", a.cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	sched.Start()
	slog.Info("reindex scheduler started", "jobs", sched.Len())

	<-ctx.Done()
	slog.Info("shutting down...")
	<-sched.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	slog.Info("docsearch reindex stopped")
	return nil
}
