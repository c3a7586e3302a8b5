// Package main provides the entry point for the tabletalk CLI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tabletalk/tabletalk/cmd/tabletalk/config"
	"github.com/tabletalk/tabletalk/pkg/cache"
	"github.com/tabletalk/tabletalk/pkg/handlers"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/pool"
	"github.com/tabletalk/tabletalk/pkg/models"
	"github.com/tabletalk/tabletalk/pkg/repositories/duckdb"
	"github.com/tabletalk/tabletalk/pkg/services"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tabletalk",
	Short: "Natural-language database copilot for DuckDB",
	Long: `Tabletalk turns plain-English administration and analysis requests
into vetted SQL over a DuckDB database.

Recognized requests render through fixed statement templates; free-form
SQL is screened by a keyword denylist before anything executes.`,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Classify a question and run the resulting statement",
	Long: `Classify a natural-language question, render it to SQL, and execute it.

Example:
  tabletalk ask "list tables" --database ./warehouse.db
  tabletalk ask "row count for fact_loans"
  tabletalk ask --sql "SELECT 42 AS answer"
  tabletalk ask "drop table staging.tmp_loads" --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Read questions from stdin in a loop, keeping the conversation in one
session so history survives across requests. End with Ctrl-D or "exit".`,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(replCmd)

	for _, cmd := range []*cobra.Command{askCmd, replCmd} {
		cmd.Flags().StringP("config", "c", "", "config file path")
		cmd.Flags().String("database", ":memory:", "DuckDB database path")
		cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
		cmd.Flags().Duration("query-timeout", 5*time.Minute, "statement execution timeout")
		cmd.Flags().Duration("schema-ttl", 24*time.Hour, "schema context cache lifetime")
		cmd.Flags().String("confirm-risk", "high", "lowest risk level requiring confirmation (low, medium, high)")
		cmd.Flags().Bool("metrics", false, "enable Prometheus metrics")
		cmd.Flags().String("metrics-address", ":9090", "metrics server address")
	}
	askCmd.Flags().String("sql", "", "submit raw SQL through the sanitizer instead of a question")
	askCmd.Flags().Bool("no-exec", false, "render and sanitize only, skip execution")
	askCmd.Flags().Bool("refresh-schema", false, "force a schema cache reload before processing")
	askCmd.Flags().BoolP("yes", "y", false, "confirm execution of risky statements")

	viper.SetEnvPrefix("TABLETALK")
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tabletalk\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components behind one Close.
type app struct {
	cfg           *config.Config
	logger        zerolog.Logger
	handler       *handlers.RequestHandler
	sessions      *services.SessionStore
	pool          pool.ConnectionPool
	metricsServer *metrics.MetricsServer
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	question := ""
	if len(args) > 0 {
		question = args[0]
	}
	rawSQL, _ := cmd.Flags().GetString("sql")
	noExec, _ := cmd.Flags().GetBool("no-exec")
	refresh, _ := cmd.Flags().GetBool("refresh-schema")
	confirmed, _ := cmd.Flags().GetBool("yes")

	if question == "" && rawSQL == "" {
		return fmt.Errorf("provide a question or --sql")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()

	result, err := a.handler.Handle(ctx, handlers.HandleRequest{
		Question:      question,
		RawSQL:        rawSQL,
		Confirmed:     confirmed,
		ExplainOnly:   noExec,
		RefreshSchema: refresh,
	})
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result)
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := a.sessions.Create()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tabletalk %s (session %s)\n", version, sessionID)
	fmt.Fprintln(out, `Type a question, or "exit" to quit.`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
		result, err := a.handler.Handle(ctx, handlers.HandleRequest{
			Question:  line,
			SessionID: sessionID,
		})
		cancel()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, result)
	}
	return scanner.Err()
}

func buildApp(cfg *config.Config) (*app, error) {
	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("database", cfg.Database).
		Msg("Starting tabletalk")

	var metricsCollector metrics.Collector
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusCollector()
		metricsCollector = prom
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address, prom)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	connPool, err := pool.New(pool.Config{
		DSN:                cfg.Database,
		MaxOpenConnections: cfg.ConnectionPool.MaxOpenConnections,
		MaxIdleConnections: cfg.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:    cfg.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.ConnectionPool.ConnMaxIdleTime,
		ConnectionTimeout:  cfg.ConnectionPool.ConnectionTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	queryRepo := duckdb.NewQueryRepository(connPool, logger.With().Str("component", "query_repository").Logger())
	schemaRepo := duckdb.NewSchemaRepository(connPool, logger.With().Str("component", "schema_repository").Logger())

	schemaCache := cache.NewSchemaCache(cache.DefaultConfig().WithTTL(cfg.SchemaTTL))
	schemaProvider := services.NewSchemaProvider(
		schemaCache,
		schemaRepo,
		logger.With().Str("component", "schema_provider").Logger(),
		metricsCollector,
	)

	pipeline := services.NewPipeline(
		schemaProvider,
		queryRepo,
		logger.With().Str("component", "pipeline").Logger(),
		metricsCollector,
	)
	reporter := services.NewDiagnosticsService(
		queryRepo,
		logger.With().Str("component", "diagnostics").Logger(),
		metricsCollector,
	)
	sessions := services.NewSessionStore(cfg.SessionIdleTimeout, logger.With().Str("component", "sessions").Logger())

	confirmRisk, err := cfg.ConfirmRiskLevel()
	if err != nil {
		return nil, err
	}

	handler := handlers.NewRequestHandler(
		services.NewIntentClassifier(),
		services.NewSQLRenderer(),
		reporter,
		pipeline,
		sessions,
		confirmRisk,
		logger.With().Str("component", "request_handler").Logger(),
		metricsCollector,
	)

	return &app{
		cfg:           cfg,
		logger:        logger,
		handler:       handler,
		sessions:      sessions,
		pool:          connPool,
		metricsServer: metricsServer,
	}, nil
}

// Close releases all resources in reverse dependency order.
func (a *app) Close() {
	a.sessions.Stop()
	if err := a.pool.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Error closing connection pool")
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}
}

func printResult(out io.Writer, result *models.RequestResult) {
	switch result.Action.Kind {
	case models.ActionUnknown:
		fmt.Fprintln(out, "I did not recognize that request.")
	case models.ActionClarification:
		fmt.Fprintln(out, result.Action.Question)
	}

	if result.NeedsConfirm {
		fmt.Fprintf(out, "This %s-risk statement requires confirmation (rerun with --yes):\n%s\n",
			result.Action.Risk, result.SQL)
		return
	}
	if result.Report != "" {
		fmt.Fprintln(out, result.Report)
	}
	if result.Preview != "" {
		fmt.Fprintln(out, result.Preview)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(out, "error: %s\n", msg)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLETALK")
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Database = v.GetString("database")
	cfg.LogLevel = v.GetString("log-level")
	cfg.QueryTimeout = v.GetDuration("query-timeout")
	cfg.SchemaTTL = v.GetDuration("schema-ttl")
	cfg.ConfirmRisk = v.GetString("confirm-risk")
	cfg.Metrics.Enabled = v.GetBool("metrics")
	cfg.Metrics.Address = v.GetString("metrics-address")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "tabletalk")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
