package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"inkwell/internal/backend"
	"inkwell/internal/config"
	"inkwell/internal/coordinator"
	"inkwell/internal/lane"
	"inkwell/internal/logging"
	"inkwell/internal/store"
	"inkwell/internal/telemetry"
	"inkwell/internal/types"
)

const version = "0.3.0"

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "inkwell - ambient writing companion",
	Long: `inkwell watches your writing activity, aggregates behavioral telemetry
(typing speed, pauses, focus, mood), and streams LLM-generated suggestions
and commentary as you work.

Run without arguments to start the companion loop reading from stdin.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompanion()
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the inkwell version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inkwell %s\n", version)
	},
}

// configCmd groups config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage inkwell configuration",
}

// configInitCmd writes a default config file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		cfg := config.Default()
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

// metricsCmd dumps the most recent persisted session metrics
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the latest persisted session metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(resolveConfigPath())
		if err != nil {
			return err
		}
		db, err := store.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer db.Close()

		metrics, err := db.LatestSession()
		if err != nil {
			return fmt.Errorf("failed to read latest session: %w", err)
		}
		if metrics == nil {
			fmt.Println("No sessions recorded yet.")
			return nil
		}
		printMetrics(metrics)
		return nil
	},
}

func printMetrics(m *types.SessionMetrics) {
	fmt.Printf("Session %s (started %s)\n", m.SessionID, m.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Characters typed:   %d\n", m.CharactersTyped)
	fmt.Printf("  Words written:      %d\n", m.WordsWritten)
	fmt.Printf("  Deletions:          %d\n", m.TotalDeletions)
	fmt.Printf("  Pauses:             %d (longest %s)\n", m.PauseCount, m.LongestPause)
	fmt.Printf("  Active writing:     %s\n", m.ActiveWritingTime)
	fmt.Printf("  WPM:                %.1f (peak %.1f)\n", m.WordsPerMinute, m.PeakWordsPerMinute)
	fmt.Printf("  Deletion rate:      %.1f%%\n", m.DeletionRate)
	fmt.Printf("  App switches:       %d (%d distractions)\n", m.AppSwitchCount, m.DistractionCount)
	fmt.Printf("  Focus score:        %.2f\n", m.FocusScore)
	fmt.Printf("  Mood:               %s\n", m.Mood)
}

// runCompanion wires the full pipeline and drives it from stdin, which
// stands in for the platform focus observer: each line is treated as the
// current text buffer.
func runCompanion() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	workspace := filepath.Dir(filepath.Dir(resolveConfigPath()))
	if err := logging.Initialize(workspace, logging.Options{
		Debug:      cfg.Logging.Debug || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}
	logging.Boot("inkwell %s starting", version)

	client, err := backend.FromConfig(cfg)
	if err != nil {
		if errors.Is(err, backend.ErrNotConfigured) {
			logger.Warn("no LLM backend configured; suggestions and commentary disabled")
		} else {
			return fmt.Errorf("failed to build backend client: %w", err)
		}
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	clk := clock.New()
	agg := telemetry.NewAggregator(clk)

	sugg := lane.NewSuggestionLane(client, clk, lane.SuggestionOptions{
		Cooldown: cfg.Companion.SuggestionCooldownDuration(),
		MinChars: cfg.Companion.MinAnalysisChars,
	})
	comm := lane.NewCommentaryLane(client, db, clk, lane.CommentaryOptions{
		Enabled:   cfg.Companion.CommentaryEnabled,
		Cooldown:  cfg.Companion.CommentaryCooldown(),
		MinChars:  cfg.Companion.MinCommentaryChars,
		MetricsFn: agg.Snapshot,
		ProfileFn: func(m types.SessionMetrics) {
			if err := db.UpdateStyleProfile(m); err != nil {
				logging.StoreError("style profile update failed: %v", err)
			}
		},
	})

	coord := coordinator.New(nil, sugg, comm, agg, db, clk, coordinator.Options{
		DebounceNormal:        cfg.Companion.DebounceNormalDuration(),
		DebounceCommentary:    cfg.Companion.DebounceCommentaryDuration(),
		ScreenPollInterval:    cfg.Companion.ScreenPollIntervalDuration(),
		MinCommentaryInterval: cfg.Companion.MinCommentaryIntervalDuration(),
		AwayThreshold:         cfg.Companion.AwayThresholdDuration(),
	})

	// Companion toggles apply without restart.
	watcher, err := config.NewWatcher(resolveConfigPath(), func(updated *config.Config) {
		comm.SetEnabled(updated.Companion.CommentaryEnabled)
		comm.SetCooldown(updated.Companion.CommentaryCooldown())
		logger.Info("config reloaded",
			zap.Bool("commentary_enabled", updated.Companion.CommentaryEnabled),
			zap.String("commentary_mode", string(updated.Companion.CommentaryMode)))
	})
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else if err := watcher.Start(); err != nil {
		logger.Warn("config watcher failed to start", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	sessionID := coord.StartSession()
	defer coord.StopSession()
	logger.Info("session started", zap.String("session_id", sessionID))

	go feedFromStdin(ctx, coord)

	return coord.Run(ctx)
}

// feedFromStdin treats each stdin line as the current writing buffer.
func feedFromStdin(ctx context.Context, coord *coordinator.Coordinator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		coord.HandleTyping(len(line))
		coord.HandleContextChange(&types.WritingContext{
			AppName:         "stdin",
			WindowTitle:     "inkwell",
			SurroundingText: line,
		})
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(versionCmd, configCmd, metricsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
