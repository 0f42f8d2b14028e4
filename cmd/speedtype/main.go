// Package main provides the CLI entrypoint for speedtype.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/speedtype/internal/clock"
	"github.com/verte-zerg/speedtype/internal/config"
	"github.com/verte-zerg/speedtype/internal/highscore"
	"github.com/verte-zerg/speedtype/internal/logging"
	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/passage"
	"github.com/verte-zerg/speedtype/internal/session"
	"github.com/verte-zerg/speedtype/internal/stats"
	"github.com/verte-zerg/speedtype/internal/store"
	"github.com/verte-zerg/speedtype/internal/tui"
)

const (
	defaultDifficulty    = "Easy"
	defaultWordCount     = string(model.WordCountCumulative)
	defaultHistoryLast   = 0
	defaultHistoryWindow = 5
)

var defaultDurationSecs = int(session.DefaultDuration.Seconds())

var (
	testDifficulty string
	testDuration   int
	testPassages   string
	testScoreFile  string
	testWordCount  string
	logLevel       string

	historyDifficulty string
	historySince      string
	historyLast       int
	historyWindow     int

	passagesForce bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "speedtype",
		Short:         "Timed typing speed test",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTestCmd,
	}

	rootCmd.Flags().StringVar(&testDifficulty, "difficulty", defaultDifficulty, "initial difficulty")
	rootCmd.Flags().IntVar(&testDuration, "duration", defaultDurationSecs, "test length in seconds")
	rootCmd.Flags().StringVar(&testScoreFile, "score-file", config.DefaultScorePath(), "high score file")
	rootCmd.Flags().StringVar(&testWordCount, "word-count", defaultWordCount, "word counting mode (cumulative|completed)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&testPassages, "passages", config.DefaultPassagesPath(), "passage file (JSON or YAML)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPassagesCmd())

	return rootCmd
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := resolveTestConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	defer closeLog()

	scores := highscore.Open(cfg.ScorePath, logger)
	ensurePassages(cfg.PassagesPath, logger)

	var history tui.HistoryStore
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Warn("session history disabled", "err", err)
	} else {
		history = st
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Warn("failed to close db", "err", cerr)
			}
		}()
	}

	logger.Info("speedtype starting",
		"difficulty", cfg.Difficulty,
		"duration", cfg.Duration,
		"passages", cfg.PassagesPath,
		"word_count", cfg.WordCount,
	)

	m := buildModel(cfg, scores, history, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func buildModel(cfg model.Config, scores *highscore.Store, history tui.HistoryStore, logger *slog.Logger) *tui.Model {
	repo := passage.NewRepository(cfg.PassagesPath)
	m := tui.NewModel(cfg, repo, scores, history, logger)
	if err := scores.LoadErr(); err != nil {
		m.ShowError(session.ErrorPersistence, "high score reset to 0: "+err.Error())
	}
	return m
}

// ensurePassages seeds the starter passages on first run. Only the default
// location is seeded; an explicit path that is missing is reported by the UI.
func ensurePassages(path string, logger *slog.Logger) {
	if path != config.DefaultPassagesPath() {
		return
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return
	}
	if err := passage.WriteDefaults(path, false); err != nil {
		logger.Warn("failed to seed passages", "path", path, "err", err)
		return
	}
	logger.Info("seeded starter passages", "path", path)
}

func resolveTestConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	applyStringConfig(cmd, "difficulty", &testDifficulty, fileCfg.Test.Difficulty)
	applyIntConfig(cmd, "duration", &testDuration, fileCfg.Test.Duration)
	applyStringConfig(cmd, "passages", &testPassages, fileCfg.Test.Passages)
	applyStringConfig(cmd, "score-file", &testScoreFile, fileCfg.Test.ScoreFile)
	applyStringConfig(cmd, "word-count", &testWordCount, fileCfg.Test.WordCount)

	fast, slow := clock.DefaultFast, clock.DefaultSlow
	if v := fileCfg.Test.FastTickMs; v != nil {
		fast = time.Duration(*v) * time.Millisecond
	}
	if v := fileCfg.Test.SlowTickMs; v != nil {
		slow = time.Duration(*v) * time.Millisecond
	}

	cfg := model.Config{
		Difficulty:   testDifficulty,
		Duration:     time.Duration(testDuration) * time.Second,
		PassagesPath: testPassages,
		ScorePath:    testScoreFile,
		WordCount:    model.WordCountMode(strings.ToLower(strings.TrimSpace(testWordCount))),
		FastTick:     fast,
		SlowTick:     slow,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.PassagesPath == "" {
		return fmt.Errorf("--passages must not be empty")
	}
	if cfg.ScorePath == "" {
		return fmt.Errorf("--score-file must not be empty")
	}
	if !cfg.WordCount.Valid() {
		return fmt.Errorf("--word-count must be %q or %q", model.WordCountCumulative, model.WordCountCompleted)
	}
	if cfg.FastTick <= 0 || cfg.SlowTick <= 0 {
		return fmt.Errorf("tick intervals must be > 0")
	}
	return nil
}

func openLogger(cmd *cobra.Command, fileCfg config.FileConfig) (*slog.Logger, func(), error) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, err
	}
	path := config.DefaultLogPath()
	if fileCfg.Log.File != nil && *fileCfg.Log.File != "" {
		path = *fileCfg.Log.File
	}
	logger, closer, err := logging.OpenFile(path, level)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		return logging.Discard(), func() {}, nil
	}
	return logger, func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultHistoryWindow, "moving average window for the trend")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	return printHistory(cmd.Context(), cmd.OutOrStdout(), st, cfg)
}

func historyConfig() (model.HistoryConfig, error) {
	if historyLast < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.HistoryConfig{
		Difficulty: historyDifficulty,
		Last:       historyLast,
		Window:     historyWindow,
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return model.HistoryConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func printHistory(ctx context.Context, w io.Writer, st stats.SessionLister, cfg model.HistoryConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return stats.RenderHistory(w, report, terminalWidth(w))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func newPassagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passages",
		Short: "Manage the passage file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the starter passage file",
		Args:  cobra.NoArgs,
		RunE:  runPassagesInitCmd,
	}
	initCmd.Flags().BoolVar(&passagesForce, "force", false, "overwrite an existing file")
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available difficulties",
		Args:  cobra.NoArgs,
		RunE:  runPassagesListCmd,
	}
	cmd.AddCommand(initCmd, listCmd)
	return cmd
}

func runPassagesInitCmd(cmd *cobra.Command, _ []string) error {
	path, err := passagesPath(cmd)
	if err != nil {
		return err
	}
	if err := passage.WriteDefaults(path, passagesForce); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return err
}

func runPassagesListCmd(cmd *cobra.Command, _ []string) error {
	path, err := passagesPath(cmd)
	if err != nil {
		return err
	}
	names, err := passage.NewRepository(path).Difficulties()
	if err != nil {
		return fmt.Errorf("%w\nCreate one with: speedtype passages init", err)
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func passagesPath(cmd *cobra.Command) (string, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "passages", &testPassages, fileCfg.Test.Passages)
	if testPassages == "" {
		return "", fmt.Errorf("--passages must not be empty")
	}
	return testPassages, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# speedtype configuration
# Uncomment a value to enable it. CLI flags override config values.

[test]
# difficulty = %q          # Initial difficulty
# duration = %d               # Test length in seconds
# passages = %q
# score-file = %q
# word-count = %q    # cumulative or completed
# fast-tick-ms = %d          # Countdown refresh
# slow-tick-ms = %d          # Live score refresh

[log]
# level = "info"              # debug, info, warn, error
# file = %q
`,
		defaultDifficulty,
		defaultDurationSecs,
		config.DefaultPassagesPath(),
		config.DefaultScorePath(),
		defaultWordCount,
		clock.DefaultFast.Milliseconds(),
		clock.DefaultSlow.Milliseconds(),
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
