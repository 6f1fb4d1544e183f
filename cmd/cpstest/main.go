// Package main provides the CLI entrypoint for cpstest.
package main

import (
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

	"github.com/verte-zerg/cpstest/internal/config"
	"github.com/verte-zerg/cpstest/internal/history"
	"github.com/verte-zerg/cpstest/internal/logger"
	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/store"
	"github.com/verte-zerg/cpstest/internal/tui"
	"github.com/verte-zerg/cpstest/internal/variant"
)

const (
	defaultButton            = "left"
	defaultRepeatThresholdMs = int(tui.DefaultRepeatThreshold / time.Millisecond)
	defaultTickMs            = 50
	minTickMs                = 10
	maxTickMs                = 1000
)

// testFlags holds the options shared by the test subcommands.
type testFlags struct {
	time              int
	button            string
	dropRepeats       bool
	repeatThresholdMs int
	multiWindowMs     int
	count             int
	tickMs            int
}

func defaultTestFlags() *testFlags {
	return &testFlags{
		button:            defaultButton,
		dropRepeats:       true,
		repeatThresholdMs: defaultRepeatThresholdMs,
		multiWindowMs:     int(variant.DefaultMultiWindow / time.Millisecond),
		count:             2,
		tickMs:            defaultTickMs,
	}
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := defaultTestFlags()
	rootCmd := &cobra.Command{
		Use:           "cpstest",
		Short:         "Timed clicks-per-second test in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd, model.VariantClick, flags)
		},
	}
	addTimeFlag(rootCmd, flags)
	addButtonFlag(rootCmd, flags)

	rootCmd.AddCommand(newClickCmd())
	rootCmd.AddCommand(newSpaceCmd())
	rootCmd.AddCommand(newKohiCmd())
	rootCmd.AddCommand(newMultiCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func newClickCmd() *cobra.Command {
	flags := defaultTestFlags()
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Mouse click test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd, model.VariantClick, flags)
		},
	}
	addTimeFlag(cmd, flags)
	addButtonFlag(cmd, flags)
	return cmd
}

func newSpaceCmd() *cobra.Command {
	flags := defaultTestFlags()
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Space bar test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd, model.VariantSpace, flags)
		},
	}
	addTimeFlag(cmd, flags)
	cmd.Flags().BoolVar(&flags.dropRepeats, "drop-repeats", flags.dropRepeats, "ignore key auto-repeat")
	cmd.Flags().IntVar(&flags.repeatThresholdMs, "repeat-threshold-ms", flags.repeatThresholdMs, "presses closer than this are treated as auto-repeat")
	return cmd
}

func newKohiCmd() *cobra.Command {
	flags := defaultTestFlags()
	cmd := &cobra.Command{
		Use:   "kohi",
		Short: fmt.Sprintf("Kohi click test (fixed %ds)", variant.KohiDuration),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(cmd, model.VariantKohi, flags)
		},
	}
	addButtonFlag(cmd, flags)
	return cmd
}

func newMultiCmd() *cobra.Command {
	flags := defaultTestFlags()
	cmd := &cobra.Command{
		Use:   "multi",
		Short: "Double or triple click test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := multiVariant(flags.count)
			if err != nil {
				return err
			}
			return runTest(cmd, v, flags)
		},
	}
	addTimeFlag(cmd, flags)
	addButtonFlag(cmd, flags)
	cmd.Flags().IntVar(&flags.count, "count", flags.count, "clicks per cluster (2 or 3)")
	cmd.Flags().IntVar(&flags.multiWindowMs, "window-ms", flags.multiWindowMs, "max gap between clicks of one cluster")
	return cmd
}

func addTimeFlag(cmd *cobra.Command, flags *testFlags) {
	cmd.Flags().IntVarP(&flags.time, "time", "t", 0, fmt.Sprintf("test length in seconds (default %d)", variant.DefaultDuration))
}

func addButtonFlag(cmd *cobra.Command, flags *testFlags) {
	cmd.Flags().StringVarP(&flags.button, "button", "b", flags.button, "mouse button: left, middle or right")
}

func multiVariant(count int) (model.Variant, error) {
	switch count {
	case 2:
		return model.VariantDouble, nil
	case 3:
		return model.VariantTriple, nil
	default:
		return "", fmt.Errorf("--count must be 2 or 3, got %d", count)
	}
}

// runSettings is everything a test run needs after flags and config merge.
type runSettings struct {
	cfg     variant.Config
	tui     tui.Options
	logging logger.Config
}

func runTest(cmd *cobra.Command, v model.Variant, flags *testFlags) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := resolveRun(cmd, v, flags, fileCfg)
	if err != nil {
		return err
	}

	log, closeLog := openLogger(settings.logging)
	defer closeLog()
	kv, closeStore := openStore(log)
	defer closeStore()

	registry := history.NewRegistry(kv, history.WithLogger(log))
	settings.tui.Logger = log
	m := tui.NewModel(settings.cfg, registry.Ledger(settings.cfg.TestType), settings.tui)
	log.Info("Starting test", "variant", string(v), "duration", settings.cfg.Duration, "button", settings.cfg.Policy.Button.String())
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// resolveRun merges config file values under explicitly set flags and
// validates the result before any engine exists.
func resolveRun(cmd *cobra.Command, v model.Variant, flags *testFlags, fileCfg config.FileConfig) (runSettings, error) {
	f := *flags
	test := fileCfg.Test
	applyIntConfig(cmd, "time", &f.time, test.Time)
	applyStringConfig(cmd, "button", &f.button, test.Button)
	applyBoolConfig(cmd, "drop-repeats", &f.dropRepeats, test.DropRepeats)
	applyIntConfig(cmd, "repeat-threshold-ms", &f.repeatThresholdMs, test.RepeatThresholdMs)
	applyIntConfig(cmd, "window-ms", &f.multiWindowMs, test.MultiWindowMs)
	if test.TickMs != nil {
		f.tickMs = *test.TickMs
	}

	if err := validateFlags(f); err != nil {
		return runSettings{}, err
	}
	button, err := model.ParseButton(f.button)
	if err != nil {
		return runSettings{}, err
	}
	cfg, err := variant.Resolve(v, f.time, variant.Options{
		Button:      button,
		DropRepeats: f.dropRepeats,
		MultiWindow: time.Duration(f.multiWindowMs) * time.Millisecond,
	})
	if err != nil {
		return runSettings{}, err
	}
	return runSettings{
		cfg: cfg,
		tui: tui.Options{
			RepeatThreshold: time.Duration(f.repeatThresholdMs) * time.Millisecond,
			TickInterval:    time.Duration(f.tickMs) * time.Millisecond,
		},
		logging: logConfig(fileCfg.Log),
	}, nil
}

func validateFlags(f testFlags) error {
	if f.time < 0 {
		return fmt.Errorf("--time must be >= 0")
	}
	if f.repeatThresholdMs < 0 {
		return fmt.Errorf("--repeat-threshold-ms must be >= 0")
	}
	if f.multiWindowMs <= 0 {
		return fmt.Errorf("--window-ms must be > 0")
	}
	if f.tickMs < minTickMs || f.tickMs > maxTickMs {
		return fmt.Errorf("tick-ms must be between %d and %d", minTickMs, maxTickMs)
	}
	return nil
}

func logConfig(c config.LogConfig) logger.Config {
	cfg := logger.Config{Path: config.DefaultLogPath()}
	if c.Level != nil {
		cfg.Level = *c.Level
	}
	if c.MaxSizeMB != nil {
		cfg.MaxSizeMB = *c.MaxSizeMB
	}
	if c.MaxBackups != nil {
		cfg.MaxBackups = *c.MaxBackups
	}
	if c.MaxAgeDays != nil {
		cfg.MaxAgeDays = *c.MaxAgeDays
	}
	if c.Compress != nil {
		cfg.Compress = *c.Compress
	}
	return cfg
}

// openLogger falls back to a discarding logger so a broken log path never
// blocks a test.
func openLogger(cfg logger.Config) (*slog.Logger, func()) {
	log, closer, err := logger.New(cfg)
	if err != nil {
		logErrf("failed to open log: %v\n", err)
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return log, func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}
}

// openStore returns the SQLite store, or an in-memory one when the database
// cannot be opened. Results then last only for this run.
func openStore(log *slog.Logger) (store.KV, func()) {
	path := config.DefaultDBPath()
	st, err := store.Open(path)
	if err != nil {
		log.Warn("Failed to open history db, keeping history in memory", "path", path, "error", err)
		return store.NewMemory(), func() {}
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("Failed to close history db", "error", cerr)
		}
	}
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
	if err := writeConfigTemplate(path); err != nil {
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

// writeConfigTemplate creates the commented template unless a file exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || flagChanged(cmd, name) {
		return
	}
	*target = *value
}

// flagChanged also reports true for flags the command does not define, so
// config values only reach settings a command exposes.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f == nil || f.Changed
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# cpstest configuration
# Uncomment a value to enable it. CLI flags override config values.

[test]
# time = %d                    # Test length in seconds (%s)
# button = %q              # Mouse button: left, middle or right
# drop-repeats = true          # Ignore space bar auto-repeat
# repeat-threshold-ms = %d     # Same-key presses closer than this are auto-repeat.
#                              # Held keys repeat every 33-40ms; taps at 20 CPS are 50ms apart.
#                              # Lower it only if fast taps are dropped, 0 disables.
# multi-window-ms = %d        # Max gap between clicks of a double/triple cluster
# tick-ms = %d                 # Display refresh interval

[log]
# level = "info"               # debug, info, warn or error
# max-size-mb = %d              # Rotate after this size
# max-backups = %d              # Rotated files to keep
# max-age-days = %d            # Days to keep rotated files
# compress = false             # Gzip rotated files
`,
		variant.DefaultDuration,
		durationList(),
		defaultButton,
		defaultRepeatThresholdMs,
		int(variant.DefaultMultiWindow/time.Millisecond),
		defaultTickMs,
		logger.DefaultMaxSizeMB,
		logger.DefaultMaxBackups,
		logger.DefaultMaxAgeDays,
	)
}

func durationList() string {
	parts := make([]string, 0, len(variant.AllowedDurations()))
	for _, d := range variant.AllowedDurations() {
		parts = append(parts, fmt.Sprintf("%d", d))
	}
	return strings.Join(parts, ", ")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

