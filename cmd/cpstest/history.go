package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/cpstest/internal/config"
	"github.com/verte-zerg/cpstest/internal/history"
	"github.com/verte-zerg/cpstest/internal/historyui"
	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/stats"
	"github.com/verte-zerg/cpstest/internal/variant"
)

const terminalWidthBackup = 80

type historyFlags struct {
	testType string
	time     int
	plain    bool
	clear    bool
}

func newHistoryCmd() *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryCmd(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.testType, "type", "", "test type: click, space, kohi, double or triple (default: all)")
	cmd.Flags().IntVarP(&flags.time, "time", "t", 0, "only show tests of this length in seconds")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "print tables instead of opening the browser")
	cmd.Flags().BoolVar(&flags.clear, "clear", false, "delete the history of --type")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, flags *historyFlags) error {
	variants, err := historyVariants(flags.testType)
	if err != nil {
		return err
	}
	if flags.time != 0 && !variant.IsAllowedDuration(flags.time) {
		return fmt.Errorf("%w: %d seconds", variant.ErrInvalidDuration, flags.time)
	}
	if flags.clear && flags.testType == "" {
		return fmt.Errorf("--clear needs --type")
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, closeLog := openLogger(logConfig(fileCfg.Log))
	defer closeLog()
	kv, closeStore := openStore(log)
	defer closeStore()
	registry := history.NewRegistry(kv, history.WithLogger(log))

	out := cmd.OutOrStdout()
	if flags.clear {
		return clearHistory(out, registry, variants[0])
	}
	if flags.plain || !isTerminal(out) {
		if flags.testType == "" {
			variants = storedVariants(cmd.Context(), registry)
			if len(variants) == 0 {
				_, err := fmt.Fprintln(out, "No history yet.")
				return err
			}
		}
		return printHistory(out, registry, variants, flags.time, time.Now(), outputWidth(out))
	}
	m := historyui.NewModel(registry, historyui.Options{Variants: variant.All(), Initial: variants[0], Duration: flags.time})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func historyVariants(name string) ([]model.Variant, error) {
	if name == "" {
		return variant.All(), nil
	}
	v, err := variant.Parse(name)
	if err != nil {
		return nil, err
	}
	return []model.Variant{v}, nil
}

// storedVariants returns the variants with a stored ledger. When the store
// cannot be listed every variant is returned.
func storedVariants(ctx context.Context, registry *history.Registry) []model.Variant {
	if ctx == nil {
		ctx = context.Background()
	}
	types, err := registry.StoredTestTypes(ctx)
	if err != nil || types == nil {
		return variant.All()
	}
	stored := make(map[string]bool, len(types))
	for _, t := range types {
		stored[t] = true
	}
	var out []model.Variant
	for _, v := range variant.All() {
		if stored[variant.TestType(v)] {
			out = append(out, v)
		}
	}
	return out
}

func clearHistory(w io.Writer, registry *history.Registry, v model.Variant) error {
	ledger := registry.Ledger(variant.TestType(v))
	n := ledger.Len()
	ledger.Clear()
	_, err := fmt.Fprintf(w, "Cleared %d %s records.\n", n, v)
	return err
}

func printHistory(w io.Writer, registry *history.Registry, variants []model.Variant, duration int, now time.Time, width int) error {
	for _, v := range variants {
		ledger := registry.Ledger(variant.TestType(v))
		records := ledger.Records()
		title := string(v)
		if duration > 0 {
			records = ledger.FilterByDuration(duration)
			title = fmt.Sprintf("%s (%ds)", v, duration)
		}
		if err := stats.RenderSummary(w, title, records); err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		if err := stats.RenderTable(w, records, now, width); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func outputWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
