package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/daemon"
	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/infra"
	"github.com/mosmello93/focus-timer/internal/ui"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance and settings",
	Long:  `Shows the stored balance, whether a timer is running and the current settings.`,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished sessions",
	Long:  `Lists finished work and game sessions, newest first.`,
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals per category and per day",
	RunE:  runStats,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List running blacklisted processes",
	Long: `Lists the process table once and reports which blacklisted processes are
running. The first match in blacklist order is the one that starts a game
session.`,
	RunE: runScan,
}

var killCmd = &cobra.Command{
	Use:   "kill [process...]",
	Short: "Force-kill blacklisted processes now",
	Long:  `Force-kills every blacklisted process, or the named processes when given.`,
	RunE:  runKill,
}

var resetBalanceCmd = &cobra.Command{
	Use:   "reset-balance",
	Short: "Set the balance to one daily allowance",
	RunE:  runResetBalance,
}

var (
	historyLimit int
	statsDays    int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show (0 shows all)")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Number of days to show")
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	settings := engine.Settings()
	running := "no"
	if a.lock == nil {
		running = "yes"
	}

	tw := newTable()
	tw.SetTitle("focustimer status")
	tw.AppendRows([]table.Row{
		{"Balance", ui.FormatClock(engine.Balance())},
		{"Timer running", running},
		{"Last allowance", valueOr(a.snapshot.LastAllowanceDate, "never")},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Ratio", fmt.Sprintf("%.2f", settings.Ratio)},
		{"Daily allowance", fmt.Sprintf("%d min", settings.DailyAllowance)},
		{"Blacklist", joinOr(settings.BlacklistProcesses, "(empty)")},
		{"Start target", settings.StartTarget},
		{"Categories", joinOr(settings.Categories, "(none)")},
		{"Sound", onOff(settings.SoundEnabled)},
		{"Theme", string(settings.ThemeMode)},
		{"Settings password", onOff(settings.Password != "")},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Store", fmt.Sprintf("%s (%s)", a.store.Path(), a.cfg.Storage.Backend)},
		{"Log", a.cfg.LogPath},
		{"Process lister", a.cfg.Process.Lister},
	})
	tw.Render()
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	history := engine.History()
	if len(history) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[:historyLimit]
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Started", "Session", "Duration", "Earned"})
	for _, s := range history {
		tw.AppendRow(table.Row{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			ui.SessionLabel(s),
			ui.FormatDuration(s.DurationSeconds),
			ui.FormatEarned(s),
		})
	}
	tw.Render()
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	st := engine.Stats()

	tw := newTable()
	tw.SetTitle("Totals")
	tw.AppendHeader(table.Row{"", "Sessions", "Time"})
	tw.AppendRow(table.Row{"Work", st.WorkSessions, ui.FormatDuration(st.WorkSeconds)})
	tw.AppendRow(table.Row{"Game", st.GameSessions, ui.FormatDuration(st.GameSeconds)})
	tw.AppendFooter(table.Row{"Earned", "", ui.FormatClock(st.EarnedSeconds)})
	tw.Render()

	if len(st.ByCategory) > 0 {
		cats := make([]string, 0, len(st.ByCategory))
		for c := range st.ByCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return st.ByCategory[cats[i]] > st.ByCategory[cats[j]] })

		tw = newTable()
		tw.SetTitle("Work by category")
		tw.AppendHeader(table.Row{"Category", "Time"})
		for _, c := range cats {
			tw.AppendRow(table.Row{valueOr(c, "(none)"), ui.FormatDuration(st.ByCategory[c])})
		}
		tw.Render()
	}

	if len(st.Days) > 0 {
		days := st.Days
		if statsDays > 0 && len(days) > statsDays {
			days = days[:statsDays]
		}
		tw = newTable()
		tw.SetTitle("By day")
		tw.AppendHeader(table.Row{"Date", "Worked", "Played", "Earned"})
		for _, d := range days {
			tw.AppendRow(table.Row{
				d.Date,
				ui.FormatDuration(d.WorkSeconds),
				ui.FormatDuration(d.GameSeconds),
				ui.FormatClock(d.EarnedSeconds),
			})
		}
		tw.Render()
	}
	return nil
}

// recordingLister remembers the names returned by the last listing.
type recordingLister struct {
	domain.ProcessLister
	names []string
}

func (l *recordingLister) ListRunningProcessNames(ctx context.Context) ([]string, error) {
	names, err := l.ProcessLister.ListRunningProcessNames(ctx)
	l.names = names
	return names, err
}

func runScan(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	pm, err := infra.NewProcessManager(a.cfg.Process.Lister)
	if err != nil {
		return err
	}
	lister := &recordingLister{ProcessLister: pm}
	watchdog := daemon.NewWatchdog(daemon.DefaultWatchdogConfig(), lister, a.logger)
	blacklist := engine.Settings().BlacklistProcesses
	watchdog.UpdateBlacklist(blacklist)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	watchdog.Poll(ctx)

drain:
	for {
		select {
		case n := <-watchdog.Notifications():
			if n.Kind == domain.NotifyConnectivity && !n.Connected {
				return fmt.Errorf("failed to list processes: %w", n.Err)
			}
		default:
			break drain
		}
	}

	running := make(map[string]int)
	for _, name := range lister.names {
		running[config.NormalizeProcessName(name)]++
	}

	primary := watchdog.State().LastMatched
	tw := newTable()
	tw.AppendHeader(table.Row{"Process", "Running", ""})
	for _, name := range blacklist {
		mark := ""
		if name == primary {
			mark = "starts game session"
		}
		tw.AppendRow(table.Row{name, running[name], mark})
	}
	tw.Render()

	if primary == "" {
		fmt.Println("No blacklisted process is running.")
	}
	return nil
}

func runKill(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	names := args
	if len(names) == 0 {
		names = engine.Settings().BlacklistProcesses
	}
	if len(names) == 0 {
		fmt.Println("Blacklist is empty, nothing to kill.")
		return nil
	}

	pm, err := infra.NewProcessManager(a.cfg.Process.Lister)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result := usecase.NewEnforcer(pm, a.logger).KillAll(ctx, names)

	for _, name := range result.Killed {
		fmt.Printf("  - %s: killed or not running\n", name)
	}
	for _, err := range result.Errors {
		fmt.Printf("  ! %v\n", err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d kills failed", len(result.Errors), len(names))
	}
	return nil
}

func runResetBalance(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := engine.ResetBalanceToAllowance(); err != nil {
		return err
	}
	fmt.Printf("Balance: %s\n", ui.FormatClock(engine.Balance()))
	return nil
}
