package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/policy"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the process names that start a game session",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted process names",
	Args:  cobra.NoArgs,
	RunE:  runBlacklistList,
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add [process...]",
	Short: "Add process names, or every process of a preset",
	Example: `  focustimer blacklist add dota2.exe
  focustimer blacklist add --preset steam --start-target`,
	RunE: runBlacklistAdd,
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove process...",
	Short: "Remove process names",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBlacklistRemove,
}

var blacklistPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List known game presets",
	Args:  cobra.NoArgs,
	RunE:  runBlacklistPresets,
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage work categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work categories",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add name",
	Short: "Add a work category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

var categoryRemoveCmd = &cobra.Command{
	Use:   "remove name",
	Short: "Remove a work category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryRemove,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show, change, export and import settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set key value",
	Short: "Change one setting",
	Long: `Changes one setting. Keys:
  ratio            game seconds earned per work second (> 0)
  daily-allowance  minutes credited once per day (>= 0)
  start-target     URI or path opened on a manual game start
  sound            on or off
  theme            dark or light`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write settings as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSettingsExport,
}

var settingsImportCmd = &cobra.Command{
	Use:   "import file",
	Short: "Read settings from a YAML file (- for stdin)",
	Long: `Reads settings from YAML. Keys missing from the file keep their
current value. An empty or missing password keeps the current password.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsImport,
}

var settingsPasswordCmd = &cobra.Command{
	Use:   "password [new-password]",
	Short: "Set or remove the settings password",
	Long: `Sets the password that locks settings edits. Without an argument the new
password is read from the terminal. Use --clear to remove it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsPassword,
}

var (
	presetID       string
	useStartTarget bool
	exportPath     string
	exportPassword bool
	clearPassword  bool
)

var errLockedNoTerminal = errors.New("settings are locked; pass --password")

func init() {
	blacklistAddCmd.Flags().StringVar(&presetID, "preset", "", "Add every process of a preset (see 'blacklist presets')")
	blacklistAddCmd.Flags().BoolVar(&useStartTarget, "start-target", false, "Also use the preset's start target")
	settingsExportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "Write to file instead of stdout")
	settingsExportCmd.Flags().BoolVar(&exportPassword, "include-password", false, "Include the settings password")
	settingsPasswordCmd.Flags().BoolVar(&clearPassword, "clear", false, "Remove the password")

	blacklistCmd.AddCommand(blacklistListCmd, blacklistAddCmd, blacklistRemoveCmd, blacklistPresetsCmd)
	categoryCmd.AddCommand(categoryListCmd, categoryAddCmd, categoryRemoveCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsExportCmd, settingsImportCmd, settingsPasswordCmd)
}

// unlockSettings unlocks a password-protected engine with --password, or
// with a password read from the terminal.
func unlockSettings(cmd *cobra.Command, engine *usecase.Engine) error {
	if !engine.SettingsLocked() {
		return nil
	}
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errLockedNoTerminal
		}
		var err error
		if password, err = readPassword("Settings password: "); err != nil {
			return err
		}
	}
	return engine.UnlockSettings(password)
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func printList(header string, items []string) {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", header})
	for i, item := range items {
		tw.AppendRow(table.Row{i + 1, item})
	}
	tw.Render()
}

func runBlacklistList(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	names := engine.Settings().BlacklistProcesses
	if len(names) == 0 {
		fmt.Println("Blacklist is empty; no process starts a game session.")
		return nil
	}
	printList("Process", names)
	return nil
}

func runBlacklistAdd(cmd *cobra.Command, args []string) error {
	if presetID == "" && len(args) == 0 {
		return fmt.Errorf("give process names or --preset")
	}
	var preset *policy.Preset
	if presetID != "" {
		p, err := policy.NewRegistry().Get(presetID)
		if err != nil {
			return err
		}
		preset = &p
	}

	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := addToBlacklist(engine, args, preset, useStartTarget); err != nil {
		return err
	}
	fmt.Printf("Blacklist: %s\n", joinOr(engine.Settings().BlacklistProcesses, "(empty)"))
	return nil
}

// addToBlacklist adds names and the preset's processes in one settings
// change. withTarget also installs the preset's start target.
func addToBlacklist(engine *usecase.Engine, names []string, preset *policy.Preset, withTarget bool) error {
	s := engine.Settings()
	merged := append(s.BlacklistProcesses, names...)
	if preset != nil {
		merged = policy.MergeBlacklist(merged, *preset)
		if withTarget {
			s.StartTarget = preset.StartTarget
		}
	}
	s.BlacklistProcesses = config.NormalizeProcessNames(merged)
	return engine.ReplaceSettings(s)
}

func runBlacklistRemove(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, name := range args {
		if err := engine.RemoveBlacklistProcess(name); err != nil {
			return err
		}
	}
	fmt.Printf("Blacklist: %s\n", joinOr(engine.Settings().BlacklistProcesses, "(empty)"))
	return nil
}

func runBlacklistPresets(cmd *cobra.Command, args []string) error {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Name", "Processes", "Start target"})
	for _, p := range policy.NewRegistry().GetAll() {
		tw.AppendRow(table.Row{p.ID, p.Name, strings.Join(p.ProcessNames, ", "), p.StartTarget})
	}
	tw.Render()
	return nil
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	printList("Category", engine.Settings().Categories)
	return nil
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := engine.AddCategory(args[0]); err != nil {
		return err
	}
	fmt.Printf("Categories: %s\n", joinOr(engine.Settings().Categories, "(none)"))
	return nil
}

func runCategoryRemove(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := engine.RemoveCategory(args[0]); err != nil {
		return err
	}
	fmt.Printf("Categories: %s\n", joinOr(engine.Settings().Categories, "(none)"))
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	s := engine.Settings()
	tw := newTable()
	tw.AppendHeader(table.Row{"Key", "Value"})
	tw.AppendRows([]table.Row{
		{"ratio", strconv.FormatFloat(s.Ratio, 'g', -1, 64)},
		{"daily-allowance", s.DailyAllowance},
		{"start-target", s.StartTarget},
		{"sound", onOff(s.SoundEnabled)},
		{"theme", string(s.ThemeMode)},
		{"blacklist", joinOr(s.BlacklistProcesses, "(empty)")},
		{"categories", joinOr(s.Categories, "(none)")},
		{"password", onOff(s.Password != "")},
	})
	tw.Render()
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := applySetting(engine, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}

// applySetting parses value for key and applies it through the engine.
func applySetting(engine *usecase.Engine, key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ReplaceAll(strings.ToLower(key), "_", "-") {
	case "ratio":
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: ratio must be a number, got %q", usecase.ErrInvalidSetting, value)
		}
		return engine.SetRatio(ratio)
	case "daily-allowance":
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: daily allowance must be whole minutes, got %q", usecase.ErrInvalidSetting, value)
		}
		return engine.SetDailyAllowance(minutes)
	case "start-target":
		return engine.SetStartTarget(value)
	case "sound":
		enabled, err := parseOnOff(value)
		if err != nil {
			return err
		}
		return engine.SetSoundEnabled(enabled)
	case "theme":
		return engine.SetThemeMode(domain.ThemeMode(strings.ToLower(value)))
	default:
		return fmt.Errorf("unknown setting %q (ratio, daily-allowance, start-target, sound, theme)", key)
	}
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: expected on or off, got %q", usecase.ErrInvalidSetting, value)
	}
	return b, nil
}

func runSettingsExport(cmd *cobra.Command, args []string) error {
	a, engine, err := openViewer()
	if err != nil {
		return err
	}
	defer a.Close()

	var out io.Writer = os.Stdout
	if exportPath != "" {
		f, err := os.OpenFile(exportPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return exportSettings(out, engine.Settings(), exportPassword)
}

// exportSettings writes s as YAML. The password is left out unless asked for.
func exportSettings(w io.Writer, s domain.Settings, withPassword bool) error {
	raw := config.ToRaw(s)
	if !withPassword {
		raw.Password = nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return enc.Close()
}

func runSettingsImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open settings file: %w", err)
		}
		defer f.Close()
		in = f
	}

	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := importSettings(engine, in); err != nil {
		return err
	}
	fmt.Println("Settings imported.")
	return nil
}

// importSettings decodes YAML on top of the current settings, so missing
// keys keep their value, and installs the result.
func importSettings(engine *usecase.Engine, r io.Reader) error {
	raw := config.ToRaw(engine.Settings())
	raw.Password = nil
	if err := yaml.NewDecoder(r).Decode(raw); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("settings file is empty")
		}
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	if raw.Version != nil && *raw.Version > config.SettingsVersion {
		return fmt.Errorf("settings version %d is newer than supported version %d", *raw.Version, config.SettingsVersion)
	}
	return engine.ReplaceSettings(config.ResolveSettings(raw))
}

func runSettingsPassword(cmd *cobra.Command, args []string) error {
	a, engine, err := openEditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var password string
	switch {
	case clearPassword:
	case len(args) == 1:
		password = args[0]
	default:
		if password, err = readPassword("New password: "); err != nil {
			return err
		}
		confirm, err := readPassword("Repeat password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
		if password == "" {
			return fmt.Errorf("empty password; use --clear to remove it")
		}
	}

	if err := engine.SetPassword(password); err != nil {
		return err
	}
	if password == "" {
		fmt.Println("Settings password removed.")
	} else {
		fmt.Println("Settings password set.")
	}
	return nil
}
