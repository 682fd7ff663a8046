package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// Palette is one color theme.
type Palette struct {
	Base    lipgloss.Color
	Surface lipgloss.Color
	Border  lipgloss.Color
	Text    lipgloss.Color
	Subtext lipgloss.Color
	Accent  lipgloss.Color
	Work    lipgloss.Color
	Game    lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
	OK      lipgloss.Color
}

// Catppuccin Macchiato
var darkPalette = Palette{
	Base:    lipgloss.Color("#24273a"),
	Surface: lipgloss.Color("#363a4f"),
	Border:  lipgloss.Color("#5b6078"),
	Text:    lipgloss.Color("#cad3f5"),
	Subtext: lipgloss.Color("#a5adcb"),
	Accent:  lipgloss.Color("#8aadf4"),
	Work:    lipgloss.Color("#a6da95"),
	Game:    lipgloss.Color("#c6a0f6"),
	Warning: lipgloss.Color("#eed49f"),
	Danger:  lipgloss.Color("#ed8796"),
	OK:      lipgloss.Color("#8bd5ca"),
}

// Catppuccin Latte
var lightPalette = Palette{
	Base:    lipgloss.Color("#eff1f5"),
	Surface: lipgloss.Color("#ccd0da"),
	Border:  lipgloss.Color("#9ca0b0"),
	Text:    lipgloss.Color("#4c4f69"),
	Subtext: lipgloss.Color("#6c6f85"),
	Accent:  lipgloss.Color("#1e66f5"),
	Work:    lipgloss.Color("#40a02b"),
	Game:    lipgloss.Color("#8839ef"),
	Warning: lipgloss.Color("#df8e1d"),
	Danger:  lipgloss.Color("#d20f39"),
	OK:      lipgloss.Color("#179299"),
}

// PaletteFor returns the palette for a theme mode. Unknown modes are dark.
func PaletteFor(mode domain.ThemeMode) Palette {
	if mode == domain.ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// Styles holds every style used by the TUI
type Styles struct {
	Theme   domain.ThemeMode
	Palette Palette

	App         lipgloss.Style
	Title       lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Clock       lipgloss.Style
	Hint        lipgloss.Style
	HintKey     lipgloss.Style
	Notice      lipgloss.Style
	Error       lipgloss.Style
	Prompt      lipgloss.Style
	Overlay     lipgloss.Style
	OverlayText lipgloss.Style
	ConnUp      lipgloss.Style
	ConnDown    lipgloss.Style
	ConnUnknown lipgloss.Style
}

// NewStyles builds the styles for a theme mode
func NewStyles(mode domain.ThemeMode) *Styles {
	if !mode.Valid() {
		mode = domain.ThemeDark
	}
	p := PaletteFor(mode)
	return &Styles{
		Theme:   mode,
		Palette: p,

		App: lipgloss.NewStyle().
			Foreground(p.Text).
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		TabActive: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.Accent).
			Bold(true).
			Padding(0, 1),

		TabInactive: lipgloss.NewStyle().
			Foreground(p.Subtext).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Foreground(p.Subtext).
			Width(12),

		Value: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true),

		Clock: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 2),

		Hint: lipgloss.NewStyle().
			Foreground(p.Subtext),

		HintKey: lipgloss.NewStyle().
			Foreground(p.Warning).
			Bold(true),

		Notice: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.OK).
			Padding(0, 1),

		Error: lipgloss.NewStyle().
			Foreground(p.Base).
			Background(p.Danger).
			Padding(0, 1),

		Prompt: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(0, 1),

		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(p.Danger).
			Foreground(p.Danger).
			Bold(true).
			Padding(1, 4).
			Align(lipgloss.Center),

		OverlayText: lipgloss.NewStyle().
			Foreground(p.Text),

		ConnUp: lipgloss.NewStyle().
			Foreground(p.OK),

		ConnDown: lipgloss.NewStyle().
			Foreground(p.Danger).
			Bold(true),

		ConnUnknown: lipgloss.NewStyle().
			Foreground(p.Subtext),
	}
}

// ModeBadge returns the badge style for a timer mode.
func (s *Styles) ModeBadge(mode domain.Mode) lipgloss.Style {
	color := s.Palette.Subtext
	switch mode {
	case domain.ModeWorking:
		color = s.Palette.Work
	case domain.ModeGaming:
		color = s.Palette.Game
	}
	return lipgloss.NewStyle().
		Foreground(s.Palette.Base).
		Background(color).
		Bold(true).
		Padding(0, 1)
}
