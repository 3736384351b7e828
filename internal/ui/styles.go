package ui

import "github.com/charmbracelet/lipgloss"

// Styles は画面全体で使うlipglossスタイルの集合。
// ダークかどうかのフラグから一括で構築し、配色変更時は丸ごと作り直す。
type Styles struct {
	Dark bool

	Title         lipgloss.Style
	Sidebar       lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style
	Card          lipgloss.Style
	CardLabel     lipgloss.Style
	CardValue     lipgloss.Style
	Content       lipgloss.Style
	Error         lipgloss.Style
	Muted         lipgloss.Style
	Severity      map[string]lipgloss.Style
}

// NewStyles は配色フラグに応じたスタイル一式を構築する。
func NewStyles(dark bool) Styles {
	var (
		accent  = lipgloss.Color("33")
		text    = lipgloss.Color("235")
		muted   = lipgloss.Color("245")
		surface = lipgloss.Color("254")
	)
	if dark {
		accent = lipgloss.Color("39")
		text = lipgloss.Color("252")
		muted = lipgloss.Color("243")
		surface = lipgloss.Color("236")
	}

	return Styles{
		Dark: dark,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1),
		Sidebar: lipgloss.NewStyle().
			Padding(1, 2).
			MarginRight(2).
			Background(surface),
		SidebarItem: lipgloss.NewStyle().
			Foreground(text),
		SidebarActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 2).
			MarginRight(1),
		CardLabel: lipgloss.NewStyle().
			Foreground(muted),
		CardValue: lipgloss.NewStyle().
			Bold(true).
			Foreground(text),
		Content: lipgloss.NewStyle().
			Padding(1, 2),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Severity: map[string]lipgloss.Style{
			"critical": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			"warning":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			"info":     lipgloss.NewStyle().Foreground(accent),
		},
	}
}

func (s Styles) severity(level string) lipgloss.Style {
	if st, ok := s.Severity[level]; ok {
		return st
	}
	return s.Muted
}
