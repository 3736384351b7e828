package ui

import (
	"fmt"
	"strings"
)

// sidebarEntry はサイドバーの1項目。ラベルは翻訳キーで持つ。
type sidebarEntry struct {
	path     string
	labelKey string
	shortcut string
}

// sidebarEntries は表示順のナビゲーション項目。
var sidebarEntries = []sidebarEntry{
	{path: PathDashboard, labelKey: "nav.dashboard", shortcut: "1"},
	{path: PathForecasts, labelKey: "nav.forecasts", shortcut: "2"},
	{path: PathMap, labelKey: "nav.map", shortcut: "3"},
	{path: PathReport, labelKey: "nav.report", shortcut: "4"},
	{path: PathProfile, labelKey: "nav.profile", shortcut: "5"},
	{path: PathSettings, labelKey: "nav.settings", shortcut: "6"},
}

// Sidebar はサイドバーの展開状態を保持する。
// 展開状態は永続化せず、起動のたびに展開で始まる。
type Sidebar struct {
	expanded bool
}

// NewSidebar は展開状態のSidebarを生成する。
func NewSidebar() *Sidebar {
	return &Sidebar{expanded: true}
}

// Toggle は展開/折りたたみを切り替える。
func (s *Sidebar) Toggle() {
	s.expanded = !s.expanded
}

// Expanded は現在展開されているかを返す。
func (s *Sidebar) Expanded() bool {
	return s.expanded
}

// View はサイドバーを描画する。折りたたみ時はショートカットのみ表示する。
func (s *Sidebar) View(styles Styles, texts TextSource, activePath string) string {
	var b strings.Builder
	for i, entry := range sidebarEntries {
		if i > 0 {
			b.WriteString("\n")
		}

		style := styles.SidebarItem
		marker := "  "
		if entry.path == activePath {
			style = styles.SidebarActive
			marker = "❯ "
		}

		if s.expanded {
			b.WriteString(style.Render(fmt.Sprintf("%s%s %s", marker, entry.shortcut, texts.T(entry.labelKey))))
		} else {
			b.WriteString(style.Render(marker + entry.shortcut))
		}
	}
	return styles.Sidebar.Render(b.String())
}
