package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hitoshi/logimind/internal/model"
	"github.com/hitoshi/logimind/internal/settings"
)

// settingsAppliedMsg は設定変更の適用結果を伝えるメッセージ。
type settingsAppliedMsg struct {
	err error
}

// settingsRow は設定画面の1行。値の表示と次の値への循環を知っている。
type settingsRow struct {
	labelKey string
	value    func(model.Settings) string
	cycle    func(model.Settings, SettingsController) error
}

func cycleString[T ~string](values []T, current T) T {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func notificationRow(labelKey string, get func(model.Notifications) bool, set func(*model.Notifications, bool)) settingsRow {
	return settingsRow{
		labelKey: labelKey,
		value: func(s model.Settings) string {
			return onOff(get(s.Notifications))
		},
		cycle: func(s model.Settings, svc SettingsController) error {
			// 通知グループは完全な置き換え値で更新する
			next := s.Notifications
			set(&next, !get(s.Notifications))
			return svc.Update(settings.KeyNotifications, next)
		},
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

var settingsRows = []settingsRow{
	{
		labelKey: "settings.theme",
		value:    func(s model.Settings) string { return string(s.Theme) },
		cycle: func(s model.Settings, svc SettingsController) error {
			next := cycleString([]model.Theme{model.ThemeLight, model.ThemeDark, model.ThemeSystem}, s.Theme)
			return svc.Update(settings.KeyTheme, next)
		},
	},
	{
		labelKey: "settings.language",
		value:    func(s model.Settings) string { return string(s.Language) },
		cycle: func(s model.Settings, svc SettingsController) error {
			next := cycleString([]model.Language{
				model.LanguageFrench,
				model.LanguageEnglish,
				model.LanguageSpanish,
				model.LanguageGerman,
			}, s.Language)
			return svc.Update(settings.KeyLanguage, next)
		},
	},
	{
		labelKey: "settings.date_format",
		value:    func(s model.Settings) string { return string(s.DateFormat) },
		cycle: func(s model.Settings, svc SettingsController) error {
			next := cycleString([]model.DateFormat{
				model.DateFormatDMY,
				model.DateFormatMDY,
				model.DateFormatYMD,
			}, s.DateFormat)
			return svc.Update(settings.KeyDateFormat, next)
		},
	},
	notificationRow("settings.notifications_realtime",
		func(n model.Notifications) bool { return n.RealTime },
		func(n *model.Notifications, v bool) { n.RealTime = v },
	),
	notificationRow("settings.notifications_reports",
		func(n model.Notifications) bool { return n.Reports },
		func(n *model.Notifications, v bool) { n.Reports = v },
	),
	notificationRow("settings.notifications_email",
		func(n model.Notifications) bool { return n.Email },
		func(n *model.Notifications, v bool) { n.Email = v },
	),
	notificationRow("settings.notifications_mobile",
		func(n model.Notifications) bool { return n.Mobile },
		func(n *model.Notifications, v bool) { n.Mobile = v },
	),
	{
		labelKey: "settings.expert_mode",
		value:    func(s model.Settings) string { return onOff(s.ExpertMode) },
		cycle: func(s model.Settings, svc SettingsController) error {
			return svc.Update(settings.KeyExpertMode, !s.ExpertMode)
		},
	},
}

// settingsPage は設定画面のカーソル位置と直近のエラー表示を保持する。
// 値そのものは保持せず、描画のたびにSettingsControllerから読む。
type settingsPage struct {
	cursor  int
	errText string
}

// Update は設定画面のキー入力を処理する。
// Enterまたは右キーで選択中の項目を次の値に進める。
func (p settingsPage) Update(msg tea.Msg, svc SettingsController) (settingsPage, tea.Cmd) {
	switch msg := msg.(type) {
	case settingsAppliedMsg:
		if msg.err != nil {
			p.errText = msg.err.Error()
		} else {
			p.errText = ""
		}
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(settingsRows)-1 {
				p.cursor++
			}
		case "enter", "right", "l", " ":
			row := settingsRows[p.cursor]
			current := svc.Current()
			return p, func() tea.Msg {
				return settingsAppliedMsg{err: row.cycle(current, svc)}
			}
		}
	}
	return p, nil
}

// View は設定画面を描画する。
func (p settingsPage) View(styles Styles, texts TextSource, current model.Settings) string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(texts.T("settings.title")))
	b.WriteString("\n\n")

	for i, row := range settingsRows {
		marker := "  "
		labelStyle := styles.CardLabel
		if i == p.cursor {
			marker = "❯ "
			labelStyle = styles.SidebarActive
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n",
			marker,
			labelStyle.Render(texts.T(row.labelKey)),
			styles.CardValue.Render(row.value(current)),
		))
	}

	if p.errText != "" {
		b.WriteString("\n")
		b.WriteString(styles.Error.Render(p.errText))
	}

	return styles.Content.Render(b.String())
}
