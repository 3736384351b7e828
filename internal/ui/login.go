package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginResultMsg はログインまたはサインアップ試行の結果を伝えるメッセージ。
type loginResultMsg struct {
	err error
}

// loginForm はログイン画面の入力状態を保持する。
// Ctrl+Sでログインとアカウント作成を切り替える。
// エラーはフォーム内にインライン表示し、次の送信開始時にクリアする。
type loginForm struct {
	email      textinput.Model
	password   textinput.Model
	focus      int // 0=email, 1=password
	signup     bool
	submitting bool
	errText    string
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "prenom.nom@example.com"
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 40

	return loginForm{
		email:    email,
		password: password,
	}
}

// Update はログイン画面へのキー入力を処理する。
// Enterで送信、Tabでフィールドを移動する。送信中は入力を受け付けない。
func (f loginForm) Update(msg tea.Msg, auth AuthController) (loginForm, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		f.submitting = false
		if msg.err != nil {
			f.errText = msg.err.Error()
		} else {
			f.errText = ""
			f.password.SetValue("")
		}
		return f, nil

	case tea.KeyMsg:
		if f.submitting {
			return f, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "down", "up":
			f.focus = 1 - f.focus
			if f.focus == 0 {
				f.email.Focus()
				f.password.Blur()
			} else {
				f.password.Focus()
				f.email.Blur()
			}
			return f, textinput.Blink
		case "ctrl+s":
			f.signup = !f.signup
			f.errText = ""
			return f, nil
		case "enter":
			email := strings.TrimSpace(f.email.Value())
			password := f.password.Value()
			if email == "" || password == "" {
				return f, nil
			}
			f.submitting = true
			f.errText = ""
			return f, submitCredentials(auth, email, password, f.signup)
		}
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

// submitCredentials はログインまたはサインアップを非同期に実行するコマンドを返す。
// 成功時のIdentity反映はRelay経由の購読イベントで届く。
func submitCredentials(auth AuthController, email, password string, signup bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if signup {
			err = auth.Signup(context.Background(), email, password)
		} else {
			err = auth.Login(context.Background(), email, password)
		}
		return loginResultMsg{err: err}
	}
}

// View はログイン画面を描画する。
func (f loginForm) View(styles Styles, texts TextSource) string {
	titleKey, toggleKey := "login.title", "login.signup"
	if f.signup {
		titleKey, toggleKey = "login.signup", "login.title"
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(texts.T(titleKey)))
	b.WriteString("\n\n")
	b.WriteString(styles.CardLabel.Render(texts.T("login.email")))
	b.WriteString("\n")
	b.WriteString(f.email.View())
	b.WriteString("\n\n")
	b.WriteString(styles.CardLabel.Render(texts.T("login.password")))
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n\n")

	submitKey := "login.submit"
	if f.signup {
		submitKey = "login.signup"
	}
	if f.submitting {
		b.WriteString(styles.Muted.Render(texts.T("common.loading")))
	} else {
		b.WriteString(styles.Muted.Render("⏎ " + texts.T(submitKey)))
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("ctrl+s " + texts.T(toggleKey)))
	}

	if f.errText != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.Error.Render(f.errText))
	}

	return styles.Content.Render(b.String())
}
