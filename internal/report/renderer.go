// Package report はAI生成レポートの表示整形を提供する。
// レポート本文はMarkdownで届くが、生成元の都合でHTML断片が混入することがある。
// 表示前にHTMLを許可リスト方式で除去し、端末向けにMarkdownを描画する。
package report

import (
	"fmt"
	"html"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer はレポート本文のサニタイズとMarkdown描画を行う。
// bluemondayの厳格ポリシーで全HTMLタグを除去し、テキストのみ残す。
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer はRendererの新しいインスタンスを生成する。
func NewRenderer() *Renderer {
	return &Renderer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はレポート本文からHTMLタグを除去する。
// Markdownの記法はそのまま残る。同一入力に対して常に同一出力を返す。
func (r *Renderer) Sanitize(content string) string {
	// StrictPolicyは特殊文字をエンティティ化するため、除去後に戻す
	return html.UnescapeString(r.policy.Sanitize(content))
}

// Render はレポート本文を端末表示用のスタイル付きテキストに変換する。
// widthは折り返し幅、darkは現在のテーマのダークフラグ。
func (r *Renderer) Render(content string, width int, dark bool) (string, error) {
	style := "light"
	if dark {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build markdown renderer: %w", err)
	}

	out, err := tr.Render(r.Sanitize(content))
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}
