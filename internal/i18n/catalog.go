// Package i18n は翻訳サブシステムを提供する。
// 言語ごとのメッセージカタログをバイナリに埋め込み、実行時に切り替える。
package i18n

import (
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/logimind/internal/model"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// fallback は翻訳が見つからない場合に参照する言語。
const fallback = model.LanguageFrench

// Catalog は読み込み済みの全言語カタログとアクティブな言語を保持する。
type Catalog struct {
	logger   *slog.Logger
	messages map[model.Language]map[string]string

	mu     sync.RWMutex
	active model.Language
}

// NewCatalog は埋め込みカタログを全言語分読み込んでCatalogを生成する。
// 初期言語はフォールバック言語になる。
func NewCatalog(logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		logger:   logger,
		messages: make(map[model.Language]map[string]string),
		active:   fallback,
	}

	for _, lang := range []model.Language{
		model.LanguageFrench,
		model.LanguageEnglish,
		model.LanguageSpanish,
		model.LanguageGerman,
	} {
		raw, err := localeFS.ReadFile(fmt.Sprintf("locales/%s.yaml", lang))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", lang, err)
		}
		msgs := make(map[string]string)
		if err := yaml.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", lang, err)
		}
		c.messages[lang] = msgs
	}

	return c, nil
}

// ChangeLanguage はアクティブな言語を切り替える。
// サポート外のコードは無視して警告を残す。
func (c *Catalog) ChangeLanguage(code model.Language) {
	if !code.Valid() {
		c.logger.Warn("unsupported language requested",
			slog.String("language", string(code)),
		)
		return
	}

	c.mu.Lock()
	c.active = code
	c.mu.Unlock()
}

// Active は現在アクティブな言語を返す。
func (c *Catalog) Active() model.Language {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// T はキーに対応する翻訳を返す。
// アクティブ言語に翻訳がない場合はフォールバック言語、それもなければキー自体を返す。
func (c *Catalog) T(key string) string {
	c.mu.RLock()
	active := c.active
	c.mu.RUnlock()

	if msg, ok := c.messages[active][key]; ok {
		return msg
	}
	if msg, ok := c.messages[fallback][key]; ok {
		return msg
	}
	return key
}
