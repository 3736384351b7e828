// Package settings はユーザー設定の保持・更新・永続化と派生効果の適用を担う。
// 設定はローカルストアの固定キーにJSONとして保存され、起動時に既定値へ
// 浅いマージで重ねて読み込まれる。
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/logimind/internal/model"
	"github.com/hitoshi/logimind/internal/store"
)

// storeKey は設定をローカルストアに保存するキー。
const storeKey = "logimind-settings"

// 設定キー。Updateの第1引数に指定する。
const (
	KeyTheme            = "theme"
	KeyLanguage         = "language"
	KeyDateFormat       = "dateFormat"
	KeyNotifications    = "notifications"
	KeyDefaultWarehouse = "defaultWarehouse"
	KeyDefaultPeriod    = "defaultPeriod"
	KeyExpertMode       = "expertMode"
)

// Translator は翻訳サブシステムを表す。
// 言語設定の変更時に呼ばれる。結果は待たない（fire-and-forget）。
type Translator interface {
	ChangeLanguage(code model.Language)
}

// Defaults はハードコードされた既定の設定を返す。
func Defaults() model.Settings {
	return model.Settings{
		Theme:      model.ThemeSystem,
		Language:   model.LanguageFrench,
		DateFormat: model.DateFormatDMY,
		Notifications: model.Notifications{
			RealTime: true,
			Reports:  true,
			Email:    false,
			Mobile:   true,
		},
		DefaultWarehouse: "paris",
		DefaultPeriod:    "4-semaines",
		ExpertMode:       false,
	}
}

// Service はユーザー設定のサービス層。
// 設定の唯一の書き込み元であり、更新のたびにストアへ全体を書き戻す。
type Service struct {
	kv         store.KV
	translator Translator
	theme      *ThemeController
	logger     *slog.Logger

	mu          sync.Mutex
	current     model.Settings
	subscribers map[int]func(model.Settings)
	nextID      int
}

// NewService はServiceを生成する。
// ストアから保存済み設定を同期的に読み込んで既定値にマージし、
// 読み込んだ言語とテーマを即座に適用する。
func NewService(kv store.KV, translator Translator, theme *ThemeController, logger *slog.Logger) *Service {
	s := &Service{
		kv:          kv,
		translator:  translator,
		theme:       theme,
		logger:      logger,
		current:     load(kv, logger),
		subscribers: make(map[int]func(model.Settings)),
	}

	s.translator.ChangeLanguage(s.current.Language)
	s.theme.Apply(s.current.Theme)

	return s
}

// load はストアの保存値を既定値に浅くマージして返す。
// 保存値が存在しない、または解釈できない場合は既定値をそのまま使う。
// 新しく追加されたフィールドは保存値に含まれないため、常に既定値を持つ。
func load(kv store.KV, logger *slog.Logger) model.Settings {
	settings := Defaults()

	raw, ok := kv.Get(storeKey)
	if !ok {
		return settings
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		logger.Warn("stored settings are not valid JSON, using defaults",
			slog.String("error", err.Error()),
		)
		return settings
	}

	mergeField(fields, KeyTheme, &settings.Theme, model.Theme.Valid)
	mergeField(fields, KeyLanguage, &settings.Language, model.Language.Valid)
	mergeField(fields, KeyDateFormat, &settings.DateFormat, model.DateFormat.Valid)
	mergeField(fields, KeyNotifications, &settings.Notifications, nil)
	mergeField(fields, KeyDefaultWarehouse, &settings.DefaultWarehouse, notEmpty)
	mergeField(fields, KeyDefaultPeriod, &settings.DefaultPeriod, notEmpty)
	mergeField(fields, KeyExpertMode, &settings.ExpertMode, nil)

	return settings
}

// mergeField は保存値の1フィールドをデコードして反映する。
// フィールドが存在しない、デコードできない、または検証に失敗した場合は
// 既定値を維持する。
func mergeField[T any](fields map[string]json.RawMessage, key string, dst *T, valid func(T) bool) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	if valid != nil && !valid(v) {
		return
	}
	*dst = v
}

func notEmpty(s string) bool { return s != "" }

// Current は現在の設定のコピーを返す。
func (s *Service) Current() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update は設定の最上位フィールドを1つだけ置き換える。
// 値はフィールドの定義域に対して検証され、定義域外の値はエラーになる。
// 更新後、設定全体がストアに書き戻され、フィールドに応じた派生効果
// （テーマ再適用・翻訳ロケール切り替え）が同じ呼び出し内で実行される。
// ストアへの書き込み失敗は警告ログとエラー返却で伝え、メモリ上の値は維持する。
func (s *Service) Update(key string, value any) error {
	s.mu.Lock()

	next := s.current
	if err := assign(&next, key, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next

	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	writeErr := s.kv.Set(storeKey, string(raw))
	s.mu.Unlock()

	if writeErr != nil {
		s.logger.Warn("failed to persist settings",
			slog.String("key", key),
			slog.String("error", writeErr.Error()),
		)
	}

	// 派生効果はトリガーしたフィールドに対してのみ実行する
	switch key {
	case KeyTheme:
		s.theme.Apply(next.Theme)
	case KeyLanguage:
		s.translator.ChangeLanguage(next.Language)
	}

	s.notify(next)

	if writeErr != nil {
		return model.NewStoreWriteFailedError(writeErr.Error())
	}
	return nil
}

// assign はキーに対応するフィールドへ値を検証付きで代入する。
func assign(settings *model.Settings, key string, value any) error {
	switch key {
	case KeyTheme:
		v, ok := toStringLike[model.Theme](value)
		if !ok || !v.Valid() {
			return model.NewInvalidSettingError(key, value)
		}
		settings.Theme = v
	case KeyLanguage:
		v, ok := toStringLike[model.Language](value)
		if !ok || !v.Valid() {
			return model.NewInvalidSettingError(key, value)
		}
		settings.Language = v
	case KeyDateFormat:
		v, ok := toStringLike[model.DateFormat](value)
		if !ok || !v.Valid() {
			return model.NewInvalidSettingError(key, value)
		}
		settings.DateFormat = v
	case KeyNotifications:
		// 通知グループは呼び出し側が完全な置き換え値を渡す
		v, ok := value.(model.Notifications)
		if !ok {
			return model.NewInvalidSettingError(key, value)
		}
		settings.Notifications = v
	case KeyDefaultWarehouse:
		v, ok := value.(string)
		if !ok || v == "" {
			return model.NewInvalidSettingError(key, value)
		}
		settings.DefaultWarehouse = v
	case KeyDefaultPeriod:
		v, ok := value.(string)
		if !ok || v == "" {
			return model.NewInvalidSettingError(key, value)
		}
		settings.DefaultPeriod = v
	case KeyExpertMode:
		v, ok := value.(bool)
		if !ok {
			return model.NewInvalidSettingError(key, value)
		}
		settings.ExpertMode = v
	default:
		return model.NewUnknownSettingKeyError(key)
	}
	return nil
}

// toStringLike は文字列または文字列由来の型を目的の型に変換する。
func toStringLike[T ~string](value any) (T, bool) {
	switch v := value.(type) {
	case T:
		return v, true
	case string:
		return T(v), true
	}
	var zero T
	return zero, false
}

// FormatDate は現在の日付形式設定に従って日付を整形する。
// 日と月は2桁ゼロ埋め、年は4桁。タイムゾーン変換は行わず、
// 渡された日付のカレンダーフィールドをそのまま使う。
func (s *Service) FormatDate(t time.Time) string {
	s.mu.Lock()
	format := s.current.DateFormat
	s.mu.Unlock()

	day := t.Day()
	month := int(t.Month())
	year := t.Year()

	switch format {
	case model.DateFormatMDY:
		return fmt.Sprintf("%02d/%02d/%04d", month, day, year)
	case model.DateFormatYMD:
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	default:
		return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
	}
}

// Subscribe は設定変更の通知を購読し、解除関数を返す。
func (s *Service) Subscribe(fn func(model.Settings)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
		})
	}
}

// Close はテーマコントローラのOS追従を解除する。
func (s *Service) Close() {
	s.theme.Close()
}

func (s *Service) notify(settings model.Settings) {
	s.mu.Lock()
	fns := make([]func(model.Settings), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(settings)
	}
}
