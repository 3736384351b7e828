// Package model はドメインモデルを定義する。
package model

// Theme は表示テーマを表す。
type Theme string

const (
	// ThemeLight はライトテーマ固定を示す。
	ThemeLight Theme = "light"
	// ThemeDark はダークテーマ固定を示す。
	ThemeDark Theme = "dark"
	// ThemeSystem はOSの配色設定に追従することを示す。
	ThemeSystem Theme = "system"
)

// Valid はテーマ値が定義済みのいずれかであるかを返す。
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Language は表示言語を表す。
type Language string

const (
	// LanguageFrench はフランス語表示を示す。
	LanguageFrench Language = "fr"
	// LanguageEnglish は英語表示を示す。
	LanguageEnglish Language = "en"
	// LanguageSpanish はスペイン語表示を示す。
	LanguageSpanish Language = "es"
	// LanguageGerman はドイツ語表示を示す。
	LanguageGerman Language = "de"
)

// Valid は言語コードがサポート対象のいずれかであるかを返す。
func (l Language) Valid() bool {
	switch l {
	case LanguageFrench, LanguageEnglish, LanguageSpanish, LanguageGerman:
		return true
	}
	return false
}

// DateFormat は日付の表示形式を表す。
type DateFormat string

const (
	// DateFormatDMY は dd/mm/yyyy 形式を示す。
	DateFormatDMY DateFormat = "dd/mm/yyyy"
	// DateFormatMDY は mm/dd/yyyy 形式を示す。
	DateFormatMDY DateFormat = "mm/dd/yyyy"
	// DateFormatYMD は yyyy-mm-dd 形式を示す。
	DateFormatYMD DateFormat = "yyyy-mm-dd"
)

// Valid は日付形式が定義済みのいずれかであるかを返す。
func (f DateFormat) Valid() bool {
	switch f {
	case DateFormatDMY, DateFormatMDY, DateFormatYMD:
		return true
	}
	return false
}

// Notifications は通知チャネルごとの有効/無効フラグを表す。
// 4つのフラグは互いに独立しており、まとめて置き換えられる。
type Notifications struct {
	RealTime bool `json:"realTime"`
	Reports  bool `json:"reports"`
	Email    bool `json:"email"`
	Mobile   bool `json:"mobile"`
}

// Settings はユーザーの表示・動作設定を表す。
// 全フィールドは常に有効な値を持ち、欠損は許されない。
// 永続化レイアウト（JSONキー）は変更してはならない。
type Settings struct {
	Theme            Theme         `json:"theme"`
	Language         Language      `json:"language"`
	DateFormat       DateFormat    `json:"dateFormat"`
	Notifications    Notifications `json:"notifications"`
	DefaultWarehouse string        `json:"defaultWarehouse"`
	DefaultPeriod    string        `json:"defaultPeriod"`
	ExpertMode       bool          `json:"expertMode"`
}
