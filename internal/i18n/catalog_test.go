package i18n

import (
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/logimind/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(testLogger())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func TestNewCatalog_DefaultsToFrench(t *testing.T) {
	c := newTestCatalog(t)

	if c.Active() != model.LanguageFrench {
		t.Errorf("Active() = %v, want fr", c.Active())
	}
	if got := c.T("settings.title"); got != "Paramètres" {
		t.Errorf("T(settings.title) = %q, want %q", got, "Paramètres")
	}
}

func TestChangeLanguage_SwitchesActiveCatalog(t *testing.T) {
	c := newTestCatalog(t)

	c.ChangeLanguage(model.LanguageEnglish)

	if c.Active() != model.LanguageEnglish {
		t.Errorf("Active() = %v, want en", c.Active())
	}
	if got := c.T("settings.title"); got != "Settings" {
		t.Errorf("T(settings.title) = %q, want %q", got, "Settings")
	}
}

func TestChangeLanguage_UnsupportedCode_KeepsCurrentLanguage(t *testing.T) {
	c := newTestCatalog(t)
	c.ChangeLanguage(model.LanguageGerman)

	c.ChangeLanguage(model.Language("ja"))

	if c.Active() != model.LanguageGerman {
		t.Errorf("Active() = %v, want de after rejected switch", c.Active())
	}
}

func TestT_MissingKey_ReturnsKeyItself(t *testing.T) {
	c := newTestCatalog(t)

	if got := c.T("missing.key"); got != "missing.key" {
		t.Errorf("T(missing.key) = %q, want the key itself", got)
	}
}

func TestT_AllLanguagesCoverNavigationKeys(t *testing.T) {
	c := newTestCatalog(t)

	keys := []string{
		"nav.dashboard", "nav.forecasts", "nav.map",
		"nav.report", "nav.profile", "nav.settings", "nav.logout",
	}
	for _, lang := range []model.Language{
		model.LanguageFrench, model.LanguageEnglish,
		model.LanguageSpanish, model.LanguageGerman,
	} {
		c.ChangeLanguage(lang)
		for _, key := range keys {
			if got := c.T(key); got == key {
				t.Errorf("language %s missing translation for %q", lang, key)
			}
		}
	}
}
