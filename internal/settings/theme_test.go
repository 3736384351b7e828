package settings

import (
	"testing"

	"github.com/hitoshi/logimind/internal/model"
)

func TestApply_ExplicitDark_SetsDarkWithoutTracking(t *testing.T) {
	signal := newMockSignal(false)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)
	defer c.Close()

	c.Apply(model.ThemeDark)

	if !applier.isDark() {
		t.Error("expected dark flag to be set")
	}
	if c.TrackingSystem() {
		t.Error("expected no OS tracking for explicit theme")
	}
	if signal.listenerCount() != 0 {
		t.Errorf("listenerCount = %d, want 0", signal.listenerCount())
	}
}

func TestApply_System_ReadsSignalAtCallTime(t *testing.T) {
	signal := newMockSignal(true)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)
	defer c.Close()

	c.Apply(model.ThemeSystem)

	if !applier.isDark() {
		t.Error("expected dark flag to match OS preference")
	}
	if !c.TrackingSystem() {
		t.Error("expected OS tracking while theme is system")
	}
}

func TestApply_System_OSChangeFlipsAppliedFlag(t *testing.T) {
	signal := newMockSignal(false)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)
	defer c.Close()

	c.Apply(model.ThemeSystem)
	if applier.isDark() {
		t.Fatal("expected light before OS change")
	}

	// updateSettingなしでOS配色の変化だけが起きる
	signal.flip()

	if !applier.isDark() {
		t.Error("expected applied flag to follow OS change")
	}

	signal.flip()

	if applier.isDark() {
		t.Error("expected applied flag to follow OS change back to light")
	}
}

func TestApply_SwitchAwayFromSystem_ReleasesSubscription(t *testing.T) {
	signal := newMockSignal(true)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)
	defer c.Close()

	c.Apply(model.ThemeSystem)
	if signal.listenerCount() != 1 {
		t.Fatalf("listenerCount = %d, want 1", signal.listenerCount())
	}

	c.Apply(model.ThemeLight)

	if signal.listenerCount() != 0 {
		t.Errorf("listenerCount = %d, want 0 after leaving system", signal.listenerCount())
	}
	if applier.isDark() {
		t.Error("expected light theme to be applied")
	}

	// 解除後のOS変化は反映されない
	signal.flip()
	if applier.isDark() {
		t.Error("expected OS change to be ignored after leaving system")
	}
}

func TestApply_SystemTwice_KeepsSingleSubscription(t *testing.T) {
	signal := newMockSignal(false)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)
	defer c.Close()

	c.Apply(model.ThemeSystem)
	c.Apply(model.ThemeSystem)

	if signal.listenerCount() != 1 {
		t.Errorf("listenerCount = %d, want 1", signal.listenerCount())
	}
}

func TestClose_ReleasesSubscription(t *testing.T) {
	signal := newMockSignal(false)
	applier := &mockApplier{}
	c := NewThemeController(signal, applier)

	c.Apply(model.ThemeSystem)
	c.Close()

	if signal.listenerCount() != 0 {
		t.Errorf("listenerCount = %d, want 0 after Close", signal.listenerCount())
	}
}
