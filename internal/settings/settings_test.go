package settings

import (
	"path/filepath"
	"testing"
)

func TestSettingsDefaults(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.FlashModel != defaultFlashModel {
		t.Fatalf("expected default flash model, got %q", settings.FlashModel)
	}
	if settings.ProModel != defaultProModel {
		t.Fatalf("expected default pro model, got %q", settings.ProModel)
	}
	if settings.CacheTTLMinutes != 10 {
		t.Fatalf("expected default cache ttl, got %d", settings.CacheTTLMinutes)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "settings.json"))
	if _, err := store.Update(func(s *Settings) {
		s.ProModel = "gemini-2.5-pro"
		s.CacheTTLMinutes = 0
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.ProModel != "gemini-2.5-pro" {
		t.Fatalf("expected updated pro model, got %q", settings.ProModel)
	}
	if settings.CacheTTLMinutes != 0 {
		t.Fatalf("expected cache disabled, got %d", settings.CacheTTLMinutes)
	}
	if settings.FlashModel != defaultFlashModel {
		t.Fatalf("expected flash model backfilled, got %q", settings.FlashModel)
	}
}

func TestModelFor(t *testing.T) {
	s := defaultSettings()
	if s.ModelFor(ModelClassPro) != defaultProModel {
		t.Fatalf("expected pro model")
	}
	if s.ModelFor(ModelClassFlash) != defaultFlashModel {
		t.Fatalf("expected flash model")
	}
	if s.ModelFor("") != defaultFlashModel {
		t.Fatalf("expected flash model for unknown class")
	}
}
