// Package settings persists backend configuration as JSON on disk.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const schemaVersion = 1

// Model classes. Flash handles the cheap high-volume calls (autocomplete,
// default chat); Pro handles document generation and agent edits.
const (
	ModelClassFlash = "flash"
	ModelClassPro   = "pro"
)

const (
	defaultFlashModel = "gemini-2.0-flash"
	defaultProModel   = "gemini-1.5-pro"
)

type Settings struct {
	SchemaVersion int    `json:"schema_version"`
	FlashModel    string `json:"flash_model"`
	ProModel      string `json:"pro_model"`
	// CacheTTLMinutes controls how long agent-edit results are memoized.
	// Zero disables the cache.
	CacheTTLMinutes int `json:"cache_ttl_minutes"`
}

// ModelFor maps a model class to a concrete model id. Unknown classes get
// the flash model, matching how the API treats a missing model field.
func (s *Settings) ModelFor(class string) string {
	if class == ModelClassPro {
		return s.ProModel
	}
	return s.FlashModel
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	backfillSettings(&settings)
	return &settings, nil
}

func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfillSettings(settings)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(settings)
	if err := s.Save(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func defaultSettings() *Settings {
	return &Settings{
		SchemaVersion:   schemaVersion,
		FlashModel:      defaultFlashModel,
		ProModel:        defaultProModel,
		CacheTTLMinutes: 10,
	}
}

func backfillSettings(settings *Settings) {
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = schemaVersion
	}
	if settings.FlashModel == "" {
		settings.FlashModel = defaultFlashModel
	}
	if settings.ProModel == "" {
		settings.ProModel = defaultProModel
	}
}
