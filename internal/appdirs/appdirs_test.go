package appdirs

import (
	"os"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	os.Setenv("TEXFORGE_DATA_DIR", "/tmp/texforge-test")
	defer os.Unsetenv("TEXFORGE_DATA_DIR")
	path, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if path != "/tmp/texforge-test" {
		t.Fatalf("expected override path, got %s", path)
	}
}
