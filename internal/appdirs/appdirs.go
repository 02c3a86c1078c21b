package appdirs

import (
	"os"
	"path/filepath"
)

const appDirName = "texforge"

func DataDir() (string, error) {
	if override := os.Getenv("TEXFORGE_DATA_DIR"); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}
