package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional config.toml. Flags override every field.
type fileConfig struct {
	Rate          int     `toml:"rate"`
	Engine        string  `toml:"engine"`
	Volume        float64 `toml:"volume"`
	Backend       string  `toml:"backend"`
	ExportSeconds int     `toml:"export_seconds"`
	Presets       string  `toml:"presets"`
	Frames        int     `toml:"frames"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Rate:          8000,
		Engine:        "classic",
		Volume:        0.5,
		Backend:       "portaudio",
		ExportSeconds: 30,
		Frames:        1024,
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bytebeat", "config.toml")
}

// loadFileConfig decodes path over the defaults. A missing file at the
// default location is not an error.
func loadFileConfig(path string, explicit bool) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return defaultFileConfig(), nil
		}
		return defaultFileConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, fmt.Errorf("config %s: unknown key %q", path, undec[0].String())
	}
	return cfg, nil
}
