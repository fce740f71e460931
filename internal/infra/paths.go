package infra

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

const (
	appName          = "breakmon"
	settingsFileName = "settings.yaml"
	socketFileName   = "breakmon.sock"
	logFileName      = "breakmon.log"
)

// Paths holds every filesystem location breakmon uses.
type Paths struct {
	DataDir      string // key, status database, socket, log
	ConfigDir    string // settings.yaml
	SettingsPath string
	SocketPath   string
	LogPath      string
	StatusDBPath string
}

// DetectPaths resolves default locations for the invoking user.
// dataDir and configFile override the defaults when non-empty.
func DetectPaths(dataDir, configFile string) (*Paths, error) {
	home := GetRealUserHome()
	if home == "" {
		return nil, fmt.Errorf("cannot resolve home directory")
	}

	if dataDir == "" {
		dataDir = filepath.Join(home, "."+appName)
	}
	dataDir = ExpandHome(home, dataDir)

	var configDir string
	if configFile != "" {
		configFile = ExpandHome(home, configFile)
		configDir = filepath.Dir(configFile)
	} else {
		base, err := os.UserConfigDir()
		if err != nil {
			base = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(base, appName)
		configFile = filepath.Join(configDir, settingsFileName)
	}

	return &Paths{
		DataDir:      dataDir,
		ConfigDir:    configDir,
		SettingsPath: configFile,
		SocketPath:   filepath.Join(dataDir, socketFileName),
		LogPath:      filepath.Join(dataDir, logFileName),
		StatusDBPath: filepath.Join(dataDir, statusDBName),
	}, nil
}

// EnsureDataDir creates the data directory with owner-only permissions.
func (p *Paths) EnsureDataDir() error {
	if err := os.MkdirAll(p.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}

// ExpandHome expands a leading ~ to home.
func ExpandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		return home
	}
	return path
}
