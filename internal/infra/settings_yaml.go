package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const (
	defaultLogLevel            = "info"
	defaultStreamAddr          = "127.0.0.1:7345"
	defaultProcessScanInterval = 5
	defaultHeartbeatInterval   = 30
)

// DaemonSettings configures the daemon itself, as opposed to the timers.
type DaemonSettings struct {
	LogLevel                   string   `yaml:"log_level"`
	StreamAddr                 string   `yaml:"stream_addr"`
	ProcessScanIntervalSeconds int      `yaml:"process_scan_interval_seconds"`
	HeartbeatIntervalSeconds   int      `yaml:"heartbeat_interval_seconds"`
	Watch                      []string `yaml:"watch,omitempty"`
}

// DefaultDaemonSettings returns the built-in daemon settings.
// An empty StreamAddr disables the event stream.
func DefaultDaemonSettings() DaemonSettings {
	return DaemonSettings{
		LogLevel:                   defaultLogLevel,
		StreamAddr:                 defaultStreamAddr,
		ProcessScanIntervalSeconds: defaultProcessScanInterval,
		HeartbeatIntervalSeconds:   defaultHeartbeatInterval,
	}
}

// ProcessScanInterval returns the scan period as a duration.
func (d DaemonSettings) ProcessScanInterval() time.Duration {
	return time.Duration(d.ProcessScanIntervalSeconds) * time.Second
}

// HeartbeatInterval returns the heartbeat period as a duration.
func (d DaemonSettings) HeartbeatInterval() time.Duration {
	return time.Duration(d.HeartbeatIntervalSeconds) * time.Second
}

type yamlSettings struct {
	Timer  *domain.ConfigPatch `yaml:"timer,omitempty"`
	Daemon *yamlDaemonSettings `yaml:"daemon,omitempty"`
}

// yamlDaemonSettings distinguishes an absent stream_addr (default) from an
// explicitly empty one (disabled).
type yamlDaemonSettings struct {
	LogLevel                   string   `yaml:"log_level,omitempty"`
	StreamAddr                 *string  `yaml:"stream_addr,omitempty"`
	ProcessScanIntervalSeconds int      `yaml:"process_scan_interval_seconds,omitempty"`
	HeartbeatIntervalSeconds   int      `yaml:"heartbeat_interval_seconds,omitempty"`
	Watch                      []string `yaml:"watch,omitempty"`
}

// YAMLConfigStore implements domain.ConfigStore on a settings.yaml file.
// Saving the timer config preserves the daemon section.
type YAMLConfigStore struct {
	path string
	mu   sync.Mutex
}

// NewYAMLConfigStore creates a store for the given settings file.
func NewYAMLConfigStore(path string) *YAMLConfigStore {
	return &YAMLConfigStore{path: path}
}

// Path returns the settings file path.
func (s *YAMLConfigStore) Path() string {
	return s.path
}

// LoadConfig returns the persisted timer overrides.
// If the settings file does not exist, nil is returned.
func (s *YAMLConfigStore) LoadConfig() (*domain.ConfigPatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, err
	}
	if file.Timer == nil || file.Timer.IsEmpty() {
		return nil, nil
	}
	return file.Timer, nil
}

// LoadDaemonSettings returns the daemon section merged over defaults.
func (s *YAMLConfigStore) LoadDaemonSettings() (DaemonSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultDaemonSettings()
	file, err := s.read()
	if err != nil {
		return settings, err
	}
	if file.Daemon == nil {
		return settings, nil
	}

	d := file.Daemon
	if lvl := strings.TrimSpace(d.LogLevel); lvl != "" {
		settings.LogLevel = lvl
	}
	if d.StreamAddr != nil {
		settings.StreamAddr = strings.TrimSpace(*d.StreamAddr)
	}
	if d.ProcessScanIntervalSeconds > 0 {
		settings.ProcessScanIntervalSeconds = d.ProcessScanIntervalSeconds
	}
	if d.HeartbeatIntervalSeconds > 0 {
		settings.HeartbeatIntervalSeconds = d.HeartbeatIntervalSeconds
	}
	settings.Watch = d.Watch
	return settings, nil
}

// SaveConfig writes the full timer config, keeping any daemon section.
// A settings file that does not parse is left untouched and an error returned.
func (s *YAMLConfigStore) SaveConfig(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		// Never overwrite a file we could not read; it holds the daemon section too.
		return fmt.Errorf("keep settings file %s: %w", s.path, err)
	}
	patch := domain.PatchFromConfig(cfg)
	file.Timer = &patch

	serialized, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

func (s *YAMLConfigStore) read() (yamlSettings, error) {
	var file yamlSettings
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return yamlSettings{}, fmt.Errorf("parse settings yaml: %w", err)
	}
	return file, nil
}

// Ensure YAMLConfigStore implements domain.ConfigStore.
var _ domain.ConfigStore = (*YAMLConfigStore)(nil)
