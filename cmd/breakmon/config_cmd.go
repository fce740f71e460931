package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change break settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective break settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print file locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change break settings",
	Long: `Changes break settings on the running daemon, or in the settings file
when the daemon is not running. Only the given flags are changed.
Durations use Go syntax, e.g. 4m, 13s, 1h. Changing settings restarts all timers.`,
	Example: `  breakmon config set --mini-interval 5m --mini-duration 20s
  breakmon config set --work-interval 1h --postpone 10m`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

// configFlags maps flag names to the patch field they set.
var configFlags = []struct {
	name  string
	usage string
	set   func(p *domain.ConfigPatch, d time.Duration)
}{
	{"mini-interval", "Work time between micro breaks", func(p *domain.ConfigPatch, d time.Duration) {
		miniPatch(p).IntervalSeconds = domain.Seconds(d.Seconds())
	}},
	{"mini-duration", "Length of a micro break", func(p *domain.ConfigPatch, d time.Duration) {
		miniPatch(p).DurationSeconds = domain.Seconds(d.Seconds())
	}},
	{"work-interval", "Work time between rest breaks", func(p *domain.ConfigPatch, d time.Duration) {
		workPatch(p).IntervalSeconds = domain.Seconds(d.Seconds())
	}},
	{"work-duration", "Length of a rest break", func(p *domain.ConfigPatch, d time.Duration) {
		workPatch(p).DurationSeconds = domain.Seconds(d.Seconds())
	}},
	{"postpone", "How far postponing pushes the rest break", func(p *domain.ConfigPatch, d time.Duration) {
		workPatch(p).PostponeSeconds = domain.Seconds(d.Seconds())
	}},
	{"tick", "Timer update interval", func(p *domain.ConfigPatch, d time.Duration) {
		p.TickIntervalMs = domain.Seconds(float64(d) / float64(time.Millisecond))
	}},
	{"natural-window", "Idle time that counts as a natural break", func(p *domain.ConfigPatch, d time.Duration) {
		p.NaturalBreakContinuationWindowSeconds = domain.Seconds(d.Seconds())
	}},
}

func init() {
	for _, f := range configFlags {
		configSetCmd.Flags().Duration(f.name, 0, f.usage)
	}
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
}

func miniPatch(p *domain.ConfigPatch) *domain.BreakConfigPatch {
	if p.Mini == nil {
		p.Mini = &domain.BreakConfigPatch{}
	}
	return p.Mini
}

func workPatch(p *domain.ConfigPatch) *domain.WorkBreakConfigPatch {
	if p.Work == nil {
		p.Work = &domain.WorkBreakConfigPatch{}
	}
	return p.Work
}

// buildConfigPatch turns the flags that were set into a patch.
func buildConfigPatch(flags *pflag.FlagSet) (domain.ConfigPatch, error) {
	var patch domain.ConfigPatch
	for _, f := range configFlags {
		if !flags.Changed(f.name) {
			continue
		}
		d, err := flags.GetDuration(f.name)
		if err != nil {
			return patch, err
		}
		if d < 0 {
			return patch, fmt.Errorf("--%s must not be negative", f.name)
		}
		f.set(&patch, d)
	}
	if patch.IsEmpty() {
		return patch, fmt.Errorf("no settings given")
	}
	return patch, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	patch, err := buildConfigPatch(cmd.Flags())
	if err != nil {
		return err
	}

	paths, err := resolvePaths()
	if err != nil {
		return err
	}
	req := transport.Request{Command: transport.CmdSetConfig, Config: &patch}
	view, err := transport.SendCommand(paths.SocketPath, req)
	if err == nil {
		return printView(os.Stdout, *view)
	}
	if !errors.Is(err, transport.ErrDaemonNotRunning) {
		return err
	}

	// Daemon is down: edit the settings file directly.
	cfg, err := updateSettingsFile(infra.NewYAMLConfigStore(paths.SettingsPath), patch)
	if err != nil {
		return err
	}
	fmt.Printf("Daemon not running; saved to %s\n", paths.SettingsPath)
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

// updateSettingsFile layers patch over the stored timer config and saves the result.
func updateSettingsFile(store *infra.YAMLConfigStore, patch domain.ConfigPatch) (domain.Config, error) {
	stored, err := store.LoadConfig()
	if err != nil {
		return domain.Config{}, err
	}
	if stored != nil {
		patch = stored.Merge(patch)
	}
	cfg := domain.ApplyPatch(domain.DefaultConfig(), patch)
	if err := store.SaveConfig(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}
	fmt.Printf("Settings:   %s\n", paths.SettingsPath)
	fmt.Printf("Config dir: %s\n", paths.ConfigDir)
	fmt.Printf("Data dir:   %s\n", paths.DataDir)
	fmt.Printf("Socket:     %s\n", paths.SocketPath)
	fmt.Printf("Status DB:  %s\n", paths.StatusDBPath)
	fmt.Printf("Key:        %s\n", infra.NewFileKeyProvider(paths.DataDir).Path())
	fmt.Printf("Log:        %s\n", paths.LogPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, source, err := effectiveConfig()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n", source)
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

// effectiveConfig asks the daemon, falling back to the settings file.
func effectiveConfig() (domain.Config, string, error) {
	paths, err := resolvePaths()
	if err != nil {
		return domain.Config{}, "", err
	}
	if view, err := transport.SendCommand(paths.SocketPath, transport.Request{Command: transport.CmdStatus}); err == nil {
		return view.Config, "running daemon", nil
	}

	patch, err := infra.NewYAMLConfigStore(paths.SettingsPath).LoadConfig()
	if err != nil {
		return domain.Config{}, "", err
	}
	cfg := domain.DefaultConfig()
	if patch != nil {
		cfg = domain.ApplyPatch(cfg, *patch)
	}
	return cfg, paths.SettingsPath, nil
}
