package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/policy"
)

var listCmd = &cobra.Command{
	Use:   "list [app-id]",
	Short: "List watched applications",
	Long: `Lists the applications that pause break timers while running,
with their process patterns and any matching processes running now.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}
	settings, err := infra.NewYAMLConfigStore(paths.SettingsPath).LoadDaemonSettings()
	if err != nil {
		return err
	}

	policies, err := selectPolicies(policy.NewPolicyStore(settings.Watch...), args)
	if err != nil {
		return err
	}
	return printPolicies(os.Stdout, policies, infra.NewProcessManager())
}

// selectPolicies returns the policy named in args, or all of them.
func selectPolicies(store domain.PolicyStore, args []string) ([]domain.WatchPolicy, error) {
	if len(args) == 0 {
		return store.GetAll(), nil
	}
	p, err := store.GetByID(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w (known: %v)", err, store.List())
	}
	return []domain.WatchPolicy{*p}, nil
}

func printPolicies(w io.Writer, policies []domain.WatchPolicy, pm domain.ProcessManager) error {
	fmt.Fprintln(w, "=== Watched Applications ===")
	for _, p := range policies {
		fmt.Fprintf(w, "\n[%s] %s\n", p.ID, p.Name)
		fmt.Fprintln(w, "  Processes:")
		for _, pattern := range p.ProcessPatterns {
			pids, err := pm.FindByName(pattern)
			switch {
			case err != nil:
				fmt.Fprintf(w, "    - %s (scan failed: %v)\n", pattern, err)
			case len(pids) > 0:
				fmt.Fprintf(w, "    - %s %s\n", pattern, color.New(color.FgGreen).Sprintf("running %v", pids))
			default:
				fmt.Fprintf(w, "    - %s\n", pattern)
			}
		}
	}
	return nil
}
