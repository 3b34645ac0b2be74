package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync [platform]",
	Short: "Run one sync immediately and exit",
	Long: `Run a single sync outside the scheduler. With a platform argument only
that platform syncs; without one, every enabled platform syncs in order.
Outcomes print as JSON on stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// buildEngine locks the state directory, so a one-off sync cannot run
	// while a serve process owns it; use the serve control API instead.
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.close()

	var targets []platform.Platform
	if len(args) == 1 {
		p, err := platform.Parse(args[0])
		if err != nil {
			return err
		}
		targets = []platform.Platform{p}
	} else {
		settings := eng.manager.Current()
		for _, p := range platform.All() {
			if settings.Enabled(p) {
				targets = append(targets, p)
			}
		}
	}

	outcomes := make([]sync.Outcome, 0, len(targets))
	failed := false
	for _, p := range targets {
		outcome := eng.session.Run(ctx, p)
		if !outcome.Success {
			failed = true
		}
		outcomes = append(outcomes, outcome)
	}

	output, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))

	if failed {
		return fmt.Errorf("one or more platforms failed to sync")
	}
	return nil
}
