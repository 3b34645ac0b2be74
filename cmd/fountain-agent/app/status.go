package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fountainhq/fountain-agent/internal/config"
	"github.com/fountainhq/fountain-agent/internal/sync/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the per-platform sync state as JSON",
	RunE:  runStatus,
}

// runStatus reads the state document directly rather than calling a running
// agent, so it works whether or not serve is up.
func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	manager, err := config.NewManager(settingsPath())
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings := manager.Current()

	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	// Read the raw document instead of going through the store: the store's
	// Load applies (and persists) startup recovery, which must not happen
	// while a serve process may be mid-run.
	doc, err := state.NewFilePersistence(dataDir).LoadDocument(ctx)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(doc.Records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
