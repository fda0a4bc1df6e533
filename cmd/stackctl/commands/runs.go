package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstack/stackctl/internal/config"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/journal"
)

var runsPrune int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded provisioning runs",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsPrune, "prune", 0, "Keep only the newest N runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := ensureParentDirs(cfg.JournalPath); err != nil {
		return err
	}

	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	if runsPrune > 0 {
		deleted, err := repo.Prune(runsPrune)
		if err != nil {
			return errors.Wrap(err, "prune failed")
		}
		fmt.Printf("Pruned %d runs, kept newest %d\n", deleted, runsPrune)
	}

	runs, err := repo.ListRuns(0)
	if err != nil {
		return errors.Wrap(err, "list failed")
	}
	if len(runs) == 0 {
		fmt.Println("No provisioning runs recorded")
		return nil
	}

	fmt.Printf("%-6s %-12s %-10s %-22s %-22s\n", "RUN", "STATUS", "TIER", "STARTED", "FINISHED")
	fmt.Println("--------------------------------------------------------------------------")
	for _, run := range runs {
		fmt.Printf("%-6d %-12s %-10s %-22s %-22s\n",
			run.ID, run.Status, orDash(run.ModelTier), run.StartedAt, run.FinishedAt)
	}
	return nil
}
