package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstack/stackctl/internal/config"
	"github.com/agentstack/stackctl/pkg/compose"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/execx"
	"github.com/agentstack/stackctl/pkg/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show running services and the last provisioning run",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	client := &compose.Client{
		Runner:  &execx.OSRunner{},
		Bin:     cfg.RuntimeBin,
		File:    cfg.ComposeFile,
		Project: cfg.ProjectName,
		Dir:     cfg.InstallDir,
	}

	listing, err := client.PS(context.Background())
	if err != nil {
		fmt.Printf("⚠️  container runtime unavailable: %v\n", err)
	} else {
		fmt.Println(listing)
	}

	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		// No journal yet is not an error for status.
		return nil
	}
	defer repo.Close()

	last, err := repo.LastRun()
	if err != nil {
		return errors.Wrap(err, "journal read failed")
	}
	if last == nil {
		fmt.Println("No provisioning runs recorded")
		return nil
	}

	fmt.Printf("Last run #%d: %s (tier %s, finished %s)\n",
		last.ID, last.Status, orDash(last.ModelTier), last.FinishedAt)

	steps, err := repo.StepsForRun(last.ID)
	if err != nil {
		return errors.Wrap(err, "journal read failed")
	}
	for _, s := range steps {
		detail := s.SkipReason
		if s.Status == "failed" {
			detail = s.Diagnostic
		}
		fmt.Printf("  %-22s %-10s %s\n", s.Name, s.Status, detail)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
