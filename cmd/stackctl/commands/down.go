package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstack/stackctl/internal/config"
	"github.com/agentstack/stackctl/pkg/compose"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/execx"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the service set",
	RunE:  runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	runner := &execx.OSRunner{Observer: os.Stdout}
	client := &compose.Client{
		Runner:  runner,
		Bin:     cfg.RuntimeBin,
		File:    cfg.ComposeFile,
		Project: cfg.ProjectName,
		Dir:     cfg.InstallDir,
	}

	res, err := client.Down(context.Background())
	if err != nil {
		return errors.Wrap(err, "compose down failed")
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("compose down exited %d: %s", res.ExitCode, res.Tail(10))
	}

	fmt.Println("✅ agentstack stopped")
	return nil
}
