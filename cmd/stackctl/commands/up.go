package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstack/stackctl/internal/config"
	"github.com/agentstack/stackctl/internal/runlog"
	"github.com/agentstack/stackctl/pkg/compose"
	"github.com/agentstack/stackctl/pkg/deploy"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/execx"
	"github.com/agentstack/stackctl/pkg/hardware"
	"github.com/agentstack/stackctl/pkg/journal"
	"github.com/agentstack/stackctl/pkg/ollama"
	"github.com/agentstack/stackctl/pkg/prompt"
	"github.com/agentstack/stackctl/pkg/workflow"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Build images and start the service set",
	Long: `Runs the provisioning workflow: verify configuration and runtime,
detect hardware, build the base and application images, start all services,
and verify they stay up. Finished work is detected and skipped, so re-running
after a failure resumes where the previous run stopped.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
	upCmd.Flags().Bool("force-rebuild", false, "Rebuild images even when they already exist")
	upCmd.Flags().String("model-tier", "", "Pin the model tier (minimal|balanced|maximal) instead of detecting")
	upCmd.Flags().Bool("yes", false, "Non-interactive: accept the detected tier without prompting")
	upCmd.Flags().Int("settle-seconds", 10, "Seconds to wait after start before verifying")

	viper.BindPFlag("force-rebuild", upCmd.Flags().Lookup("force-rebuild"))
	viper.BindPFlag("model-tier", upCmd.Flags().Lookup("model-tier"))
	viper.BindPFlag("yes", upCmd.Flags().Lookup("yes"))
	viper.BindPFlag("settle-seconds", upCmd.Flags().Lookup("settle-seconds"))
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}
	if err := ensureParentDirs(cfg.JournalPath, cfg.LogPath); err != nil {
		return err
	}

	closeLog, err := runlog.Setup(cfg.LogPath, cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "log setup failed")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &execx.OSRunner{Observer: os.Stdout}
	dep := &deploy.Deployment{
		Runner: runner,
		Compose: &compose.Client{
			Runner:  runner,
			Bin:     cfg.RuntimeBin,
			File:    cfg.ComposeFile,
			Project: cfg.ProjectName,
			Dir:     cfg.InstallDir,
		},
		Ollama: &ollama.Client{
			Runner:  runner,
			Bin:     cfg.OllamaBin,
			BaseURL: cfg.OllamaURL,
		},
		Prompts:        prompt.Terminal{},
		EnvPath:        filepath.Join(cfg.InstallDir, cfg.EnvFile),
		BaseImage:      "agentstack-base",
		AppImages:      []string{"agentstack-api", "agentstack-ui"},
		ServiceCount:   4,
		ForceRebuild:   cfg.ForceRebuild,
		NonInteractive: cfg.Yes,
		Settle:         time.Duration(cfg.SettleSeconds) * time.Second,
	}
	if cfg.ModelTier != "" {
		tier, _ := hardware.ParseTier(cfg.ModelTier)
		dep.TierOverride = tier
	}

	rc := workflow.NewRunContext(cfg.InstallDir)
	report := workflow.NewSequencer(dep.Steps()).Run(ctx, rc)

	recordRun(cfg.JournalPath, report, rc)
	printReport(report)

	if code := report.ExitCode(); code != 0 {
		closeLog()
		os.Exit(code)
	}
	return nil
}

// recordRun appends the run to the journal. Journal trouble never changes
// the run's outcome.
func recordRun(journalPath string, report workflow.Report, rc *workflow.RunContext) {
	repo, err := journal.NewRepository(journalPath)
	if err != nil {
		slog.Warn("journal_unavailable", "error", err)
		return
	}
	defer repo.Close()

	if _, err := repo.Record(report, string(rc.Tier)); err != nil {
		slog.Warn("journal_record_failed", "error", err)
	}
}

func printReport(report workflow.Report) {
	fmt.Println()
	fmt.Printf("%-22s %-10s %s\n", "STEP", "STATUS", "DETAIL")
	fmt.Println("----------------------------------------------------------------------")
	for _, res := range report.Results {
		detail := res.SkipReason
		if res.Status == workflow.StatusFailed {
			detail = fmt.Sprintf("[%s] %s", res.Classification, res.Diagnostic)
		}
		fmt.Printf("%-22s %-10s %s\n", res.Name, res.Status, detail)
	}
	fmt.Println()

	switch report.Status {
	case workflow.RunSucceeded:
		fmt.Println("✅ agentstack is up")
		fmt.Println("   UI:  http://localhost:8501")
		fmt.Println("   API: http://localhost:9020")
	case workflow.RunCancelled:
		fmt.Println("⚠️  run cancelled; re-run `stackctl up` to resume")
	case workflow.RunFailed:
		if fatal := report.FatalResult(); fatal != nil {
			fmt.Printf("❌ step %s failed (%s): %s\n", fatal.Name, fatal.Classification, fatal.Diagnostic)
			if fatal.Remedy != "" {
				fmt.Printf("   remedy: %s\n", fatal.Remedy)
			}
		} else {
			fmt.Println("❌ run failed")
		}
	}
}
