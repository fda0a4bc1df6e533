package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstack/stackctl/internal/config"
	"github.com/agentstack/stackctl/pkg/bundle"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/prompt"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Fetch the deployment bundle and create the configuration file",
	Long: `Downloads the release bundle (compose file, env template, Dockerfiles)
into the install directory if it is not already there, then fills in the env
template interactively. Refuses to overwrite an existing configuration file
unless --force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}
	if err := os.MkdirAll(cfg.InstallDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create install directory")
	}

	envPath := filepath.Join(cfg.InstallDir, cfg.EnvFile)
	if info, err := os.Stat(envPath); err == nil && info.Size() > 0 && !initForce {
		return fmt.Errorf("%s already exists; pass --force to overwrite", envPath)
	}

	if err := fetchBundleIfMissing(ctx, cfg); err != nil {
		return err
	}

	templatePath := filepath.Join(cfg.InstallDir, ".env.example")
	if err := fillTemplate(ctx, prompt.Terminal{}, templatePath, envPath); err != nil {
		return err
	}

	fmt.Printf("✅ configuration written to %s\n", envPath)
	fmt.Println("   next: `stackctl up`")
	return nil
}

// fetchBundleIfMissing downloads and extracts the release bundle when the
// compose file is not already in place.
func fetchBundleIfMissing(ctx context.Context, cfg *config.Config) error {
	composePath := filepath.Join(cfg.InstallDir, cfg.ComposeFile)
	if _, err := os.Stat(composePath); err == nil {
		fmt.Println("Deployment bundle already present, skipping download")
		return nil
	}

	fetcher, err := bundle.NewFetcher(ctx, cfg.BundleBucket, cfg.BundleRegion)
	if err != nil {
		return errors.Wrap(err, "bundle fetcher failed")
	}

	published, err := fetcher.Exists(ctx, cfg.BundleKey)
	if err != nil {
		return errors.Wrap(err, "bundle lookup failed")
	}
	if !published {
		return fmt.Errorf("bundle %s not found in bucket %s", cfg.BundleKey, cfg.BundleBucket)
	}

	archivePath := filepath.Join(os.TempDir(), "agentstack-bundle.tar.gz")
	result, err := fetcher.Download(ctx, cfg.BundleKey, archivePath)
	if err != nil {
		return errors.Wrap(err, "bundle download failed")
	}
	defer os.Remove(archivePath)

	fmt.Printf("Downloaded bundle (%d KB, sha256 %s...)\n", result.Size/1024, result.SHA256[:16])

	if err := bundle.Extract(archivePath, cfg.InstallDir); err != nil {
		return errors.Wrap(err, "bundle extract failed")
	}
	return nil
}

// secretKeywords marks template keys whose values are prompted with masked
// echo.
var secretKeywords = []string{"PASSWORD", "SECRET", "TOKEN", "API_KEY"}

func isSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, kw := range secretKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// fillTemplate copies the env template to outPath, prompting for every value
// still set to the CHANGE_ME placeholder. All other lines pass through
// untouched; content validation belongs to the consuming services.
func fillTemplate(ctx context.Context, src prompt.Source, templatePath, outPath string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read template %s", templatePath)
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(value) != "CHANGE_ME" {
			continue
		}
		key = strings.TrimSpace(key)

		var answer string
		if isSecretKey(key) {
			answer, err = src.AskSecret(ctx, key)
		} else {
			answer, err = src.AskText(ctx, key, "")
		}
		if err != nil {
			return errors.Wrapf(err, "prompt for %s failed", key)
		}
		lines[i] = key + "=" + answer
	}

	if err := os.WriteFile(outPath, []byte(strings.Join(lines, "\n")), 0600); err != nil {
		return errors.Wrapf(err, "failed to write %s", outPath)
	}
	return nil
}
