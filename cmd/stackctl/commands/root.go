package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "agentstack - local AI platform provisioning",
	Long:  `Provisions the agentstack service set (database, vector store, API, UI, optional model server) on a single host. Safe to re-run: finished work is skipped.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("install-dir", ".", "Deployment install directory")
	rootCmd.PersistentFlags().String("compose-file", "compose.yaml", "Compose file name inside the install directory")
	rootCmd.PersistentFlags().String("env-file", ".env", "Configuration file name inside the install directory")
	rootCmd.PersistentFlags().String("project-name", "agentstack", "Compose project name")
	rootCmd.PersistentFlags().String("runtime-bin", "docker", "Container runtime binary")
	rootCmd.PersistentFlags().String("journal-path", ".agentstack/journal.db", "Run journal database path")
	rootCmd.PersistentFlags().String("log-path", ".agentstack/provision.log", "Persisted log file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	viper.BindPFlag("install-dir", rootCmd.PersistentFlags().Lookup("install-dir"))
	viper.BindPFlag("compose-file", rootCmd.PersistentFlags().Lookup("compose-file"))
	viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	viper.BindPFlag("project-name", rootCmd.PersistentFlags().Lookup("project-name"))
	viper.BindPFlag("runtime-bin", rootCmd.PersistentFlags().Lookup("runtime-bin"))
	viper.BindPFlag("journal-path", rootCmd.PersistentFlags().Lookup("journal-path"))
	viper.BindPFlag("log-path", rootCmd.PersistentFlags().Lookup("log-path"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}
