package cmd

import (
	"github.com/spf13/cobra"

	"github.com/saathiconnect/saathi-go/cmd/classify"
	"github.com/saathiconnect/saathi-go/cmd/submit"
	"github.com/saathiconnect/saathi-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saathi",
		Short: "Saathi civic issue reporting CLI",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		submit.Command(settings),
		classify.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Submission.BaseURL, "base-url", settings.Submission.BaseURL, "Backend base URL")
}
