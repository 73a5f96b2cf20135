// Package main provides the grader CLI for one-off grading runs.
package main

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "grader",
		Short: "SEO maturity grader",
		Long: `Grades a website's SEO maturity from a ten-question self-assessment
and observed signals: Core Web Vitals, on-page HTML, domain authority and
SERP visibility.`,
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: $GRADER_CONFIG or .grader.yaml)")

	load := func() (*config.Settings, error) {
		if configPath != "" {
			return config.Load(configPath)
		}
		return config.LoadFromEnv()
	}

	rootCmd.AddCommand(
		newGradeCmd(load),
		newHealthCmd(load),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the grader version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "grader %s\n", config.AppVersion)
			return err
		},
	}
}
