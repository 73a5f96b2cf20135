package main

import (
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/grader"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/spf13/cobra"
)

func newHealthCmd(load settingsLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print which backend each metric adapter will use",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := load()
			if err != nil {
				return err
			}

			g := grader.New(settings, grader.Options{})
			defer g.Close()

			return writeJSON(cmd.OutOrStdout(), types.HealthResponse{
				Status:   "healthy",
				Version:  config.AppVersion,
				Services: g.Status(),
			})
		},
	}
}
