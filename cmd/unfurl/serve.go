package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AlienServices/unfurl/internal/app"
	"github.com/AlienServices/unfurl/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP preview API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), config.Load())
		if err != nil {
			return fmt.Errorf("unfurl failed to start: %w", err)
		}
		return a.Run()
	},
}
