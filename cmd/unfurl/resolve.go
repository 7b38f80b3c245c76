package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlienServices/unfurl/internal/app"
	"github.com/AlienServices/unfurl/internal/config"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve one URL and print its preview as JSON",
	Example: `  unfurl resolve https://youtu.be/dQw4w9WgXcQ
  unfurl resolve --env-file prod.env https://odysee.com/@alice:1/talk:3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), config.Load())
		if err != nil {
			return err
		}
		defer a.Close()

		preview, err := a.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preview)
	},
}
