package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AlienServices/unfurl/internal/version"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:     "unfurl",
	Short:   "unfurl - link preview resolution service",
	Version: version.Info(),
	Long: `unfurl turns a URL into a link preview card: title, description,
thumbnail, site name and, for video platforms, an embeddable player URL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			log.Fatalf("❌ cannot read %s: %v", envFile, err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading UNFURL_* variables")

	// a bare "unfurl" serves
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Args = cobra.NoArgs

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("❌ unfurl: %v", err)
	}
}
