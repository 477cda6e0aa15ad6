package main

import (
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "amli-assistant",
	Short: "AmLI chat assistant",
	Long: `AmLI chat assistant: routes messages to rule-based replies, certificate
search or Gemini, keeping a short per-session history.

Run without a subcommand it serves Lambda events inside AWS Lambda and
HTTP everywhere else.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runningInLambda() {
			return runLambda(cmd, args)
		}
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with configuration")
}

func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}
