package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	agentURL      string
	signingSecret string
)

var rootCmd = &cobra.Command{
	Use:   "slackctl",
	Short: "Slack agent operator CLI",
	Long: `slackctl sends correctly signed test traffic to a running slack-agent.

Use it to verify endpoint wiring, signature configuration, and idempotent
enqueue behavior without involving Slack itself.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&agentURL, "url", "http://localhost:8807", "base URL of the slack-agent")
	rootCmd.PersistentFlags().StringVar(&signingSecret, "secret", "", "Slack signing secret (or SLACK_SIGNING_SECRET)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(sendCmd)
}

func secret() (string, error) {
	if signingSecret != "" {
		return signingSecret, nil
	}
	if s := os.Getenv("SLACK_SIGNING_SECRET"); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("no signing secret: pass --secret or set SLACK_SIGNING_SECRET")
}
