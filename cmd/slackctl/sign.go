package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightpulseai/slack-agent/internal/slack"
)

var signTimestamp string

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Compute the v0 signature for a payload",
	Long: `Compute the X-Slack-Signature value for a payload read from a file
(or stdin when no file is given), using the current time unless --timestamp
is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := secret()
		if err != nil {
			return err
		}

		var body []byte
		if len(args) == 1 {
			body, err = os.ReadFile(args[0])
		} else {
			body, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}

		ts := signTimestamp
		if ts == "" {
			ts = strconv.FormatInt(time.Now().Unix(), 10)
		}

		fmt.Printf("X-Slack-Request-Timestamp: %s\n", ts)
		fmt.Printf("X-Slack-Signature: %s\n", slack.Sign(sec, body, ts))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signTimestamp, "timestamp", "", "unix seconds to sign with (default: now)")
}
