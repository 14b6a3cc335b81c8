package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/insightpulseai/slack-agent/internal/slack"
)

var (
	sendCommand   string
	sendText      string
	sendTriggerID string
	sendEventType string
	sendChannel   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send signed test payloads to the agent",
}

var sendEventCmd = &cobra.Command{
	Use:   "event",
	Short: "Send a signed Events API delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		inner := map[string]any{
			"type":    sendEventType,
			"user":    "U" + gofakeit.LetterN(8),
			"channel": channelOrFake(),
			"text":    sendText,
			"ts":      fakeSlackTs(),
		}
		innerJSON, _ := json.Marshal(inner)

		body, _ := json.Marshal(map[string]any{
			"type":       slack.TypeEventCallback,
			"team_id":    "T" + gofakeit.LetterN(8),
			"api_app_id": "A" + gofakeit.LetterN(8),
			"event_id":   "Ev" + gofakeit.LetterN(9),
			"event_time": time.Now().Unix(),
			"event":      json.RawMessage(innerJSON),
		})

		return post("/slack/events", "application/json", body)
	},
}

var sendCommandCmd = &cobra.Command{
	Use:   "command",
	Short: "Send a signed slash-command invocation",
	RunE: func(cmd *cobra.Command, args []string) error {
		form := url.Values{}
		form.Set("command", sendCommand)
		form.Set("text", sendText)
		form.Set("trigger_id", triggerOrFake())
		form.Set("user_id", "U"+gofakeit.LetterN(8))
		form.Set("user_name", gofakeit.Username())
		form.Set("channel_id", channelOrFake())
		form.Set("team_id", "T"+gofakeit.LetterN(8))

		return post("/slack/commands", "application/x-www-form-urlencoded", []byte(form.Encode()))
	},
}

var sendInteractiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Send a signed interactive payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, _ := json.Marshal(map[string]any{
			"type":       "block_actions",
			"trigger_id": triggerOrFake(),
			"user": map[string]string{
				"id":       "U" + gofakeit.LetterN(8),
				"username": gofakeit.Username(),
			},
			"channel": map[string]string{"id": channelOrFake()},
			"team":    map[string]string{"id": "T" + gofakeit.LetterN(8)},
		})

		form := url.Values{}
		form.Set("payload", string(payload))

		return post("/slack/interactive", "application/x-www-form-urlencoded", []byte(form.Encode()))
	},
}

func init() {
	sendCmd.PersistentFlags().StringVar(&sendTriggerID, "trigger-id", "", "trigger ID (default: random)")
	sendCmd.PersistentFlags().StringVar(&sendChannel, "channel", "", "channel ID (default: random)")
	sendCmd.PersistentFlags().StringVar(&sendText, "text", "hello from slackctl", "message/command text")

	sendEventCmd.Flags().StringVar(&sendEventType, "type", "app_mention", "inner event type")
	sendCommandCmd.Flags().StringVar(&sendCommand, "command", "/run", "slash command, including leading slash")

	sendCmd.AddCommand(sendEventCmd)
	sendCmd.AddCommand(sendCommandCmd)
	sendCmd.AddCommand(sendInteractiveCmd)
}

func post(path, contentType string, body []byte) error {
	sec, err := secret()
	if err != nil {
		return err
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequest(http.MethodPost, agentURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", slack.Sign(sec, body, ts))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s -> %d\n%s\n", http.MethodPost, path, resp.StatusCode, string(respBody))
	return nil
}

func triggerOrFake() string {
	if sendTriggerID != "" {
		return sendTriggerID
	}
	return fmt.Sprintf("%d.%d.%s", gofakeit.Number(100000000000, 999999999999), gofakeit.Number(100000000000, 999999999999), gofakeit.LetterN(32))
}

func channelOrFake() string {
	if sendChannel != "" {
		return sendChannel
	}
	return "C" + gofakeit.LetterN(8)
}

func fakeSlackTs() string {
	return fmt.Sprintf("%d.%06d", time.Now().Unix(), gofakeit.Number(0, 999999))
}
