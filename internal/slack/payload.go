package slack

import (
	"encoding/json"
	"net/url"
)

// Envelope is the outer Events API payload. Event is kept raw so the inner
// event can be decoded after the envelope type has been inspected.
type Envelope struct {
	Type      string          `json:"type"`
	Token     string          `json:"token"`
	TeamID    string          `json:"team_id"`
	APIAppID  string          `json:"api_app_id"`
	EventID   string          `json:"event_id"`
	EventTime int64           `json:"event_time"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

// TypeURLVerification is the one-time endpoint handshake Slack sends when an
// app's request URL is configured.
const TypeURLVerification = "url_verification"

// TypeEventCallback wraps a steady-state event delivery.
const TypeEventCallback = "event_callback"

// InnerEvent is the event inside an event_callback envelope. Only the fields
// the dispatcher needs are decoded.
type InnerEvent struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	Text        string `json:"text"`
	Ts          string `json:"ts"`
	ThreadTs    string `json:"thread_ts"`
}

// Command is a slash-command invocation, posted as form data.
type Command struct {
	Command     string
	Text        string
	TriggerID   string
	UserID      string
	UserName    string
	ChannelID   string
	TeamID      string
	ResponseURL string
}

// ParseCommand extracts a Command from decoded form values.
func ParseCommand(form url.Values) Command {
	return Command{
		Command:     form.Get("command"),
		Text:        form.Get("text"),
		TriggerID:   form.Get("trigger_id"),
		UserID:      form.Get("user_id"),
		UserName:    form.Get("user_name"),
		ChannelID:   form.Get("channel_id"),
		TeamID:      form.Get("team_id"),
		ResponseURL: form.Get("response_url"),
	}
}

// Interaction is the JSON document carried in the "payload" form field of an
// interactivity request (block actions, shortcuts, view submissions).
type Interaction struct {
	Type      string `json:"type"`
	TriggerID string `json:"trigger_id"`
	User      struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	CallbackID  string `json:"callback_id"`
	ResponseURL string `json:"response_url"`
}

// ParseInteraction decodes the payload field of an interactive request.
func ParseInteraction(payload string) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		return nil, err
	}
	return &in, nil
}
