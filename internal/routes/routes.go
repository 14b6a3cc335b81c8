// Package routes maps inbound Slack identifiers to downstream job routes.
// The tables are configuration, maintained by hand; unknown identifiers are
// acknowledged upstream but never enqueued.
package routes

// Route names the downstream work for an inbound event or command.
type Route struct {
	JobType string
	Agent   string
}

var eventRoutes = map[string]Route{
	"app_mention": {JobType: "slack_mention", Agent: "assistant"},
	"message":     {JobType: "slack_dm", Agent: "assistant"},
}

var commandRoutes = map[string]Route{
	"/run": {JobType: "slack_run", Agent: "operator"},
	"/ask": {JobType: "slack_ask", Agent: "assistant"},
}

// Interaction is the single route for interactive payloads; a trigger ID
// identifies one user interaction regardless of interaction type.
var Interaction = Route{JobType: "slack_interaction", Agent: "assistant"}

// ResolveEvent looks up the route for an Events API inner event type.
func ResolveEvent(eventType string) (Route, bool) {
	r, ok := eventRoutes[eventType]
	return r, ok
}

// ResolveCommand looks up the route for a slash command, including its
// leading slash ("/run", not "run").
func ResolveCommand(command string) (Route, bool) {
	r, ok := commandRoutes[command]
	return r, ok
}
