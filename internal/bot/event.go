package bot

type EventKind string

const (
	EventStart  EventKind = "start"
	EventButton EventKind = "button"
	EventText   EventKind = "text"
)

// Event is one inbound user interaction, independent of the chat transport.
type Event struct {
	ID       string    `json:"event_id,omitempty"`
	Kind     EventKind `json:"kind"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Token    string    `json:"token,omitempty"`
	Text     string    `json:"text,omitempty"`
}

type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is the screen to show in answer to an Event. Alert is a short
// pop-up shown instead of replacing the screen.
type Reply struct {
	Text    string     `json:"text,omitempty"`
	Image   string     `json:"image,omitempty"`
	Buttons [][]Button `json:"buttons,omitempty"`
	Alert   string     `json:"alert,omitempty"`
}

func btn(label string, c Command) Button {
	return Button{Label: label, Token: c.Token()}
}

func row(b ...Button) []Button { return b }

func kind(k Kind) Command { return Command{Kind: k} }
