package bot

import "github.com/fjod/go_shopbot/internal/action"

type EventKind string

const (
	EventText      EventKind = "text"
	EventCommand   EventKind = "command"
	EventContact   EventKind = "contact"
	EventMedia     EventKind = "media"
	EventSelection EventKind = "selection"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventText, EventCommand, EventContact, EventMedia, EventSelection:
		return true
	}
	return false
}

type Contact struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

type Media struct {
	Ref     string `json:"ref"`
	Caption string `json:"caption,omitempty"`
}

// Event is one inbound user interaction. Contact and Media are set only for
// their kinds; Action only for selections.
type Event struct {
	Kind    EventKind
	UserID  int64
	Text    string
	Contact *Contact
	Media   *Media
	Action  action.Action
}

type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is a transport-neutral response payload.
type Reply struct {
	Text           string     `json:"text,omitempty"`
	ImageRef       string     `json:"image_ref,omitempty"`
	Buttons        [][]Button `json:"buttons,omitempty"`
	Menu           [][]string `json:"menu,omitempty"`
	RequestContact bool       `json:"request_contact,omitempty"`
	RemoveMenu     bool       `json:"remove_menu,omitempty"`
}

func btn(label string, a action.Action) Button {
	return Button{Label: label, Token: a.Token()}
}

func row(buttons ...Button) []Button {
	return buttons
}

func textReply(text string) Reply {
	return Reply{Text: text}
}
