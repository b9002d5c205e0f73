package cli

import (
	"context"
	"strings"

	"github.com/energizer-project/bnetchat/internal/events"
)

// Register subscribes the console to the bus so session events are
// printed as they arrive.
func (c *CLI) Register(bus *events.EventBus) {
	bus.SubscribeAll("console", c.onEvent)
}

func (c *CLI) onEvent(_ context.Context, event events.Event) error {
	if line := formatEvent(event); line != "" {
		c.printf("%s\n", line)
	}
	return nil
}

// formatEvent renders one event as a console line. Events with nothing to
// show render empty.
func formatEvent(event events.Event) string {
	switch p := event.Payload.(type) {
	case events.StatePayload:
		return "*** " + p.State
	case events.SessionClosedPayload:
		if p.Reason == "" {
			return "*** Disconnected"
		}
		return "*** Disconnected (" + p.Class + "): " + p.Reason
	case events.ChannelPayload:
		if event.Type == events.EventChannelJoined {
			return "*** Joined channel " + p.Channel.Name
		}
		return ""
	case events.UserPayload:
		switch event.Type {
		case events.EventUserJoined:
			return "--> " + p.User.Name + " has joined"
		case events.EventUserLeft:
			return "<-- " + p.User.Name + " has left"
		}
		return ""
	case events.MessagePayload:
		switch event.Type {
		case events.EventWhisperReceived:
			return "<From " + p.From + "> " + p.Text
		case events.EventWhisperSent:
			return "<To " + p.To + "> " + p.Text
		case events.EventEmote:
			return "<" + p.From + " " + p.Text + ">"
		default:
			return "<" + p.From + "> " + p.Text
		}
	case events.NoticePayload:
		prefix := "*** "
		switch p.Severity {
		case events.SeverityWarning:
			prefix = "!!! "
		case events.SeverityError:
			prefix = "ERR "
		}
		if p.Caption != "" {
			return prefix + p.Caption + ": " + p.Text
		}
		return prefix + p.Text
	case events.JoinFailedPayload:
		return "!!! Could not join " + p.Channel + ": " + p.Reason
	case events.FriendStatusPayload:
		return "*** Friend " + p.Friend.Account + ": " + p.Friend.LocationText()
	case events.LookupPayload:
		var b strings.Builder
		b.WriteString("*** Info for " + p.Subject)
		for _, pair := range p.Pairs {
			b.WriteString("\n    " + pair.Label + ": " + pair.Value)
		}
		return b.String()
	case events.ProfilePayload:
		return "*** Profile of " + p.Account + "\n    Sex: " + p.Sex + "\n    Location: " + p.Location + "\n    Description: " + p.Description
	}
	return ""
}
