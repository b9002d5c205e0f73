package commands

import (
	"strings"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// Encoder formats host actions as SID_CHATCOMMAND frames for one product.
type Encoder struct {
	diablo2 bool
}

// NewEncoder creates an encoder. Diablo II products address other users as
// "*account".
func NewEncoder(product protocol.Product) *Encoder {
	return &Encoder{diablo2: product.IsDiablo2()}
}

func (e *Encoder) star() string {
	if e.diablo2 {
		return "*"
	}
	return ""
}

func (e *Encoder) line(text string) ([]byte, error) {
	if err := ValidateMessage(text); err != nil {
		return nil, err
	}
	return protocol.BuildChatCommand(text)
}

// Say sends text to the current channel.
func (e *Encoder) Say(text string) ([]byte, error) {
	return e.line(text)
}

// Whisper sends a private message.
func (e *Encoder) Whisper(who, text string) ([]byte, error) {
	if err := ValidateName("whisper target", who); err != nil {
		return nil, err
	}
	if err := ValidateMessage(text); err != nil {
		return nil, err
	}
	return e.line("/w " + e.star() + who + " " + text)
}

// Whois asks the server where a user is.
func (e *Encoder) Whois(who string) ([]byte, error) {
	if err := ValidateName("user", who); err != nil {
		return nil, err
	}
	return e.line("/whois " + e.star() + who)
}

// Join asks to move to another channel. Channel names may contain spaces.
func (e *Encoder) Join(channel string) ([]byte, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, &ValidationError{Field: "channel", Reason: ErrEmptyMessage}
	}
	return e.line("/join " + channel)
}

// Away toggles the away state. An empty message clears it.
func (e *Encoder) Away(message string) ([]byte, error) {
	return e.toggle("/away", message)
}

// DND toggles do-not-disturb. An empty message clears it.
func (e *Encoder) DND(message string) ([]byte, error) {
	return e.toggle("/dnd", message)
}

func (e *Encoder) toggle(cmd, message string) ([]byte, error) {
	if message == "" {
		return e.line(cmd)
	}
	return e.line(cmd + " " + message)
}

// AddFriend adds an account to the friends list.
func (e *Encoder) AddFriend(account string) ([]byte, error) {
	if err := ValidateName("friend", account); err != nil {
		return nil, err
	}
	return e.line("/f a " + account)
}

// RemoveFriend removes an account from the friends list.
func (e *Encoder) RemoveFriend(account string) ([]byte, error) {
	if err := ValidateName("friend", account); err != nil {
		return nil, err
	}
	return e.line("/f r " + account)
}

// Emote sends an action line.
func (e *Encoder) Emote(text string) ([]byte, error) {
	if err := ValidateMessage(text); err != nil {
		return nil, err
	}
	return e.line("/me " + text)
}

// Parsed is a slash line after table lookup and star prefixing.
type Parsed struct {
	// Command is nil for commands the client does not know.
	Command *Command
	Name    string
	Args    string
	// Target is the first argument without any star prefix.
	Target string
	// Text is everything after Target.
	Text string
	// Line is what goes on the wire.
	Line string
}

// Kind returns the command kind, KindRaw when unknown.
func (p Parsed) Kind() Kind {
	if p.Command == nil {
		return KindRaw
	}
	return p.Command.Kind
}

// Parse interprets a slash line typed by the user. Lines without a leading
// slash are rejected; Say handles those.
func (e *Encoder) Parse(line string) (Parsed, error) {
	if !strings.HasPrefix(line, "/") || len(line) < 2 {
		return Parsed{}, &ValidationError{Field: "command", Reason: ErrEmptyMessage}
	}
	if err := ValidateMessage(line); err != nil {
		return Parsed{}, err
	}

	name, args, _ := strings.Cut(line[1:], " ")
	args = strings.TrimLeft(args, " ")
	p := Parsed{Name: name, Args: args}

	cmd, known := Lookup(name)
	if known {
		p.Command = cmd
		if cmd.StarTarget && e.diablo2 && args != "" && args[0] != '*' {
			args = "*" + args
		}
	}

	target, text, _ := strings.Cut(args, " ")
	p.Target = strings.TrimPrefix(target, "*")
	p.Text = text
	p.Args = args

	p.Line = "/" + name
	if args != "" {
		p.Line += " " + args
	}
	if len(p.Line) > MaxMessageSize {
		return Parsed{}, &ValidationError{Field: "message", Reason: ErrMessageTooLong}
	}
	return p, nil
}

// Frame encodes a parsed slash line.
func (p Parsed) Frame() ([]byte, error) {
	return protocol.BuildChatCommand(p.Line)
}
