// Package cli implements the interactive chat console: typed lines become
// channel messages or commands, and session events are printed as they
// arrive.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/energizer-project/bnetchat/internal/connector"
	"github.com/energizer-project/bnetchat/internal/roster"
)

// Session is the part of a chat session the console drives.
type Session interface {
	Status() connector.Status
	ChannelUsers() []roster.ChannelUser
	Friends() []roster.Friend
	Channels() []string

	SendChannelMessage(ctx context.Context, text string) error
	SetAway(ctx context.Context, message string) error
	SetDND(ctx context.Context, message string) error
	SetAvailable(ctx context.Context) error
	GetInfo(ctx context.Context, name string) error
	Rejoin(ctx context.Context) error
	EditProfile(ctx context.Context) error
	WriteProfile(ctx context.Context, sex, location, description string) error
	Command(ctx context.Context, line string) error
}

// CLI provides an interactive command-line interface.
type CLI struct {
	session Session
	in      io.Reader

	mu  sync.Mutex
	out io.Writer
}

// NewCLI creates a new console reading in and writing out.
func NewCLI(session Session, in io.Reader, out io.Writer) *CLI {
	return &CLI{session: session, in: in, out: out}
}

func (c *CLI) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Start reads lines until in is exhausted, ctx is cancelled or the user
// quits. It returns true when the user asked to quit.
func (c *CLI) Start(ctx context.Context) bool {
	c.printf("bnetchat console ready. Type /help for console commands.\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			quit, err := c.execute(ctx, strings.TrimSpace(line))
			if err != nil {
				c.printf("Error: %v\n", err)
			}
			if quit {
				return true
			}
		}
	}
}

// execute processes one typed line.
func (c *CLI) execute(ctx context.Context, line string) (quit bool, err error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.session.SendChannelMessage(ctx, line)
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		c.printHelp()
	case "status":
		c.printStatus()
	case "users":
		c.printUsers()
	case "friends":
		c.printFriends()
	case "channels":
		c.printChannels()
	case "info":
		if rest == "" {
			return false, fmt.Errorf("usage: /info <user>")
		}
		return false, c.session.GetInfo(ctx, rest)
	case "away":
		return false, c.session.SetAway(ctx, rest)
	case "dnd":
		return false, c.session.SetDND(ctx, rest)
	case "back":
		return false, c.session.SetAvailable(ctx)
	case "rejoin":
		return false, c.session.Rejoin(ctx)
	case "profile":
		if rest == "" {
			return false, c.session.EditProfile(ctx)
		}
		return false, c.writeProfile(ctx, rest)
	case "quit", "exit":
		c.printf("Disconnecting...\n")
		return true, nil
	default:
		return false, c.session.Command(ctx, line)
	}
	return false, nil
}

// writeProfile takes "sex|location|description".
func (c *CLI) writeProfile(ctx context.Context, arg string) error {
	parts := strings.SplitN(arg, "|", 3)
	if len(parts) != 3 {
		return fmt.Errorf("usage: /profile <sex>|<location>|<description>")
	}
	return c.session.WriteProfile(ctx, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
}

func (c *CLI) printHelp() {
	c.printf(`
  Console commands:
    /status               Show session status
    /users                List the members of the current channel
    /friends              Show the friends list
    /channels             Show the server's channel list
    /info <user>          Look a user up
    /away [message]       Mark yourself away
    /dnd [message]        Refuse whispers
    /back                 Clear away and do-not-disturb
    /rejoin               Leave and re-enter the current channel
    /profile              Read your profile for editing
    /profile s|l|d        Write sex, location and description
    /quit                 Disconnect and exit
  Any other /command is sent to the server; plain text is said in the channel.

`)
}

func (c *CLI) printStatus() {
	st := c.session.Status()

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n  Session:   %s\n", st.SessionID)
	fmt.Fprintf(c.out, "  State:     %s\n", st.State)
	fmt.Fprintf(c.out, "  Account:   %s\n", st.Account)
	if st.UniqueName != "" && st.UniqueName != st.Account {
		fmt.Fprintf(c.out, "  Logged as: %s\n", st.UniqueName)
	}
	fmt.Fprintf(c.out, "  Product:   %s\n", st.Product)
	fmt.Fprintf(c.out, "  Channel:   %s (%d users)\n", st.Channel.Name, st.Users)
	fmt.Fprintf(c.out, "  Friends:   %d\n", st.Friends)
	fmt.Fprintf(c.out, "  Away:      %v\n", st.Away)
	fmt.Fprintf(c.out, "  DND:       %v\n\n", st.DND)
}

func (c *CLI) printUsers() {
	users := c.session.ChannelUsers()

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader([]string{"Name", "Product", "Ping", "Flags"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for _, u := range users {
		product := "-"
		if p := u.Product(); p != 0 {
			product = p.ID()
		}
		tw.Append([]string{
			u.Name,
			product,
			fmt.Sprintf("%d", u.Ping),
			fmt.Sprintf("0x%02x", u.Flags),
		})
	}
	tw.Render()
	fmt.Fprintln(c.out)
}

func (c *CLI) printFriends() {
	friends := c.session.Friends()

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	tw := tablewriter.NewWriter(c.out)
	tw.SetHeader([]string{"#", "Account", "Location", "Product", "Status"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for i, f := range friends {
		product := "-"
		if f.Product != 0 {
			product = f.Product.Name()
		}
		tw.Append([]string{
			fmt.Sprintf("%d", i+1),
			f.Account,
			f.LocationText(),
			product,
			friendStatus(f),
		})
	}
	tw.Render()
	fmt.Fprintln(c.out)
}

func friendStatus(f roster.Friend) string {
	var flags []string
	if f.Mutual() {
		flags = append(flags, "mutual")
	}
	if f.Away() {
		flags = append(flags, "away")
	}
	if f.DND() {
		flags = append(flags, "dnd")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ", ")
}

func (c *CLI) printChannels() {
	channels := c.session.Channels()
	if len(channels) == 0 {
		c.printf("No channel list received.\n")
		return
	}
	c.printf("Channels: %s\n", strings.Join(channels, ", "))
}
