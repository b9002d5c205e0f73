// Package commands turns host actions into chat server frames. Text is
// validated locally so nothing malformed ever reaches the socket.
package commands

import (
	"errors"
	"fmt"
	"strings"
)

// MaxMessageSize is the longest line the chat server accepts.
const MaxMessageSize = 224

// MaxProfileFieldSize is the longest value stored for one profile key.
const MaxProfileFieldSize = 511

var (
	ErrNotConnected     = errors.New("not connected")
	ErrBadCharacters    = errors.New("contains a NUL, tab, vertical tab, carriage return or newline")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrWhitespaceInName = errors.New("may not contain whitespace")
	ErrEmptyMessage     = errors.New("is empty")
)

// ValidationError is a local rejection raised before any network I/O.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

const (
	badMessageChars = "\x00\t\v\r\n"
	whitespaceChars = " \t\v\r\n"
)

// ValidateMessage checks a chat line or whisper body.
func ValidateMessage(text string) error {
	if text == "" {
		return &ValidationError{Field: "message", Reason: ErrEmptyMessage}
	}
	if strings.ContainsAny(text, badMessageChars) {
		return &ValidationError{Field: "message", Reason: ErrBadCharacters}
	}
	if len(text) > MaxMessageSize {
		return &ValidationError{Field: "message", Reason: ErrMessageTooLong}
	}
	return nil
}

// ValidateProfileField checks one profile value. Values may be empty. A
// multiline value may hold line breaks and tabs but never a NUL.
func ValidateProfileField(field, value string, multiline bool) error {
	bad := badMessageChars
	if multiline {
		bad = "\x00"
	}
	if strings.ContainsAny(value, bad) {
		return &ValidationError{Field: field, Reason: ErrBadCharacters}
	}
	if len(value) > MaxProfileFieldSize {
		return &ValidationError{Field: field, Reason: ErrMessageTooLong}
	}
	return nil
}

// ValidateName checks a username, channel target or friend name.
func ValidateName(field, name string) error {
	if name == "" {
		return &ValidationError{Field: field, Reason: ErrEmptyMessage}
	}
	if strings.ContainsAny(name, whitespaceChars) {
		return &ValidationError{Field: field, Reason: ErrWhitespaceInName}
	}
	return nil
}

// SplitAccount splits a "user@server" login into its parts. server is
// empty when no gateway is given. Neither part may contain whitespace.
func SplitAccount(login string) (user, server string, err error) {
	if strings.ContainsAny(login, whitespaceChars) {
		return "", "", &ValidationError{Field: "username or server", Reason: ErrWhitespaceInName}
	}
	user, server, _ = strings.Cut(login, "@")
	if user == "" {
		return "", "", &ValidationError{Field: "username", Reason: ErrEmptyMessage}
	}
	return user, server, nil
}
