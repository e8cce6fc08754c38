// Package protocol implements the line-oriented text grammar spoken between
// clients and the broker: PUSH/PULL requests in, OK/MSG/EMPTY/ERR responses
// out.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const (
	verbPush = "PUSH"
	verbPull = "PULL"

	respOK    = "OK"
	respMsg   = "MSG "
	respEmpty = "EMPTY"
	respErr   = "ERR "
)

var (
	// ErrMalformed reports a request line that does not match the grammar.
	ErrMalformed = errors.New("malformed command")
	// ErrInvalidMessage reports a payload that violates the line protocol's
	// input constraints.
	ErrInvalidMessage = errors.New("invalid message")
)

// Kind discriminates the closed set of request variants.
type Kind int

const (
	KindPush Kind = iota + 1
	KindPull
)

// Request is one parsed command. Exactly one of Message/Consumer is
// meaningful depending on Kind.
type Request struct {
	Kind     Kind
	Message  []byte
	Consumer string
}

// Parse turns one request line (without its terminator) into a Request.
//
//	PUSH <rest-of-line>   message is everything after the first space and may
//	                      be empty or contain further spaces
//	PULL <consumer-id>    consumer id is trimmed and must be non-empty
//
// The command word is case-insensitive and may be preceded by whitespace;
// whatever follows the separating space is left untouched. A line still
// containing a line terminator is rejected outright since it cannot have
// been framed correctly.
func Parse(line string) (Request, error) {
	if strings.ContainsAny(line, "\n\r") {
		return Request{}, fmt.Errorf("%w: embedded line terminator", ErrInvalidMessage)
	}

	line = strings.TrimLeft(line, " \t")
	verb, rest, found := strings.Cut(line, " ")
	switch strings.ToUpper(verb) {
	case verbPush:
		if !found {
			return Request{}, fmt.Errorf("%w: PUSH requires a message argument", ErrMalformed)
		}
		return Request{Kind: KindPush, Message: []byte(rest)}, nil
	case verbPull:
		consumer := strings.TrimSpace(rest)
		if !found || consumer == "" {
			return Request{}, fmt.Errorf("%w: PULL requires a consumer id", ErrMalformed)
		}
		return Request{Kind: KindPull, Consumer: consumer}, nil
	case "":
		return Request{}, fmt.Errorf("%w: empty command", ErrMalformed)
	default:
		return Request{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, verb)
	}
}

// RenderOK renders a successful push.
func RenderOK() string { return respOK }

// RenderMessage renders a successful pull carrying a payload.
func RenderMessage(payload []byte) string { return respMsg + string(payload) }

// RenderEmpty renders a pull that found no new record.
func RenderEmpty() string { return respEmpty }

// RenderError renders any failure as a single ERR line. Line terminators in
// the reason are flattened so the response always stays one line.
func RenderError(reason string) string {
	reason = strings.ReplaceAll(reason, "\n", " ")
	reason = strings.ReplaceAll(reason, "\r", " ")
	return respErr + reason
}
