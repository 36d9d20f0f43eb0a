package uniden

import (
	"fmt"
	"reflect"
	"strings"
)

// Wire constants for the scanner's remote protocol.
const (
	// Terminator ends every command sent to the scanner.
	Terminator = "\r"

	// FieldSeparator separates the command name and its arguments.
	FieldSeparator = ","

	// replyOK is the payload of a successful set or action command.
	replyOK = "OK"

	// replyNG marks a command that is invalid in the current mode.
	replyNG = "NG"

	replyERR  = "ERR"
	replyFER  = "FER"
	replyORER = "ORER"
)

// Command is a single request to the scanner: a three-letter name followed
// by positional arguments.
type Command struct {
	Name string
	Args []any
}

// NewCommand creates a command with the given positional arguments.
func NewCommand(name string, args ...any) Command {
	return Command{Name: name, Args: args}
}

// IsOmitted reports whether an argument is absent and must not be sent.
//
// The scanner protocol has no notion of an empty field in a request: nil,
// the empty string, numeric zero, false and the zero value of any named
// type are dropped from the line rather than sent. A Toggle set to Off or
// an int 0 is therefore never transmitted.
func IsOmitted(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	return rv.IsZero()
}

// formatArg converts a non-omitted argument to its wire representation.
func formatArg(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		v = rv.Elem().Interface()
	}
	return fmt.Sprint(v)
}

// WireArgs returns the arguments that will actually be sent, in order.
func (c Command) WireArgs() []string {
	out := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if IsOmitted(arg) {
			continue
		}
		out = append(out, formatArg(arg))
	}
	return out
}

// Line returns the command without its terminator.
//
// Example: NewCommand("KEY", KeyOne, KeyPress).Line() == "KEY,1,P"
func (c Command) Line() string {
	args := c.WireArgs()
	if len(args) == 0 {
		return c.Name
	}
	return c.Name + FieldSeparator + strings.Join(args, FieldSeparator)
}

// Encode returns the full wire form of the command, including the trailing
// carriage return.
func (c Command) Encode() string {
	return c.Line() + Terminator
}

// String implements fmt.Stringer for logging.
func (c Command) String() string {
	return c.Line()
}

// Reply is a decoded, successful response line.
type Reply struct {
	// Command is the name of the command that produced this reply.
	Command string

	// Raw is the trimmed response line.
	Raw string

	// Payload holds the response fields after the echoed command name.
	Payload []string
}

// Scalar returns the single payload field. If the payload has more than one
// field the fields are rejoined with commas, which preserves display text that
// itself contains commas.
func (r Reply) Scalar() string {
	return strings.Join(r.Payload, FieldSeparator)
}

// Fields returns the payload as an ordered sequence.
func (r Reply) Fields() []string {
	return r.Payload
}

// IsOK reports whether the reply is the literal OK acknowledgement.
func (r Reply) IsOK() bool {
	return len(r.Payload) == 1 && r.Payload[0] == replyOK
}

// Record binds names to payload fields positionally.
// Extra fields or extra names are dropped, whichever runs out first.
func (r Reply) Record(names ...string) Record {
	n := min(len(names), len(r.Payload))
	rec := make(Record, n)
	for i := range n {
		rec[names[i]] = r.Payload[i]
	}
	return rec
}

// Record is a named-field view of a reply payload.
type Record map[string]string

// Get returns the named field or "" if it is missing.
func (r Record) Get(name string) string {
	return r[name]
}

// Decode interprets a response line for the named command.
//
// The checks run in a fixed order. Whole-line error tokens (ERR, FER, ORER)
// are matched before the field-level NG and ERR suffixes.
func Decode(command, line string) (Reply, error) {
	line = strings.TrimSpace(line)

	switch line {
	case "":
		return Reply{}, &ProtocolError{Command: command, Err: ErrNoResponse}
	case replyERR:
		return Reply{}, &ProtocolError{Command: command, Response: line, Err: ErrDeviceError}
	case replyFER:
		return Reply{}, &ProtocolError{Command: command, Response: line, Err: ErrFramingError}
	case replyORER:
		return Reply{}, &ProtocolError{Command: command, Response: line, Err: ErrOverrunError}
	}

	fields := strings.Split(line, FieldSeparator)
	switch fields[len(fields)-1] {
	case replyNG:
		return Reply{}, &ProtocolError{Command: command, Response: line, Err: ErrCommandUnavailable}
	case replyERR:
		return Reply{}, &ProtocolError{Command: command, Response: line, Err: ErrDeviceError}
	}

	payload := fields
	if fields[0] == command {
		payload = fields[1:]
	}

	return Reply{Command: command, Raw: line, Payload: payload}, nil
}

// DecodeRecord decodes a response line and binds its payload to names.
func DecodeRecord(command, line string, names []string) (Record, error) {
	reply, err := Decode(command, line)
	if err != nil {
		return nil, err
	}
	return reply.Record(names...), nil
}
