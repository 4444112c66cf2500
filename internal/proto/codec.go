package proto

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// DefaultMaxLineLength bounds a single buffered line.
const DefaultMaxLineLength = 64 * 1024

var (
	ErrMalformed    = errors.New("malformed line")
	ErrLineTooLong  = errors.New("line too long")
	ErrInvalidToken = errors.New("invalid token")
)

// ProtocolError reports a line that could not be decoded. The line is dropped
// and decoding continues with the next one.
type ProtocolError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol error: %s: %q", e.Reason, e.Line)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Decoder splits a byte stream into protocol messages. It is restartable:
// an incomplete trailing line stays buffered until the next Feed.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf      []byte
	maxLine  int
	skipping bool
}

// NewDecoder creates a decoder. maxLine <= 0 selects DefaultMaxLineLength.
func NewDecoder(maxLine int) *Decoder {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineLength
	}
	return &Decoder{maxLine: maxLine}
}

// Feed appends a chunk read from the transport.
func (d *Decoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)
}

// Buffered returns the number of bytes waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next returns the next complete message. ok is false when no complete line
// is buffered. A non-nil error is always a *ProtocolError for a dropped line.
func (d *Decoder) Next() (msg Message, ok bool, err error) {
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			if len(d.buf) > d.maxLine && !d.skipping {
				dropped := len(d.buf)
				d.buf = d.buf[:0]
				d.skipping = true
				return Message{}, false, &ProtocolError{
					Reason: fmt.Sprintf("line exceeds %d bytes (%d buffered)", d.maxLine, dropped),
					Err:    ErrLineTooLong,
				}
			}
			if d.skipping {
				d.buf = d.buf[:0]
			}
			return Message{}, false, nil
		}

		raw := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if len(d.buf) == 0 {
			d.buf = nil
		}

		if d.skipping {
			// tail of an oversized line
			d.skipping = false
			continue
		}
		if len(raw) > d.maxLine {
			return Message{}, false, &ProtocolError{
				Reason: fmt.Sprintf("line exceeds %d bytes", d.maxLine),
				Err:    ErrLineTooLong,
			}
		}

		line := strings.TrimSuffix(raw, "\r")
		if line == "" {
			continue
		}

		m, perr := ParseLine(line)
		if perr != nil {
			return Message{}, false, perr
		}
		return m, true, nil
	}
}

// Messages yields every complete message currently buffered, including
// protocol errors for dropped lines. Iteration stops when only an
// incomplete line remains.
func (d *Decoder) Messages() iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		for {
			msg, ok, err := d.Next()
			if err != nil {
				if !yield(Message{}, err) {
					return
				}
				continue
			}
			if !ok {
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// ParseLine tokenises a single line without its terminator.
func ParseLine(line string) (Message, error) {
	command, rest, hasRest := strings.Cut(line, " ")
	if !validKeyword(command) {
		return Message{}, &ProtocolError{Line: line, Reason: "invalid command keyword", Err: ErrMalformed}
	}

	msg := Message{Command: command}
	if !hasRest {
		return msg, nil
	}

	layout, ok := LayoutOf(command)
	if !ok {
		msg.Args = strings.Split(rest, " ")
		return msg, nil
	}

	for i := 0; i < layout.Fixed; i++ {
		tok, tail, more := strings.Cut(rest, " ")
		msg.Args = append(msg.Args, tok)
		if !more {
			return msg, nil
		}
		rest = tail
	}
	if layout.Rest {
		msg.Args = append(msg.Args, rest)
	} else {
		msg.Args = append(msg.Args, strings.Split(rest, " ")...)
	}
	return msg, nil
}

// Encode serialises a message as one newline terminated line.
func Encode(m Message) ([]byte, error) {
	if !validKeyword(m.Command) {
		return nil, fmt.Errorf("encode %q: %w", m.Command, ErrInvalidToken)
	}

	layout, hasLayout := LayoutOf(m.Command)
	restIdx := -1
	if hasLayout && layout.Rest && len(m.Args) == layout.Fixed+1 {
		restIdx = layout.Fixed
	}

	var b strings.Builder
	b.WriteString(m.Command)
	for i, arg := range m.Args {
		if strings.ContainsAny(arg, "\r\n") {
			return nil, fmt.Errorf("encode %s: argument %d contains a line break: %w", m.Command, i, ErrInvalidToken)
		}
		if i != restIdx && (arg == "" || strings.Contains(arg, " ")) {
			return nil, fmt.Errorf("encode %s: argument %d must be a non-empty word: %w", m.Command, i, ErrInvalidToken)
		}
		b.WriteByte(' ')
		b.WriteString(arg)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// SplitSentences splits a tab separated rest argument (BATTLEOPENED, LOGIN).
func SplitSentences(s string) []string {
	return strings.Split(s, "\t")
}

func validKeyword(s string) bool {
	if s == "" {
		return false
	}
	if s == CmdGreeting {
		return true
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '_'):
		default:
			return false
		}
	}
	return true
}
