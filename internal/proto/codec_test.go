package proto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *Decoder) ([]Message, []error) {
	t.Helper()

	var msgs []Message
	var errs []error
	for m, err := range d.Messages() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, errs
}

func TestDecoderBuffersPartialLines(t *testing.T) {
	d := NewDecoder(0)

	d.Feed([]byte("SERVERMSG hello"))
	msgs, errs := collect(t, d)
	require.Empty(t, msgs)
	require.Empty(t, errs)
	require.Equal(t, len("SERVERMSG hello"), d.Buffered())

	d.Feed([]byte(" world\r\nRING ali"))
	msgs, errs = collect(t, d)
	require.Empty(t, errs)
	require.Equal(t, []Message{{Command: CmdServerMsg, Args: []string{"hello world"}}}, msgs)

	d.Feed([]byte("ce\n\n"))
	msgs, _ = collect(t, d)
	require.Equal(t, []Message{{Command: CmdRing, Args: []string{"alice"}}}, msgs)
	require.Zero(t, d.Buffered())
}

func TestParseLineRestOfLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
	}{
		{
			name: "private chat keeps spaces",
			line: "SAIDPRIVATE cavity hej hopp http://archlinux.org BBB",
			want: New(CmdSaidPrivate, "cavity", "hej hopp http://archlinux.org BBB"),
		},
		{
			name: "channel chat",
			line: "SAID main bob  two  spaces ",
			want: New(CmdSaid, "main", "bob", " two  spaces "),
		},
		{
			name: "empty server message",
			line: "SERVERMSG ",
			want: New(CmdServerMsg, ""),
		},
		{
			name: "no arguments",
			line: "LOGININFOEND",
			want: Message{Command: CmdLoginInfoEnd},
		},
		{
			name: "split everything without layout",
			line: "CLIENTSTATUS alice 64",
			want: New(CmdClientStatus, "alice", "64"),
		},
		{
			name: "greeting",
			line: "TASServer 0.38-33 105.0 8201 0",
			want: New(CmdGreeting, "0.38-33", "105.0", "8201", "0"),
		},
		{
			name: "adduser without optional tail",
			line: "ADDUSER alice SE 0",
			want: New(CmdAddUser, "alice", "SE", "0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBattleOpenedSentences(t *testing.T) {
	line := "BATTLEOPENED 42 0 0 host 127.0.0.1 8452 16 1 0 -1234 Spring\t105.0\tComet Catcher Redux\tAll welcome\tBalanced Annihilation"
	msg, err := ParseLine(line)
	require.NoError(t, err)
	require.Len(t, msg.Args, 11)
	require.Equal(t, "42", msg.Arg(0))
	require.Equal(t, "host", msg.Arg(3))

	sentences := SplitSentences(msg.Arg(10))
	require.Equal(t, []string{"Spring", "105.0", "Comet Catcher Redux", "All welcome", "Balanced Annihilation"}, sentences)
}

func TestMalformedLineIsDroppedAndDecodingContinues(t *testing.T) {
	d := NewDecoder(0)
	d.Feed([]byte("lowercase junk\nRING bob\n"))

	msgs, errs := collect(t, d)
	require.Len(t, errs, 1)

	var perr *ProtocolError
	require.ErrorAs(t, errs[0], &perr)
	require.True(t, errors.Is(errs[0], ErrMalformed))
	require.Equal(t, "lowercase junk", perr.Line)

	require.Equal(t, []Message{New(CmdRing, "bob")}, msgs)
}

func TestOversizedLineIsDiscarded(t *testing.T) {
	d := NewDecoder(16)
	d.Feed([]byte(strings.Repeat("A", 20)))

	_, ok, err := d.Next()
	require.False(t, ok)
	require.ErrorIs(t, err, ErrLineTooLong)

	d.Feed([]byte("AAAA\nPONG\n"))
	msgs, errs := collect(t, d)
	require.Empty(t, errs)
	require.Equal(t, []Message{{Command: CmdPong}}, msgs)
}

func TestEncodeRoundTrip(t *testing.T) {
	msgs := []Message{
		New(CmdJoin, "main"),
		New(CmdJoin, "secret", "key"),
		New(CmdLeave, "main"),
		New(CmdSay, "main", "hello there, world"),
		New(CmdJoinBattle, "42"),
		New(CmdJoinBattle, "42", "pw"),
		{Command: CmdLeaveBattle},
		New(CmdSayPrivate, "alice", "hi  with   spaces"),
		New(CmdSayPrivate, "alice", ""),
		New(CmdMyStatus, "2"),
		{Command: CmdPing},
		New(CmdLogin, "alice", "X03MO1qnZdYdgyfeuILPmQ==", "0", "*", "lobbyclient 1.0\t0\tsp u"),
	}

	for _, m := range msgs {
		data, err := Encode(m)
		require.NoError(t, err, m.Command)
		require.True(t, strings.HasSuffix(string(data), "\n"))

		d := NewDecoder(0)
		d.Feed(data)
		got, ok, err := d.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, m, got)
	}
}

func TestEncodeRejectsBadTokens(t *testing.T) {
	_, err := Encode(New(CmdJoin, "two words"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Encode(New(CmdSayPrivate, "", "text"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Encode(New(CmdSay, "main", "line\nbreak"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Encode(New("bad"))
	require.ErrorIs(t, err, ErrInvalidToken)
}
