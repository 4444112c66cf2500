package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/store"
	"github.com/vovakirdan/lobbyclient/internal/store/sqlite"
)

func TestHashPasswordReadsStdin(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("s3cret\n"))
	cmd.SetArgs([]string{"token", "--hash-password"})

	require.NoError(t, cmd.Execute())
	hash := strings.TrimSpace(out.String())
	require.NoError(t, auth.ComparePassword(hash, "s3cret"))
}

func TestHistoryTables(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	started := time.Now().Add(-time.Hour)
	require.NoError(t, st.StartSession(ctx, &store.Session{ID: "abc123", Host: "lobby:8200", Username: "alice", StartedAt: started}))
	require.NoError(t, st.EndSession(ctx, "abc123", started.Add(90*time.Second), "transport read: connection closed by server"))
	require.NoError(t, st.SaveMessage(ctx, &store.Message{
		SessionID: "abc123",
		Kind:      store.MessageKindChannel,
		Channel:   "main",
		Sender:    "bob",
		Body:      "hello there",
		CreatedAt: started,
	}))

	var out bytes.Buffer
	require.NoError(t, printSessions(ctx, &out, st, 10))
	require.Contains(t, out.String(), "abc123")
	require.Contains(t, out.String(), "1m30s")
	require.Contains(t, out.String(), "1 hour ago")

	out.Reset()
	require.NoError(t, printMessages(ctx, &out, st, store.MessageFilter{Channel: "main"}))
	require.Contains(t, out.String(), "hello there")
	require.Contains(t, out.String(), "1 lines")
}
