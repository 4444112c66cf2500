package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/lobbyclient/internal/config"
	"github.com/vovakirdan/lobbyclient/internal/store"
	"github.com/vovakirdan/lobbyclient/internal/store/sqlite"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit   int
		channel string
		session string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print logged lobby sessions, or the lines of a channel or session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(config.Config{})
			if err != nil {
				return err
			}
			if cfg.HistoryPath == "" {
				return fmt.Errorf("history_path is not configured")
			}

			st, err := sqlite.New(cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if channel == "" && session == "" {
				return printSessions(ctx, cmd.OutOrStdout(), st, limit)
			}
			return printMessages(ctx, cmd.OutOrStdout(), st, store.MessageFilter{
				SessionID: session,
				Channel:   channel,
				Limit:     limit,
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "show lines of a channel or private peer")
	cmd.Flags().StringVarP(&session, "session", "s", "", "show lines of a session")
	return cmd
}

func printSessions(ctx context.Context, w io.Writer, st store.SessionStore, limit int) error {
	sessions, err := st.ListSessions(ctx, limit)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(w)
	table.Header("ID", "Server", "User", "Started", "Duration", "Reason")
	for _, s := range sessions {
		duration := "active"
		if s.EndedAt != nil {
			duration = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		if err := table.Append([]string{
			s.ID,
			s.Host,
			s.Username,
			humanize.Time(s.StartedAt),
			duration,
			s.Reason,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printMessages(ctx context.Context, w io.Writer, st store.MessageStore, filter store.MessageFilter) error {
	msgs, err := st.ListMessages(ctx, filter)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(w)
	table.Header("When", "Kind", "Channel", "From", "Text")
	for _, m := range msgs {
		if err := table.Append([]string{
			humanize.Time(m.CreatedAt),
			string(m.Kind),
			m.Channel,
			m.Sender,
			m.Body,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s lines\n", humanize.Comma(int64(len(msgs))))
	return err
}
