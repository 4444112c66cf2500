// Package history records lobby sessions and chat lines into a store.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/store"
)

// ErrNoSession is returned by Record when no session is being logged.
var ErrNoSession = errors.New("no active session")

const writeTimeout = 2 * time.Second

// Service is a bus consumer that logs the session timeline.
// Its handlers run on the consumer goroutine, one at a time.
type Service struct {
	store store.Store
	log   *zerolog.Logger

	current string
	subs    []bus.Subscription
}

// New creates a history service.
func New(st store.Store, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store: st,
		log:   logger,
	}
}

// Attach subscribes the service to the events it records.
func (s *Service) Attach(b *bus.Bus) {
	for _, kind := range []core.EventKind{
		core.EventConnected,
		core.EventLoginResult,
		core.EventServerMsg,
		core.EventSaid,
		core.EventSaidPrivate,
		core.EventRing,
	} {
		s.subs = append(s.subs, b.Subscribe(kind, s.Handle))
	}
}

// Detach removes the subscriptions made by Attach.
func (s *Service) Detach(b *bus.Bus) {
	for _, sub := range s.subs {
		b.Unsubscribe(sub)
	}
	s.subs = nil
}

// Handle records one event. Storage failures are logged, never propagated:
// history must not disturb the session.
func (s *Service) Handle(ev core.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.handle(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("kind", ev.Kind.String()).Msg("history write failed")
	}
}

func (s *Service) handle(ctx context.Context, ev core.Event) error {
	if ev.Kind != core.EventConnected {
		if s.current == "" || (ev.SessionID != "" && ev.SessionID != s.current) {
			return nil
		}
	}

	switch ev.Kind {
	case core.EventConnected:
		if ev.Connected {
			return s.start(ctx, ev)
		}
		return s.end(ctx, ev)

	case core.EventLoginResult:
		if !ev.Success {
			return nil
		}
		return s.store.UpdateSessionUser(ctx, s.current, ev.Info)

	case core.EventServerMsg:
		return s.Record(ctx, &store.Message{Kind: store.MessageKindServer, Body: ev.Text, CreatedAt: ev.At})

	case core.EventSaid:
		return s.Record(ctx, &store.Message{
			Kind:      store.MessageKindChannel,
			Channel:   ev.Channel,
			Sender:    ev.From,
			Body:      ev.Text,
			CreatedAt: ev.At,
		})

	case core.EventSaidPrivate:
		return s.Record(ctx, &store.Message{
			Kind:      store.MessageKindPrivate,
			Channel:   ev.From,
			Sender:    ev.From,
			Body:      ev.Text,
			CreatedAt: ev.At,
		})

	case core.EventRing:
		return s.Record(ctx, &store.Message{
			Kind:      store.MessageKindRing,
			Sender:    ev.From,
			Body:      ev.From + " is ringing",
			CreatedAt: ev.At,
		})
	}
	return nil
}

// start opens a session record from Connected(true), which carries the
// session id and the server address.
func (s *Service) start(ctx context.Context, ev core.Event) error {
	if ev.SessionID == "" {
		return ErrNoSession
	}
	rec := &store.Session{
		ID:        ev.SessionID,
		Host:      ev.Info,
		StartedAt: ev.At,
	}
	if err := s.store.StartSession(ctx, rec); err != nil {
		return fmt.Errorf("start session %s: %w", ev.SessionID, err)
	}
	s.current = ev.SessionID
	s.log.Debug().Str("session_id", ev.SessionID).Msg("recording session")
	return nil
}

func (s *Service) end(ctx context.Context, ev core.Event) error {
	if s.current == "" || (ev.SessionID != "" && ev.SessionID != s.current) {
		return nil
	}
	id := s.current
	s.current = ""

	var reason string
	if ev.Err != nil {
		reason = ev.Err.Error()
	}
	return s.store.EndSession(ctx, id, ev.At, reason)
}

// Record stores a line under the current session.
func (s *Service) Record(ctx context.Context, msg *store.Message) error {
	if s.current == "" {
		return ErrNoSession
	}
	msg.SessionID = s.current
	return s.store.SaveMessage(ctx, msg)
}

// Current returns the id of the session being recorded, if any.
func (s *Service) Current() string {
	return s.current
}

// Messages lists stored lines.
func (s *Service) Messages(ctx context.Context, filter store.MessageFilter) ([]*store.Message, error) {
	return s.store.ListMessages(ctx, filter)
}

// Sessions lists recent sessions, newest first.
func (s *Service) Sessions(ctx context.Context, limit int) ([]*store.Session, error) {
	return s.store.ListSessions(ctx, limit)
}
