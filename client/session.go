package client

import (
	"context"
	"strings"
	"sync"

	"poll-chat/domain"
	"poll-chat/errors"
)

type State int

const (
	Unnamed State = iota
	Named
)

func (s State) String() string {
	if s == Named {
		return "named"
	}
	return "unnamed"
}

// Poster is the part of the API a session writes through.
type Poster interface {
	Post(ctx context.Context, cmd domain.PostMessageCommand) ([]domain.Message, error)
}

// Session holds the nickname of one chat participant.
// It starts Unnamed and becomes Named once, in place.
type Session struct {
	mu     sync.RWMutex
	poster Poster
	name   string
	state  State
}

func NewSession(poster Poster) *Session {
	return &Session{poster: poster}
}

// SetName activates the session. A blank name leaves it untouched.
// Nicknames are not checked against other participants.
func (s *Session) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.state = Named
	return nil
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Send posts text under the session nickname. The display is not refreshed
// here: the poller picks the message up on its next tick.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.RLock()
	name, state := s.name, s.state
	s.mu.RUnlock()

	if state != Named {
		return errors.ErrUnnamed
	}
	if strings.TrimSpace(text) == "" {
		return errors.ErrEmptyMessage
	}
	_, err := s.poster.Post(ctx, domain.PostMessageCommand{NickName: name, Text: text})
	return err
}
