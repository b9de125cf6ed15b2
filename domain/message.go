// Package domain contains core concepts of the chat system.
// Messages form a single append-only log: once appended they are never
// updated nor removed.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Cursor is the insertion sequence of a message in the log.
// Sequences start at 1 and strictly increase; 0 means nothing seen yet.
type Cursor uint64

func (c Cursor) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParseCursor reads a cursor from its decimal form. An empty string is the zero cursor.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cursor %q: %w", s, err)
	}
	return Cursor(v), nil
}

// Message represents an immutable chat entry.
type Message struct {
	ID       string // store-assigned identity
	Seq      Cursor
	NickName string
	Text     string
	At       time.Time
}

// Head describes the newest end of the log.
type Head struct {
	Cursor Cursor
	Count  int
}

// Page is the part of the log that follows a cursor.
type Page struct {
	Messages []Message
	Cursor   Cursor
}

// Last returns the newest cursor of messages, or fallback when there are none.
func Last(messages []Message, fallback Cursor) Cursor {
	if len(messages) == 0 {
		return fallback
	}
	return messages[len(messages)-1].Seq
}
