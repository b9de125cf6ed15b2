package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"poll-chat/domain"
)

// Detector tells the poller whether the log changed since the last
// acknowledged frame. Changed only reads; the poller calls Ack once the
// frame is on screen, so a failed fetch or render is retried next tick.
type Detector interface {
	Changed(ctx context.Context) (Change, bool, error)
	Ack(change Change)
}

// Change is what a detector saw. Messages is set when the detector
// already downloaded the log to decide.
type Change struct {
	Cursor   domain.Cursor
	Count    int
	Messages []domain.Message
}

type DetectorKind string

const (
	DetectCursor DetectorKind = "cursor"
	DetectCount  DetectorKind = "count"
)

type HeadReader interface {
	Head(ctx context.Context) (domain.Head, error)
}

type Lister interface {
	List(ctx context.Context) ([]domain.Message, error)
}

// API is everything the poller needs from the server.
type API interface {
	HeadReader
	Lister
}

// NewDetector returns the detector named by kind. An empty kind means cursor.
func NewDetector(kind DetectorKind, api API) (Detector, error) {
	switch DetectorKind(strings.ToLower(string(kind))) {
	case DetectCursor, "":
		return NewCursorDetector(api), nil
	case DetectCount:
		return NewCountDetector(api), nil
	default:
		return nil, fmt.Errorf("unknown detector %q", kind)
	}
}

// CursorDetector compares the head cursor with the last one seen.
// Any append moves the cursor, whatever the size of the log.
type CursorDetector struct {
	mu     sync.Mutex
	reader HeadReader
	last   domain.Cursor
}

func NewCursorDetector(reader HeadReader) *CursorDetector {
	return &CursorDetector{reader: reader}
}

func (d *CursorDetector) Changed(ctx context.Context) (Change, bool, error) {
	head, err := d.reader.Head(ctx)
	if err != nil {
		return Change{}, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if head.Cursor == d.last {
		return Change{}, false, nil
	}
	return Change{Cursor: head.Cursor, Count: head.Count}, true, nil
}

func (d *CursorDetector) Ack(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = change.Cursor
}

// CountDetector reports a change only when the log grew past the largest
// size seen so far. A log that is replaced by one of equal or smaller size
// goes unnoticed until it outgrows that size.
type CountDetector struct {
	mu     sync.Mutex
	lister Lister
	last   int
}

func NewCountDetector(lister Lister) *CountDetector {
	return &CountDetector{lister: lister}
}

func (d *CountDetector) Changed(ctx context.Context) (Change, bool, error) {
	messages, err := d.lister.List(ctx)
	if err != nil {
		return Change{}, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(messages) <= d.last {
		return Change{}, false, nil
	}
	return Change{Count: len(messages), Messages: messages}, true, nil
}

func (d *CountDetector) Ack(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if change.Count > d.last {
		d.last = change.Count
	}
}
