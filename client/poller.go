package client

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultPollInterval = time.Second
	DefaultRenderLimit  = 10
)

type PollerOptions struct {
	Interval    time.Duration
	RenderLimit int
}

// Poller re-renders the log whenever its detector reports a change.
// It is meant to run under a supervisor as a worker.
type Poller struct {
	log      *slog.Logger
	api      API
	session  *Session
	detector Detector
	renderer Renderer
	interval time.Duration
	limit    int
}

func NewPoller(log *slog.Logger, api API, session *Session, detector Detector, renderer Renderer, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.RenderLimit <= 0 {
		opts.RenderLimit = DefaultRenderLimit
	}
	return &Poller{
		log:      log,
		api:      api,
		session:  session,
		detector: detector,
		renderer: renderer,
		interval: opts.Interval,
		limit:    opts.RenderLimit,
	}
}

// Run polls on every tick until ctx is done.
// A poll that outlasts the interval delays the next tick; polls never overlap.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one detection cycle and reports whether a frame was rendered.
// Failures are logged and dropped. The detector is only acknowledged after
// a successful render, so the next tick retries the same change.
func (p *Poller) Poll(ctx context.Context) bool {
	if p.session.State() != Named {
		return false
	}

	change, changed, err := p.detector.Changed(ctx)
	if err != nil {
		p.log.Warn("Poll failed", "stage", "detect", "error", err)
		return false
	}
	if !changed {
		return false
	}

	messages := change.Messages
	if messages == nil {
		if messages, err = p.api.List(ctx); err != nil {
			p.log.Warn("Poll failed", "stage", "list", "error", err)
			return false
		}
	}
	if err := p.renderer.Render(BuildFrame(messages, p.session.Name(), p.limit)); err != nil {
		p.log.Warn("Render failed", "error", err)
		return false
	}
	p.detector.Ack(change)
	return true
}
