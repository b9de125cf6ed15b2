package client

import (
	"fmt"
	"io"
	"sync"

	"poll-chat/domain"

	"github.com/gookit/color"
	"github.com/samber/lo"
)

// Line is one rendered message.
type Line struct {
	NickName string
	Text     string
	Own      bool
}

// Renderer displays a whole frame, replacing the previous one.
type Renderer interface {
	Render(frame []Line) error
}

// BuildFrame keeps the last limit messages in their original order and marks
// those written under self. A limit of zero or less keeps everything.
func BuildFrame(messages []domain.Message, self string, limit int) []Line {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return lo.Map(messages, func(m domain.Message, _ int) Line {
		return Line{NickName: m.NickName, Text: m.Text, Own: m.NickName == self}
	})
}

// TerminalRenderer clears the screen and prints one colored line per message.
type TerminalRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	own   color.Style
	other color.Style
	clear bool
}

func NewTerminalRenderer(out io.Writer, clearScreen bool) *TerminalRenderer {
	return &TerminalRenderer{
		out:   out,
		own:   color.New(color.FgGreen, color.OpBold),
		other: color.New(color.FgCyan),
		clear: clearScreen,
	}
}

func (r *TerminalRenderer) Render(frame []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clear {
		if _, err := io.WriteString(r.out, "\033[H\033[2J"); err != nil {
			return err
		}
	}
	for _, line := range frame {
		style := r.other
		if line.Own {
			style = r.own
		}
		if _, err := fmt.Fprintln(r.out, style.Render(fmt.Sprintf("%s: %s", line.NickName, line.Text))); err != nil {
			return err
		}
	}
	return nil
}

// RecordingRenderer keeps every frame in memory.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames [][]Line
}

func (r *RecordingRenderer) Render(frame []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]Line(nil), frame...))
	return nil
}

func (r *RecordingRenderer) Frames() [][]Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Line(nil), r.frames...)
}

// Last returns the most recent frame, or nil before the first render.
func (r *RecordingRenderer) Last() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}
