package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"poll-chat/domain"
	"poll-chat/observability"

	"github.com/shirou/gopsutil/process"
)

type HeadReader interface {
	Head(ctx context.Context) (domain.Head, error)
}

// HeartbeatWorker publishes the size of the log and the health of the
// server process as gauges on every tick.
type HeartbeatWorker struct {
	log      *slog.Logger
	store    HeadReader
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, store HeadReader, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, store: store, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.beat(ctx, p)
		}
	}
}

func (w *HeartbeatWorker) beat(ctx context.Context, p *process.Process) {
	head, err := w.store.Head(ctx)
	if err != nil {
		w.log.Warn("Message store unreachable for heartbeat", "error", err)
	} else {
		observability.LogMessages.Set(float64(head.Count))
		observability.LogCursor.Set(float64(head.Cursor))
	}

	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
		return
	}
	observability.ProcessRSS.Set(float64(rss))
	observability.ProcessCPU.Set(cpu)
	w.log.Debug("Heartbeat", "messages", head.Count, "cursor", head.Cursor, "rss", rss, "cpu", cpu)
}

// selfStats retrieves resident memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
