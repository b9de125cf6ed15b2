package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"poll-chat/domain"
	"poll-chat/mocks"
	"poll-chat/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHeartbeatWorker_PublishesHead(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	repository.EXPECT().Head(gomock.Any()).Return(domain.Head{Cursor: 42, Count: 40}, nil).MinTimes(1)

	worker := NewHeartbeatWorker(slog.Default(), repository, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool {
		return testutil.ToFloat64(observability.LogCursor) == 42
	}, time.Second, 5*time.Millisecond)
	req.Equal(float64(40), testutil.ToFloat64(observability.LogMessages))
	req.Positive(testutil.ToFloat64(observability.ProcessRSS))

	cancel()
	req.NoError(<-done)
}

func TestHeartbeatWorker_StoreDown(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	called := make(chan struct{}, 1)
	repository.EXPECT().Head(gomock.Any()).DoAndReturn(func(context.Context) (domain.Head, error) {
		select {
		case called <- struct{}{}:
		default:
		}
		return domain.Head{}, fmt.Errorf("connection refused")
	}).MinTimes(1)

	worker := NewHeartbeatWorker(slog.Default(), repository, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	<-called
	cancel()
	req.NoError(<-done)
}
