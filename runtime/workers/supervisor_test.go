package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatd/mocks"
)

func TestSupervisor_Restarts_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error {
		if runs.Add(1) >= 3 {
			cancel()
			return nil
		}
		panic("worker blew up")
	}).MinTimes(3)

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish in time")
	}
	req.GreaterOrEqual(runs.Load(), int32(3))
}

func TestSupervisor_Does_Not_Restart_Finished_Worker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).Return(nil).Times(1)

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not finish in time")
	}
	// gomock enforces the single invocation on Finish
}

func TestSupervisor_Stop_Cancels_Workers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	worker := mocks.NewMockWorker(ctrl)
	worker.EXPECT().Run(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}).Times(1)

	supervisor := NewSupervisor(slog.Default())
	supervisor.Add(worker)

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	<-started
	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop in time")
	}
	req.NotNil(supervisor.Cancel)
}
