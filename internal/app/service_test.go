package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
	stopLog  *stopLog
}

type stopLog struct {
	mu    sync.Mutex
	names []string
}

func (l *stopLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *fakeService) Stop(_ context.Context) error {
	s.stopped.Store(true)
	if s.stopLog != nil {
		s.stopLog.add(s.name)
	}
	return nil
}

func TestRunnerStopsAllWhenOneFails(t *testing.T) {
	failing := &fakeService{name: "http", startErr: errors.New("bind failed")}
	blocking := &fakeService{name: "worker", block: true}

	err := NewRunner(failing, blocking).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "bind failed" {
		t.Fatalf("expected start error, got %v", err)
	}
	if !failing.stopped.Load() || !blocking.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerCancelledContextReturnsNil(t *testing.T) {
	svc := &fakeService{name: "http", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
	if !svc.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestRunnerStopsInReverseOrder(t *testing.T) {
	log := &stopLog{}
	first := &fakeService{name: "http", block: true, stopLog: log}
	second := &fakeService{name: "worker", block: true, stopLog: log}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(first, second).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(log.names) != 2 || log.names[0] != "worker" || log.names[1] != "http" {
		t.Fatalf("unexpected stop order: %v", log.names)
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for empty runner")
	}
}

func TestIsValidMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker} {
		if !isValidMode(mode) {
			t.Fatalf("mode %s should be valid", mode)
		}
	}
	if isValidMode("cron") {
		t.Fatalf("unknown mode should be rejected")
	}
}
