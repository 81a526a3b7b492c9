package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeServer struct {
	listenErr error
	stopped   chan struct{}
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stopped: make(chan struct{})}
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	close(s.stopped)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPServerService_ShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer(nil)
	svc := NewHTTPServerService(srv, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	bindErr := errors.New("address already in use")
	svc := NewHTTPServerService(newFakeServer(bindErr), time.Second, discardLogger())

	err := svc.Serve(context.Background())
	assert.ErrorIs(t, err, bindErr)
}

type countingService struct {
	runs chan struct{}
}

func (s *countingService) Serve(ctx context.Context) error {
	s.runs <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestNewRoot_RunsServices(t *testing.T) {
	root := NewRoot("test", discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := &countingService{runs: make(chan struct{}, 1)}
	root.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := root.ServeBackground(ctx)

	select {
	case <-svc.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("service was not started")
	}
	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
