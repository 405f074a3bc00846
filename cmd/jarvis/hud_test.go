package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestRunSourceLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	done := runSource(context.Background(), runnerFunc(func(context.Context) error {
		return errors.New("relay gone")
	}), log)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("source did not finish")
	}
	assert.Contains(t, buf.String(), "event source stopped")
	assert.Contains(t, buf.String(), "relay gone")
}

func TestRunSourceStopsQuietly(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := runSource(ctx, runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}), log)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("source did not stop on cancel")
	}
	assert.Empty(t, buf.String())
}
