package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFirstTickRunsImmediately(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	p := New(time.Hour, zerolog.Nop())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context) error {
			ticks.Add(1)
			return nil
		})
	}()

	deadline := time.After(time.Second)
	for ticks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("首个 tick 应立即执行")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
	}
}

func TestTickErrorIsNotFatal(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(5*time.Millisecond, zerolog.Nop())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context) error {
			ticks.Add(1)
			return errors.New("boom")
		})
	}()

	deadline := time.After(time.Second)
	for ticks.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("tick 报错后轮询应继续")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	<-done
}
