package host

import (
	"context"
	"testing"
	"time"
)

func TestTickLoopRunsJobsInOrder(t *testing.T) {
	loop := NewTickLoop()
	defer loop.Close()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if err := loop.Do(context.Background(), func() { got = append(got, i) }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("jobs ran out of order: got %v", got)
		}
	}
}

func TestTickLoopSerializesConcurrentSubmitters(t *testing.T) {
	loop := NewTickLoop()
	defer loop.Close()

	// No data race on counter: the loop is the only writer context.
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = loop.Do(context.Background(), func() { counter++ })
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if counter != 800 {
		t.Fatalf("counter = %d, want 800", counter)
	}
}

func TestTickLoopClosed(t *testing.T) {
	loop := NewTickLoop()
	loop.Close()
	// Close is async with respect to a submit racing the quit channel, so
	// poll briefly for the terminal state.
	deadline := time.Now().Add(time.Second)
	for {
		err := loop.Do(context.Background(), func() {})
		if err == ErrClosed {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Do after Close: got %v, want ErrClosed", err)
		}
	}
}

func TestTickLoopContextBoundsWait(t *testing.T) {
	loop := NewTickLoop()
	defer loop.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go loop.Do(context.Background(), func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := loop.Do(ctx, func() {})
	if err != context.DeadlineExceeded {
		t.Fatalf("Do with expired ctx: got %v, want DeadlineExceeded", err)
	}
	close(release)
}
