package session

import (
	"sync"
	"testing"
	"time"
)

// TestOperationsSerialize hammers the session from many goroutines. The fake
// engine's inflight counter fails the test if two engine calls ever overlap.
func TestOperationsSerialize(t *testing.T) {
	eng := newFakeEngine(t)
	eng.pieces = []string{"a", "b", "c"}
	eng.stepDelay = 100 * time.Microsecond
	s := NewWithEngine(eng)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				switch j % 4 {
				case 0:
					_ = s.Load("/models/c.gguf", 0, 0)
				case 1:
					_, _ = s.Generate("prompt", 3, 0)
				case 2:
					_ = s.Loaded()
					_ = s.InfoJSON()
				case 3:
					s.Unload()
				}
			}
		}()
	}
	wg.Wait()
}

// TestCancelDoesNotBlockOnGenerationLock pins down that Cancel returns while
// a generation holds the session lock.
func TestCancelDoesNotBlockOnGenerationLock(t *testing.T) {
	eng := newFakeEngine(t)
	eng.stepDelay = time.Millisecond
	pieces := make([]string, 500)
	for i := range pieces {
		pieces[i] = "x"
	}
	eng.pieces = pieces
	s := loadedSession(t, eng)

	done := make(chan struct{})
	go func() {
		_, _ = s.Generate("prompt", 500, 0)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	cancelled := make(chan struct{})
	go func() {
		s.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("cancel blocked while generation held the lock")
	}
	<-done
}

// TestLoadedReadableDuringGeneration verifies the loaded flag stays readable
// while a generation holds the lock.
func TestLoadedReadableDuringGeneration(t *testing.T) {
	eng := newFakeEngine(t)
	eng.stepDelay = time.Millisecond
	pieces := make([]string, 200)
	for i := range pieces {
		pieces[i] = "y"
	}
	eng.pieces = pieces
	s := loadedSession(t, eng)

	done := make(chan struct{})
	go func() {
		_, _ = s.Generate("prompt", 200, 0)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	polled := make(chan bool, 1)
	go func() { polled <- s.Loaded() }()
	select {
	case loaded := <-polled:
		if !loaded {
			t.Error("loaded flag false during generation")
		}
	case <-time.After(time.Second):
		t.Fatal("Loaded blocked during generation")
	}
	s.Cancel()
	<-done
}
