package broadcast

import (
	"sync"
	"testing"
	"time"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil || hub.byUser == nil {
		t.Error("Hub client maps are nil")
	}
	if hub.broadcast == nil || hub.direct == nil {
		t.Error("Hub publish channels are nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub membership channels are nil")
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub()

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("ClientCount() = %v, want 0", count)
	}
}

func TestHub_PublishRound_DropsWhenFull(t *testing.T) {
	hub := NewHub()

	// Hub not running, so the queue fills up.
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.PublishRound(map[string]string{"msg": "test"})
	}

	done := make(chan bool, 1)
	go func() {
		hub.PublishRound(map[string]string{"msg": "overflow"})
		done <- true
	}()

	select {
	case <-done:
		// Dropped, not blocked.
	case <-time.After(100 * time.Millisecond):
		t.Error("PublishRound() blocked when the queue was full")
	}
}

func TestHub_PublishUser_DropsWhenFull(t *testing.T) {
	hub := NewHub()

	for i := 0; i < cap(hub.direct); i++ {
		hub.PublishUser("u1", map[string]string{"msg": "test"})
	}

	done := make(chan bool, 1)
	go func() {
		hub.PublishUser("u1", map[string]string{"msg": "overflow"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("PublishUser() blocked when the queue was full")
	}
}

func TestHub_ConcurrentPublishes(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			hub.PublishRound(map[string]int{"value": n})
		}(i)
		go func(n int) {
			defer wg.Done()
			hub.PublishUser("u1", map[string]int{"value": n})
		}(i)
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("concurrent publishes timed out")
	}
}

func TestHub_ClientCount_ThreadSafe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = hub.ClientCount()
		}()
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("concurrent ClientCount() timed out")
	}
}

func BenchmarkHub_PublishRound(b *testing.B) {
	hub := NewHub()
	go hub.Run()

	message := map[string]string{"type": "benchmark"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.PublishRound(message)
	}
}
