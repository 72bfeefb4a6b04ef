package ipc

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestPublishOrder(t *testing.T) {
	topic := NewTopic[int]("test")
	var got []int
	dispose := topic.Subscribe(func(v int) { got = append(got, v) })
	defer dispose()

	for i := range 5 {
		topic.Publish(i)
	}
	if want := []int{0, 1, 2, 3, 4}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSubscribersCalledInRegistrationOrder(t *testing.T) {
	topic := NewTopic[string]("test")
	var calls []string
	topic.Subscribe(func(string) { calls = append(calls, "a") })
	topic.Subscribe(func(string) { calls = append(calls, "b") })
	topic.Subscribe(func(string) { calls = append(calls, "c") })

	topic.Publish("x")
	if want := []string{"a", "b", "c"}; !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestDisposer(t *testing.T) {
	topic := NewTopic[string]("test")
	var a, b int
	disposeA := topic.Subscribe(func(string) { a++ })
	topic.Subscribe(func(string) { b++ })

	topic.Publish("one")
	disposeA()
	disposeA()
	topic.Publish("two")

	if a != 1 || b != 2 {
		t.Errorf("a = %d, b = %d, want 1 and 2", a, b)
	}
	if topic.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", topic.Subscribers())
	}
}

func TestDisposeDuringPublish(t *testing.T) {
	topic := NewTopic[int]("test")
	var count int
	var dispose func()
	dispose = topic.Subscribe(func(int) {
		count++
		dispose()
	})

	topic.Publish(1)
	topic.Publish(2)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPanickingSubscriber(t *testing.T) {
	topic := NewTopic[int]("test")
	topic.Subscribe(func(int) { panic("bad subscriber") })
	var delivered bool
	topic.Subscribe(func(int) { delivered = true })

	topic.Publish(1)
	if !delivered {
		t.Error("second subscriber not called after first panicked")
	}
}

func TestConcurrentPublish(t *testing.T) {
	topic := NewTopic[int]("test")
	var mu sync.Mutex
	seen := make(map[int]bool)
	topic.Subscribe(func(v int) {
		mu.Lock()
		seen[v] = true
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic.Publish(i)
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("delivered %d values, want 50", len(seen))
	}
}

func TestResult(t *testing.T) {
	if r := OK(); !r.Success || r.Error != "" {
		t.Errorf("OK() = %+v", r)
	}
	if r := Failed(errors.New("disk full")); r.Success || r.Error != "disk full" {
		t.Errorf("Failed() = %+v", r)
	}
	if r := Failed(nil); r.Success {
		t.Errorf("Failed(nil) = %+v", r)
	}
}

func TestNewSignalsNames(t *testing.T) {
	s := NewSignals()
	names := []string{
		s.AutoRefresh.Name(), s.ForceRefresh.Name(), s.NavigateTo.Name(), s.ThemeChanged.Name(),
		s.Show.Name(), s.Hide.Name(), s.Focus.Name(),
	}
	want := []string{"auto-refresh", "force-refresh", "navigate-to", "theme-changed", "show", "hide", "focus"}
	if !slices.Equal(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}
