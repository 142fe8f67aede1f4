package pubsub

import (
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		return ""
	}
}

func TestStream_BroadcastToAllSubscribers(t *testing.T) {
	s := New[string]()
	a, cancelA := s.Subscribe(4)
	defer cancelA()
	b, cancelB := s.Subscribe(4)
	defer cancelB()

	if n := s.Publish("hello"); n != 2 {
		t.Errorf("Publish delivered to %d subscribers, want 2", n)
	}
	if got := receive(t, a); got != "hello" {
		t.Errorf("a got %q", got)
	}
	if got := receive(t, b); got != "hello" {
		t.Errorf("b got %q", got)
	}
}

func TestStream_NoReplayForLateSubscribers(t *testing.T) {
	s := New[string]()
	s.Publish("early")

	ch, cancel := s.Subscribe(4)
	defer cancel()
	s.Publish("late")

	if got := receive(t, ch); got != "late" {
		t.Errorf("got %q, want %q", got, "late")
	}
}

func TestStream_UnsubscribeDoesNotAffectOthers(t *testing.T) {
	s := New[string]()
	a, cancelA := s.Subscribe(4)
	b, cancelB := s.Subscribe(4)
	defer cancelB()

	cancelA()
	cancelA() // idempotent

	if _, ok := <-a; ok {
		t.Error("unsubscribed channel still open")
	}
	if s.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", s.Subscribers())
	}

	s.Publish("x")
	if got := receive(t, b); got != "x" {
		t.Errorf("b got %q", got)
	}
}

func TestStream_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := New[string]()
	slow, cancelSlow := s.Subscribe(1)
	defer cancelSlow()
	fast, cancelFast := s.Subscribe(8)
	defer cancelFast()

	for _, v := range []string{"1", "2", "3"} {
		s.Publish(v)
	}

	if got := receive(t, slow); got != "1" {
		t.Errorf("slow got %q, want 1", got)
	}
	for _, want := range []string{"1", "2", "3"} {
		if got := receive(t, fast); got != want {
			t.Errorf("fast got %q, want %q", got, want)
		}
	}
	if s.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", s.Dropped())
	}
}

func TestStream_ConcurrentPublishAndSubscribe(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ch, cancel := s.Subscribe(2)
				s.Publish(j)
				select {
				case <-ch:
				default:
				}
				cancel()
			}
		}()
	}
	wg.Wait()

	if s.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", s.Subscribers())
	}
}
