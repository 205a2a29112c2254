package web

import (
	"testing"
	"time"
)

func TestBroadcastDelivers(t *testing.T) {
	b := NewBroadcaster()
	l1 := b.Subscribe()
	l2 := b.Subscribe()
	if b.ListenerCount() != 2 {
		t.Fatalf("ListenerCount = %d, want 2", b.ListenerCount())
	}

	b.Publish([]byte("hello"))
	for i, l := range []*Listener{l1, l2} {
		select {
		case got := <-l.C:
			if string(got) != "hello" {
				t.Errorf("listener %d got %q", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("listener %d timed out", i)
		}
	}

	b.Unsubscribe(l1)
	b.Unsubscribe(l1) // second call is a no-op
	if b.ListenerCount() != 1 {
		t.Errorf("ListenerCount = %d, want 1", b.ListenerCount())
	}
}

func TestBroadcastSkipsUnsubscribed(t *testing.T) {
	b := NewBroadcaster()
	l := b.Subscribe()
	b.Unsubscribe(l)

	b.Publish([]byte("late"))
	select {
	case got := <-l.C:
		t.Errorf("unsubscribed listener got %q", got)
	default:
	}
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestBroadcastDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	l := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(l.C)*3; i++ {
			b.Publish([]byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow listener")
	}
	if len(l.C) != cap(l.C) {
		t.Errorf("buffered %d events, want full buffer %d", len(l.C), cap(l.C))
	}
}

func TestStatePublishesSnapshots(t *testing.T) {
	s := NewState(5, 30)
	l := s.Events().Subscribe()
	defer s.Events().Unsubscribe(l)

	s.SetFile("a.wav", 10)
	s.ShowToast("boom")
	s.HideToast()

	if len(l.C) != 3 {
		t.Fatalf("published %d events, want 3", len(l.C))
	}
	snap := s.Snapshot()
	if snap.File.Name != "a.wav" || snap.Toast != "" {
		t.Errorf("snapshot = %+v", snap)
	}

	s.SetRecording(true)
	s.SetElapsed(3500 * time.Millisecond)
	if got := s.Snapshot().Elapsed; got != 3 {
		t.Errorf("Elapsed = %d, want 3", got)
	}
	s.SetRecording(false)
	if got := s.Snapshot().Elapsed; got != 0 {
		t.Errorf("Elapsed after stop = %d, want 0", got)
	}
}
