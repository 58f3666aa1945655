package events

import "testing"

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBus()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(TrackLoaded, "song")

	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.Type != TrackLoaded || ev.Payload != "song" {
			t.Errorf("got %+v", ev)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Publish(Diagnostic, 1)
	b.Publish(Diagnostic, 2) // dropped

	if ev := <-ch; ev.Payload != 1 {
		t.Errorf("got %v", ev.Payload)
	}
	select {
	case ev := <-ch:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	other := b.Subscribe(1)
	b.Close()
	if _, ok := <-other; ok {
		t.Error("channel should be closed after Close")
	}
	late := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed bus should yield a closed channel")
	}
}
