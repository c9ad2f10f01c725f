package events_test

import (
	"testing"
	"time"

	"github.com/micro-nova/periphd/internal/events"
	"github.com/micro-nova/periphd/internal/models"
)

func recv(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
	return models.Event{}
}

func TestPublishDelivers(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("all")

	bus.Publish(models.Event{
		Kind:  models.EventRadio,
		Radio: &models.RadioStatus{Name: "loox720-bt", State: "on"},
	})
	got := recv(t, ch)
	if got.Kind != models.EventRadio || got.Radio == nil || got.Radio.State != "on" {
		t.Errorf("got event %+v, want radio on", got)
	}
}

func TestKindFilter(t *testing.T) {
	bus := events.NewBus()
	radios := bus.Subscribe("radios", models.EventRadio)

	bus.Publish(models.Event{Kind: models.EventJack})
	bus.Publish(models.Event{Kind: models.EventSystem})
	bus.Publish(models.Event{Kind: models.EventRadio})

	if got := recv(t, radios); got.Kind != models.EventRadio {
		t.Errorf("first event kind = %s, want radio", got.Kind)
	}
	select {
	case ev := <-radios:
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestUnsubscribeCloses(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("gone")
	bus.Unsubscribe("gone")
	bus.Unsubscribe("gone")

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestResubscribeReplaces(t *testing.T) {
	bus := events.NewBus()
	first := bus.Subscribe("sse")
	second := bus.Subscribe("sse")

	if _, ok := <-first; ok {
		t.Error("replaced channel should be closed")
	}
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", n)
	}
	bus.Publish(models.Event{Kind: models.EventJack})
	recv(t, second)
}

func TestSlowSubscriberDrops(t *testing.T) {
	bus := events.NewBus()
	bus.Subscribe("slow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(models.Event{Kind: models.EventJack})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := bus.Dropped("slow"); got != 50-16 {
		t.Errorf("Dropped() = %d, want %d", got, 50-16)
	}
	if got := bus.Dropped("nobody"); got != 0 {
		t.Errorf("Dropped(unknown) = %d, want 0", got)
	}
}
