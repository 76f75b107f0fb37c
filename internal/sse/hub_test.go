package sse

import "testing"

func TestPublishReachesTopicOnly(t *testing.T) {
	h := New()
	a, unsubA := h.Subscribe("backup:1")
	defer unsubA()
	b, unsubB := h.Subscribe("backup:2")
	defer unsubB()

	h.PublishJSON("backup:1", "backup_status", map[string]string{"status": "completed"})

	select {
	case evt := <-a:
		if evt.Type != "backup_status" || evt.Data != `{"status":"completed"}` {
			t.Errorf("event = %+v", evt)
		}
	default:
		t.Fatal("subscriber did not receive event")
	}
	select {
	case evt := <-b:
		t.Errorf("other topic received %+v", evt)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New()
	ch, unsub := h.Subscribe("backup:1")
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("channel still open")
	}
	if n := h.Subscribers("backup:1"); n != 0 {
		t.Errorf("subscribers = %d", n)
	}
	h.Publish("backup:1", Event{Type: "x"})
}

func TestSlowSubscriberIsSkipped(t *testing.T) {
	h := New()
	_, unsub := h.Subscribe("t")
	defer unsub()
	for i := 0; i < 100; i++ {
		h.Publish("t", Event{Type: "tick"})
	}
}
