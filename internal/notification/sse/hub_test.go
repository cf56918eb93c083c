package sse

import (
	"encoding/json"
	"testing"

	"taller_backend/platform/logger"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(logger.New("development"))

	ch1, cancel1 := hub.Subscribe()
	ch2, cancel2 := hub.Subscribe()
	defer cancel1()
	defer cancel2()

	hub.Broadcast("service_orders")

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case data := <-ch:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.Table != "service_orders" {
				t.Fatalf("table = %q", msg.Table)
			}
		default:
			t.Fatal("subscriber did not receive the broadcast")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(logger.New("development"))

	ch, cancel := hub.Subscribe()
	cancel()

	hub.Broadcast("customers")

	select {
	case <-ch:
		t.Fatal("unsubscribed client must not receive broadcasts")
	default:
	}

	if hub.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", hub.ClientCount())
	}
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(logger.New("development"))

	_, cancel := hub.Subscribe()
	defer cancel()

	// Exceed the buffer; Broadcast must never block.
	for i := 0; i < clientBuffer*2; i++ {
		hub.Broadcast("service_orders")
	}
}
