package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("plan-1")
	defer b.Unsubscribe("plan-1", ch)

	b.Publish("plan-1", PlanEvent{Type: "plan.trial", Data: map[string]any{"trial": 0}})
	select {
	case evt := <-ch:
		if evt.Type != "plan.trial" {
			t.Fatalf("type = %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBrokerIsolatesPlans(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("plan-a")
	defer b.Unsubscribe("plan-a", ch)

	b.Publish("plan-b", PlanEvent{Type: "plan.completed"})
	select {
	case evt := <-ch:
		t.Fatalf("got event for other plan: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("plan-1")
	defer b.Unsubscribe("plan-1", ch)

	// Channel buffer is 8; publishing more must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			b.Publish("plan-1", PlanEvent{Type: "plan.trial"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("plan-1")
	b.Unsubscribe("plan-1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after unsubscribe")
	}
	// Publishing after unsubscribe is a no-op.
	b.Publish("plan-1", PlanEvent{Type: "plan.trial"})
}

func TestMetricPathFolding(t *testing.T) {
	cases := map[string]string{
		"/v1/plans":                   "/v1/plans",
		"/v1/plans/abc":               "/v1/plans/{id}",
		"/v1/plans/abc/packages":      "/v1/plans/{id}/packages",
		"/v1/plans/abc/events/stream": "/v1/plans/{id}/events/stream",
		"/v1/subscriptions":           "/v1/subscriptions",
		"/v1/subscriptions/some-id":   "/v1/subscriptions/{id}",
		"/healthz":                    "/healthz",
	}
	for in, want := range cases {
		if got := metricPath(in); got != want {
			t.Errorf("metricPath(%q) = %q, want %q", in, got, want)
		}
	}
}
