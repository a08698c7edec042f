package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"finarth/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"access refused", errors.New("Exception (403) Reason: \"ACCESS_REFUSED\""), false},
		{"validation", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "finarth", queueName: "finarth_events"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should start closed")
		}
	})

	t.Run("failures open the circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit should open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failure while half-open should reopen the circuit")
		}
	})

	t.Run("success closes", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should reset the breaker")
		}
	})
}

func TestClient_PublishFailsFast(t *testing.T) {
	client := &Client{exchangeName: "finarth", queueName: "finarth_events"}
	ev, err := NewHoldingChanged(HoldingChanged{UserID: 1, HoldingID: 2, Action: ActionCreated})
	if err != nil {
		t.Fatal(err)
	}

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	if err := client.Publish(context.Background(), ev); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Publish(ctx, ev); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	client := &Client{logger: log.Discard()}
	ev, _ := NewUserRegistered(UserRegistered{UserID: 3, Email: "ana@example.com", VerificationToken: "tok"})
	body, _ := ev.ToJSON()

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got UserRegistered
		client.handleDelivery(context.Background(), body, ack, func(_ context.Context, e Event) error {
			var err error
			got, err = e.UserRegistered()
			return err
		})
		if !ack.acked || got.Email != "ana@example.com" {
			t.Errorf("expected ack and decoded payload, got %+v %+v", ack, got)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		client.handleDelivery(context.Background(), body, ack, func(context.Context, Event) error {
			return errors.New("smtp down")
		})
		if !ack.nacked || !ack.requeued {
			t.Errorf("expected nack with requeue, got %+v", ack)
		}
	})

	t.Run("drop on permanent handler error", func(t *testing.T) {
		ack := &fakeAck{}
		client.handleDelivery(context.Background(), body, ack, func(context.Context, Event) error {
			return Permanent(errors.New("address rejected"))
		})
		if !ack.nacked || ack.requeued {
			t.Errorf("expected nack without requeue, got %+v", ack)
		}
	})

	t.Run("drop malformed payload of a known type", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		client.handleDelivery(context.Background(), []byte(`{"type":"user.registered","payload":"not-an-object"}`), ack, func(context.Context, Event) error {
			called = true
			return nil
		})
		if called || !ack.nacked || ack.requeued {
			t.Errorf("expected nack without requeue, got %+v", ack)
		}
	})

	t.Run("drop malformed", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		client.handleDelivery(context.Background(), []byte(`{"type":"nope"}`), ack, func(context.Context, Event) error {
			called = true
			return nil
		})
		if called || !ack.nacked || ack.requeued {
			t.Errorf("expected nack without requeue, got %+v", ack)
		}
	})
}

func TestEventFromJSON(t *testing.T) {
	ev, err := NewHoldingChanged(HoldingChanged{UserID: 4, HoldingID: 9, Symbol: "AAPL", Action: ActionDeleted})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
	body, _ := ev.ToJSON()

	parsed, err := EventFromJSON(body)
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}
	hc, err := parsed.HoldingChanged()
	if err != nil || hc.HoldingID != 9 || hc.Action != ActionDeleted {
		t.Errorf("unexpected payload %+v (%v)", hc, err)
	}
	if _, err := parsed.UserRegistered(); err == nil {
		t.Error("decoding the wrong payload type should fail")
	}

	if _, err := EventFromJSON([]byte(`{"type":"user.registered"}`)); err == nil || !strings.Contains(err.Error(), "empty payload") {
		t.Errorf("expected empty payload error, got %v", err)
	}
	if _, err := EventFromJSON([]byte(`{"type":"holding.changed","payload":{"userId":"seven"}}`)); err == nil || !strings.Contains(err.Error(), "malformed payload") {
		t.Errorf("expected malformed payload error, got %v", err)
	}
	if _, err := EventFromJSON([]byte(`{"type":"x","payload":{}}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}
