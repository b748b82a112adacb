package statuspoll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

type scriptedFetcher struct {
	statuses []models.OrderStatus
	errs     []error
	calls    int
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	i := f.calls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.statuses[i], err
}

func TestPollerStopsOnTerminalStatus(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []models.OrderStatus{
			models.OrderStatusPending,
			models.OrderStatusPending,
			models.OrderStatusPaid,
		},
	}
	p := NewPoller(fetcher, time.Millisecond)

	var updates []Update
	for u := range p.Start(context.Background(), "ord_1") {
		updates = append(updates, u)
	}

	if len(updates) != 3 {
		t.Fatalf("Expected 3 updates, got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Status != models.OrderStatusPaid {
		t.Errorf("Expected final status paid, got %s", last.Status)
	}
}

func TestPollerContinuesPastErrors(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []models.OrderStatus{"", models.OrderStatusCompleted},
		errs:     []error{errors.New("temporarily unreachable")},
	}
	p := NewPoller(fetcher, time.Millisecond)

	var updates []Update
	for u := range p.Start(context.Background(), "ord_1") {
		updates = append(updates, u)
	}

	if len(updates) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(updates))
	}
	if updates[0].Err == nil {
		t.Error("Expected first update to carry the fetch error")
	}
	if updates[1].Status != models.OrderStatusCompleted {
		t.Errorf("Expected completed, got %s", updates[1].Status)
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []models.OrderStatus{models.OrderStatusPending},
	}
	p := NewPoller(fetcher, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	updates := p.Start(ctx, "ord_1")

	<-updates
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("Expected channel to close after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Poller did not stop after context cancellation")
	}
}

func TestPollerStop(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []models.OrderStatus{models.OrderStatusPending},
	}
	p := NewPoller(fetcher, time.Hour)

	updates := p.Start(context.Background(), "ord_1")
	<-updates
	p.Stop()

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("Expected channel to close after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Poller did not stop after Stop")
	}

	// A second Stop must be a no-op, not a panic.
	p.Stop()
}
