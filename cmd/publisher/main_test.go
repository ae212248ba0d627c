package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeOutboxService struct {
	batches []int
	err     error
	calls   int
}

func (f *fakeOutboxService) ProcessUnprocessed(_ context.Context, _ int) (int, error) {
	f.calls++

	if f.err != nil {
		return 0, f.err
	}

	if len(f.batches) == 0 {
		return 0, nil
	}

	fetched := f.batches[0]
	f.batches = f.batches[1:]

	return fetched, nil
}

func TestDrainOutboxKeepsGoingWhileBatchesAreFull(t *testing.T) {
	svc := &fakeOutboxService{batches: []int{20, 20, 7}}

	drainOutbox(context.Background(), svc, 20)

	assert.Equal(t, 3, svc.calls)
}

func TestDrainOutboxStopsAfterEmptyFetch(t *testing.T) {
	svc := &fakeOutboxService{batches: []int{0}}

	drainOutbox(context.Background(), svc, 20)

	assert.Equal(t, 1, svc.calls)
}

func TestDrainOutboxStopsOnError(t *testing.T) {
	svc := &fakeOutboxService{err: assert.AnError}

	drainOutbox(context.Background(), svc, 20)

	assert.Equal(t, 1, svc.calls)
}

func TestDrainOutboxStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &fakeOutboxService{batches: []int{20, 20}}

	drainOutbox(ctx, svc, 20)

	assert.Equal(t, 0, svc.calls)
}
