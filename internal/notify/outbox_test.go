package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_booking/internal/metrics"
	"lab_booking/internal/models"
)

type fakeSink struct {
	name     string
	mu       sync.Mutex
	got      []Intent
	failures int
	calls    int
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Deliver(ctx context.Context, in Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.got = append(s.got, in)
	return nil
}

func (s *fakeSink) delivered() []Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Intent(nil), s.got...)
}

type blockingSink struct{}

func (blockingSink) Name() string { return "blocking" }

func (blockingSink) Deliver(ctx context.Context, _ Intent) error {
	<-ctx.Done()
	return ctx.Err()
}

func testSlot() models.Slot {
	s := models.Slot{LabID: 3, Title: "spectrometer", Capacity: 1}
	s.ID = 11
	return s
}

func runOutbox(t *testing.T, o *Outbox) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestOutbox_DeliversToEverySink(t *testing.T) {
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	o := NewOutbox(8, []Sink{a, b})
	stop := runOutbox(t, o)

	o.Emit(NewIntent(KindQueued, 5, testSlot()).WithPosition(2))

	require.Eventually(t, func() bool { return len(a.delivered()) == 1 && len(b.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	stop()

	got := a.delivered()[0]
	assert.Equal(t, KindQueued, got.Kind)
	assert.Equal(t, uint(11), got.Slot.SlotID)
	require.NotNil(t, got.Position)
	assert.Equal(t, 2, *got.Position)
	assert.NotEmpty(t, got.ID)
}

func TestOutbox_RetriesFailedDelivery(t *testing.T) {
	flaky := &fakeSink{name: "flaky", failures: 2}
	o := NewOutbox(8, []Sink{flaky}, WithRetries(3), WithBackoff(time.Millisecond))
	stop := runOutbox(t, o)

	o.Emit(NewIntent(KindPromoted, 1, testSlot()))

	require.Eventually(t, func() bool { return len(flaky.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	stop()
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues("flaky", "delivered")))
}

func TestOutbox_SlowSinkDoesNotStarveOthers(t *testing.T) {
	fast := &fakeSink{name: "fast"}
	o := NewOutbox(8, []Sink{blockingSink{}, fast}, WithTimeout(10*time.Millisecond), WithRetries(0))
	stop := runOutbox(t, o)

	o.Emit(NewIntent(KindCancelled, 1, testSlot()))

	require.Eventually(t, func() bool { return len(fast.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	stop()
}

func TestOutbox_EmitNeverBlocks(t *testing.T) {
	dropped := metrics.NotificationsTotal.WithLabelValues("outbox", "dropped")
	before := testutil.ToFloat64(dropped)
	o := NewOutbox(1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			o.Emit(NewIntent(KindGranted, uint(i), testSlot()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full outbox")
	}
	assert.Len(t, o.intents, 1)
	assert.Equal(t, float64(99), testutil.ToFloat64(dropped)-before)
}

func TestOutbox_DrainsOnShutdown(t *testing.T) {
	sink := &fakeSink{name: "s"}
	o := NewOutbox(8, []Sink{sink})
	o.Emit(NewIntent(KindWithdrawn, 1, testSlot()))
	o.Emit(NewIntent(KindWithdrawn, 2, testSlot()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)

	assert.Len(t, sink.delivered(), 2)
}

// ctxSink refuses delivery on a context that is already done.
type ctxSink struct{ fakeSink }

func (s *ctxSink) Deliver(ctx context.Context, in Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeSink.Deliver(ctx, in)
}

func TestOutbox_QueuedIntentSurvivesCancelledRun(t *testing.T) {
	for i := 0; i < 50; i++ {
		sink := &ctxSink{fakeSink{name: "ctx"}}
		o := NewOutbox(8, []Sink{sink})
		o.Emit(NewIntent(KindGranted, uint(i), testSlot()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o.Run(ctx)

		require.Len(t, sink.delivered(), 1, "run %d", i)
	}
}

func TestOutbox_EmitAfterRunIsDropped(t *testing.T) {
	dropped := metrics.NotificationsTotal.WithLabelValues("outbox", "dropped")
	before := testutil.ToFloat64(dropped)
	sink := &fakeSink{name: "late"}
	o := NewOutbox(8, []Sink{sink})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)

	o.Emit(NewIntent(KindCancelled, 1, testSlot()))
	assert.Empty(t, o.intents)
	assert.Empty(t, sink.delivered())
	assert.Equal(t, float64(1), testutil.ToFloat64(dropped)-before)
}
