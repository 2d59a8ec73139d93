package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_NextTick(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	s := NewScheduler(clockwork.NewRealClock(), loc, 11, 0, nil, testLogger())

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before today's tick",
			now:  time.Date(2024, 1, 2, 9, 30, 0, 0, loc),
			want: time.Date(2024, 1, 2, 11, 0, 0, 0, loc),
		},
		{
			name: "after today's tick",
			now:  time.Date(2024, 1, 2, 11, 0, 1, 0, loc),
			want: time.Date(2024, 1, 3, 11, 0, 0, 0, loc),
		},
		{
			name: "exactly at the tick rolls to tomorrow",
			now:  time.Date(2024, 1, 2, 11, 0, 0, 0, loc),
			want: time.Date(2024, 1, 3, 11, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, s.NextTick(tt.now).Equal(tt.want),
				"NextTick(%v) = %v, want %v", tt.now, s.NextTick(tt.now), tt.want)
		})
	}
}

func TestScheduler_FiresAtConfiguredTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	start := time.Date(2024, 1, 2, 10, 0, 0, 0, loc)
	clock := clockwork.NewFakeClockAt(start)

	var mu sync.Mutex
	var fired []time.Time
	run := func(_ context.Context, date time.Time) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, date)
	}

	s := NewScheduler(clock, loc, 11, 0, run, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Wait for the scheduler to arm its timer, then cross the tick.
	clock.BlockUntil(1)
	clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "2024-01-02", fired[0].In(loc).Format("2006-01-02"))
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestScheduler_StopsWithoutFiring(t *testing.T) {
	loc := time.UTC
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 10, 0, 0, 0, loc))

	fired := false
	s := NewScheduler(clock, loc, 11, 0, func(context.Context, time.Time) { fired = true }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, fired)
}
