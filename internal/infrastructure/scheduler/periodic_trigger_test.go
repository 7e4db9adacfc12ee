package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastConfig(name string) PeriodicTriggerConfig {
	return PeriodicTriggerConfig{
		Name:            name,
		InitialDelayMax: 0,
		Interval:        5 * time.Millisecond,
	}
}

func TestPeriodicTriggerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  PeriodicTriggerConfig
		wantErr bool
	}{
		{"valid", PeriodicTriggerConfig{Name: "x", Interval: time.Second, InitialDelayMax: time.Second}, false},
		{"zero delay", PeriodicTriggerConfig{Name: "x", Interval: time.Second}, false},
		{"missing name", PeriodicTriggerConfig{Interval: time.Second}, true},
		{"zero interval", PeriodicTriggerConfig{Name: "x"}, true},
		{"negative delay", PeriodicTriggerConfig{Name: "x", Interval: time.Second, InitialDelayMax: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPeriodicTrigger_NilTick(t *testing.T) {
	_, err := NewPeriodicTrigger(fastConfig("x"), nil, nil)
	assert.ErrorIs(t, err, ErrNilTick)
}

func TestRandomDelay(t *testing.T) {
	assert.Zero(t, randomDelay(0))
	for i := 0; i < 100; i++ {
		d := randomDelay(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestPeriodicTrigger_TicksUntilStopped(t *testing.T) {
	var count atomic.Int64
	trigger, err := NewPeriodicTrigger(fastConfig("counter"), func(context.Context) error {
		count.Add(1)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	assert.True(t, trigger.IsRunning())
	require.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, trigger.Stop(context.Background()))
	assert.False(t, trigger.IsRunning())

	stopped := count.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, count.Load(), "no ticks after Stop returns")
	assert.Equal(t, stopped, trigger.Stats().Ticks)
}

func TestPeriodicTrigger_InitialDelay(t *testing.T) {
	var count atomic.Int64
	trigger, err := NewPeriodicTrigger(PeriodicTriggerConfig{
		Name:            "delayed",
		InitialDelayMax: time.Hour,
		Interval:        time.Millisecond,
	}, func(context.Context) error {
		count.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)
	trigger.delay = func(max time.Duration) time.Duration {
		assert.Equal(t, time.Hour, max)
		return 50 * time.Millisecond
	}

	require.NoError(t, trigger.Start(context.Background()))
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, count.Load(), "first tick waits for the initial delay")
	require.Eventually(t, func() bool { return count.Load() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestPeriodicTrigger_StopBeforeFirstTick(t *testing.T) {
	var count atomic.Int64
	trigger, err := NewPeriodicTrigger(PeriodicTriggerConfig{
		Name:     "never",
		Interval: time.Hour,
	}, func(context.Context) error {
		count.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)
	trigger.delay = func(time.Duration) time.Duration { return time.Hour }

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
	assert.Zero(t, count.Load())
}

func TestPeriodicTrigger_ErrorsAndPanicsDoNotStopTheLoop(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	var count atomic.Int64
	trigger, err := NewPeriodicTrigger(fastConfig("flaky"), func(context.Context) error {
		switch count.Add(1) {
		case 1:
			return errors.New("boom")
		case 2:
			panic("kaboom")
		}
		return nil
	}, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return count.Load() >= 4 }, time.Second, time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	assert.Equal(t, int64(2), trigger.Stats().Failures)
	entries := logs.FilterMessage("tick failed").All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].ContextMap()["error"], "tick panicked")
}

func TestPeriodicTrigger_StartAndStopAreIdempotent(t *testing.T) {
	trigger, err := NewPeriodicTrigger(fastConfig("idem"), func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestPeriodicTrigger_StopHonoursContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	trigger, err := NewPeriodicTrigger(fastConfig("stuck"), func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, trigger.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

func TestPeriodicTrigger_RestartWaitsForThePreviousLoop(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var inFlight, maxInFlight atomic.Int64
	trigger, err := NewPeriodicTrigger(fastConfig("restart"), func(context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	<-started

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, trigger.Stop(expired), context.Canceled)
	assert.False(t, trigger.IsRunning())

	assert.ErrorIs(t, trigger.Start(context.Background()), ErrStillStopping)
	assert.False(t, trigger.IsRunning())

	close(release)
	require.NoError(t, trigger.Stop(context.Background()), "a second Stop waits for the old loop")
	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return trigger.Stats().Ticks >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	assert.Equal(t, int64(1), maxInFlight.Load(), "ticks never overlap")
}
