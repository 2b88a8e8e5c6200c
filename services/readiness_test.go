package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var (
	errRefused  = &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	errStarting = &pgconn.PgError{Severity: "FATAL", Code: "57P03", Message: "the database system is starting up"}
	errAuth     = &pgconn.PgError{Severity: "FATAL", Code: "28P01", Message: "password authentication failed"}
)

// scriptedProbe liefert die Fehler der Reihe nach und danach Erfolg.
type scriptedProbe struct {
	results []error
	calls   int
}

func (p *scriptedProbe) Check(context.Context) error {
	p.calls++
	if p.calls <= len(p.results) {
		return p.results[p.calls-1]
	}
	return nil
}

type recordingSleep struct {
	calls []time.Duration
}

func (s *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func newTestGate(t *testing.T, probe Probe, maxAttempts int) (*WaitGate, *recordingSleep) {
	gate := NewWaitGate(probe, time.Second, maxAttempts, zaptest.NewLogger(t))
	rec := &recordingSleep{}
	gate.Sleep = rec.sleep
	return gate, rec
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"nil", nil, FailureNone},
		{"refused", errRefused, FailureConnection},
		{"wrapped refused", fmt.Errorf("failed to connect: %w", errRefused), FailureConnection},
		{"timeout", context.DeadlineExceeded, FailureConnection},
		{"starting up", errStarting, FailureService},
		{"wrapped starting up", fmt.Errorf("server error: %w", errStarting), FailureService},
		{"unknown database", &pgconn.PgError{Code: "3D000"}, FailureService},
		{"too many connections", &pgconn.PgError{Code: "53300"}, FailureService},
		{"bad password", errAuth, FailureFatal},
		{"canceled", context.Canceled, FailureFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWaitGateRetriesConnectionAndServiceFailures(t *testing.T) {
	probe := &scriptedProbe{results: []error{errRefused, errRefused, errStarting, errStarting, errStarting}}
	gate, rec := newTestGate(t, probe, 0)

	attempts, err := gate.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, attempts)
	assert.Equal(t, 6, probe.calls)
	assert.Len(t, rec.calls, 5)
	for _, d := range rec.calls {
		assert.Equal(t, time.Second, d)
	}
}

func TestWaitGateReadyOnFirstProbe(t *testing.T) {
	probe := &scriptedProbe{}
	gate, rec := newTestGate(t, probe, 0)

	attempts, err := gate.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.calls)
}

func TestWaitGateStopsOnFatalFailure(t *testing.T) {
	probe := &scriptedProbe{results: []error{errRefused, errAuth, errRefused}}
	gate, rec := newTestGate(t, probe, 0)

	attempts, err := gate.Wait(context.Background())
	require.Error(t, err)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, 2, attempts)
	assert.Len(t, rec.calls, 1)
}

func TestWaitGateGivesUpAfterMaxAttempts(t *testing.T) {
	probe := &scriptedProbe{results: []error{errRefused, errRefused, errRefused, errRefused}}
	gate, rec := newTestGate(t, probe, 3)

	attempts, err := gate.Wait(context.Background())
	assert.ErrorIs(t, err, ErrDatabaseUnavailable)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, probe.calls)
	assert.Len(t, rec.calls, 2)
}

func TestWaitGateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	probe := &scriptedProbe{results: []error{errRefused, errRefused, errRefused}}
	gate := NewWaitGate(probe, time.Hour, 0, zaptest.NewLogger(t))
	gate.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	attempts, err := gate.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestSleepContextWaits(t *testing.T) {
	start := time.Now()
	require.NoError(t, sleepContext(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestWaitGateLogsEachFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	probe := &scriptedProbe{results: []error{errRefused, errRefused, errStarting, errStarting, errStarting}}
	gate := NewWaitGate(probe, time.Second, 0, zap.New(core))
	gate.Sleep = (&recordingSleep{}).sleep

	_, err := gate.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, probe.calls)

	failures := map[string]int{}
	for _, entry := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		failures[fmt.Sprint(entry.ContextMap()["failure"])]++
	}
	assert.Equal(t, map[string]int{"connection": 2, "service": 3}, failures)

	available := logs.FilterMessage("Database available!").All()
	require.Len(t, available, 1)
	assert.Equal(t, int64(6), available[0].ContextMap()["attempts"])
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}
