package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// FailureClass ordnet einen fehlgeschlagenen Datenbank-Check ein.
type FailureClass int

const (
	FailureNone FailureClass = iota
	// Server nicht erreichbar (Verbindung abgelehnt, Timeout, DNS).
	FailureConnection
	// Server erreichbar, aber noch nicht betriebsbereit.
	FailureService
	// Wiederholen ist sinnlos, z.B. falsches Passwort.
	FailureFatal
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureConnection:
		return "connection"
	case FailureService:
		return "service"
	case FailureFatal:
		return "fatal"
	}
	return fmt.Sprintf("FailureClass(%d)", int(c))
}

// Probe prüft einmalig, ob die Datenbank Verbindungen annimmt.
type Probe interface {
	Check(ctx context.Context) error
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// PostgresProbe öffnet für jeden Check eine eigene pgx-Verbindung.
type PostgresProbe struct {
	DSN     string
	Timeout time.Duration
}

func (p *PostgresProbe) Check(ctx context.Context) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	return conn.Ping(ctx)
}

// Classify ordnet einen Probe-Fehler einer FailureClass zu. Serverfehler
// werden vor Verbindungsfehlern geprüft, da pgx sie in ConnectError verpackt.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 28xxx: invalid_authorization_specification / invalid_password
		if strings.HasPrefix(pgErr.Code, "28") {
			return FailureFatal
		}
		return FailureService
	}

	if errors.Is(err, context.Canceled) {
		return FailureFatal
	}

	return FailureConnection
}

// WaitGate blockiert, bis die Datenbank erreichbar ist.
type WaitGate struct {
	Probe       Probe
	Interval    time.Duration
	MaxAttempts int
	Logger      *zap.Logger
	// Sleep ist in Tests austauschbar.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewWaitGate(probe Probe, interval time.Duration, maxAttempts int, logger *zap.Logger) *WaitGate {
	if interval <= 0 {
		interval = time.Second
	}
	return &WaitGate{
		Probe:       probe,
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Logger:      logger,
		Sleep:       sleepContext,
	}
}

// Wait prüft die Datenbank, bis ein Check erfolgreich ist, und gibt die
// Anzahl der durchgeführten Checks zurück.
func (g *WaitGate) Wait(ctx context.Context) (int, error) {
	sleep := g.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	g.Logger.Info("Waiting for database...")
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := g.Probe.Check(ctx)
		class := Classify(err)
		if class == FailureNone {
			g.Logger.Info("Database available!", zap.Int("attempts", attempt))
			return attempt, nil
		}

		log := g.Logger.With(
			zap.Int("attempt", attempt),
			zap.Stringer("failure", class),
			zap.Error(err),
		)
		if class == FailureFatal {
			log.Error("Database check failed, giving up")
			return attempt, fmt.Errorf("wait for database: %w", err)
		}

		if class == FailureConnection {
			log.Warn("Database unavailable, waiting...", zap.Duration("interval", g.Interval))
		} else {
			log.Warn("Database not ready yet, waiting...", zap.Duration("interval", g.Interval))
		}

		if g.MaxAttempts > 0 && attempt >= g.MaxAttempts {
			return attempt, fmt.Errorf("%w after %d attempts: %v", ErrDatabaseUnavailable, attempt, err)
		}
		if err := sleep(ctx, g.Interval); err != nil {
			return attempt, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
