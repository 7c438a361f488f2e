// Package db owns the Postgres connection lifecycle.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

// Opener opens a gorm handle; swapped out in tests.
type Opener func(dsn string) (*gorm.DB, error)

// Connector dials the database with bounded exponential backoff.
type Connector struct {
	DSN            string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *slog.Logger

	open  Opener
	ping  func(ctx context.Context, gdb *gorm.DB) error
	close func(gdb *gorm.DB) error
	sleep func(ctx context.Context, d time.Duration) error
}

func NewConnector(dsn string, maxAttempts int, initial, max time.Duration, log *slog.Logger) *Connector {
	if log == nil {
		log = slog.Default()
	}
	return &Connector{
		DSN:            dsn,
		MaxAttempts:    maxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     max,
		Logger:         log,
		open:           openPostgres,
		ping:           ping,
		close:          Close,
		sleep:          sleepCtx,
	}
}

func openPostgres(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return gdb, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait before retry number attempt (1-based), doubling up to MaxBackoff.
func (c *Connector) Backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.MaxBackoff > 0 && d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// Connect keeps trying until the database answers a ping, attempts run out or ctx ends.
func (c *Connector) Connect(ctx context.Context) (*gorm.DB, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		gdb, err := c.open(c.DSN)
		if err == nil {
			if err = c.ping(ctx, gdb); err == nil {
				c.Logger.Info("database connected", "attempt", attempt)
				return gdb, nil
			}
			// release the unusable pool before retrying
			if cerr := c.close(gdb); cerr != nil {
				c.Logger.Debug("closing failed pool", "error", cerr)
			}
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		wait := c.Backoff(attempt)
		c.Logger.Warn("database connection failed, retrying",
			"attempt", attempt, "max_attempts", attempts, "retry_in", wait.String(), "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
	}
	return nil, fmt.Errorf("db connect: giving up after %d attempts: %w", attempts, lastErr)
}

func ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(pctx)
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.User{}, &models.Freelancer{}, &models.Lead{}); err != nil {
		return err
	}
	return gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_freelancers_search ON freelancers USING GIN (` + models.FreelancerSearchDocument + `)`).Error
}
