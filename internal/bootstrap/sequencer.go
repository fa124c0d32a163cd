// Package bootstrap brings the database up before the HTTP server starts.
//
// The sequence is ResolvingSecret -> Connecting -> Ready. Resolving the secret
// is attempted once. Connecting is retried with a fixed delay for a bounded
// number of attempts, which covers a database container that starts slower
// than the service. Any failure ends in Failed and the caller is expected to
// exit.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"employee-directory/internal/config"
	"employee-directory/internal/database"
	"employee-directory/internal/logger"
	"employee-directory/internal/metrics"
	"employee-directory/internal/secrets"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

type State int

const (
	ResolvingSecret State = iota
	Connecting
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case ResolvingSecret:
		return "resolving_secret"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrSecretUnavailable   = errors.New("bootstrap: database secret unavailable")
	ErrDatabaseUnavailable = errors.New("bootstrap: database unavailable")
)

type SecretResolver interface {
	Resolve(ctx context.Context, name string) (*secrets.Credentials, error)
}

// Connector opens a pool and proves it is usable.
type Connector func(ctx context.Context, driver, dsn string) (*gorm.DB, error)

// Migrator makes sure the schema exists.
type Migrator func(ctx context.Context, db *gorm.DB) error

type Sequencer struct {
	cfg      config.DatabaseConfig
	resolver SecretResolver
	connect  Connector
	migrate  Migrator
	log      logger.Logger

	state    State
	attempts int
}

type Option func(*Sequencer)

func WithConnector(c Connector) Option {
	return func(s *Sequencer) { s.connect = c }
}

func WithMigrator(m Migrator) Option {
	return func(s *Sequencer) { s.migrate = m }
}

// New builds a sequencer. resolver may be nil when cfg carries an explicit DSN.
func New(cfg config.DatabaseConfig, resolver SecretResolver, log logger.Logger, opts ...Option) *Sequencer {
	log = log.WithFields(map[string]interface{}{"component": "bootstrap"})
	s := &Sequencer{
		cfg:      cfg,
		resolver: resolver,
		log:      log,
		state:    ResolvingSecret,
		migrate:  database.Migrate,
	}
	s.connect = func(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
		return database.Open(ctx, driver, dsn, log)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sequencer) State() State { return s.state }

// Attempts is the number of connection attempts made so far.
func (s *Sequencer) Attempts() int { return s.attempts }

// Run blocks until the database is reachable and migrated, or until the
// sequence fails.
func (s *Sequencer) Run(ctx context.Context) (*gorm.DB, error) {
	s.transition(ResolvingSecret)
	dsn, err := s.resolveDSN(ctx)
	if err != nil {
		s.transition(Failed)
		s.log.Error("could not load database secret", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}

	s.transition(Connecting)
	db, err := s.connectWithRetry(ctx, dsn)
	if err != nil {
		s.transition(Failed)
		s.log.Error("giving up, database unreachable after retries", map[string]interface{}{
			"attempts": s.attempts,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	if err := s.migrate(ctx, db); err != nil {
		_ = database.Close(db)
		s.transition(Failed)
		s.log.Error("schema check failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	s.transition(Ready)
	return db, nil
}

func (s *Sequencer) resolveDSN(ctx context.Context) (string, error) {
	if s.cfg.DSN != "" {
		s.log.Info("using explicit DATABASE_DSN, secret store skipped", nil)
		return s.cfg.DSN, nil
	}
	if s.resolver == nil {
		return "", errors.New("no secret resolver configured")
	}

	creds, err := s.resolver.Resolve(ctx, s.cfg.SecretName)
	if err != nil {
		return "", err
	}
	return database.BuildDSN(s.cfg, database.Credentials{
		Username: creds.Username,
		Password: creds.Password,
	}), nil
}

func (s *Sequencer) connectWithRetry(ctx context.Context, dsn string) (*gorm.DB, error) {
	maxAttempts := s.cfg.ConnRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := s.cfg.ConnDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(delay))

	return retry.DoValue(ctx, backoff, func(ctx context.Context) (*gorm.DB, error) {
		s.attempts++
		db, err := s.connect(ctx, s.cfg.Driver, dsn)
		metrics.RecordDBConnectAttempt(err)
		if err != nil {
			s.log.Warn("database not ready", map[string]interface{}{
				"attempt":     s.attempts,
				"max":         maxAttempts,
				"retry_in_ms": delay.Milliseconds(),
				"error":       err.Error(),
			})
			return nil, retry.RetryableError(err)
		}
		return db, nil
	})
}

func (s *Sequencer) transition(to State) {
	from := s.state
	s.state = to
	s.log.Info("bootstrap state", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
}
