package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/metrics"
	"github.com/kendall-kelly/install-intake-api/storage"
)

// Lifecycle states
const (
	StateUninitialized    = "uninitialized"
	StateSelectingBackend = "selecting-backend"
	StateInitializing     = "initializing"
	StateReady            = "ready"
	StateFallbackReady    = "fallback-ready"
	StateFailed           = "failed"
	StateClosed           = "closed"
)

// Lifecycle events
const (
	EventSelect   = "select"
	EventInit     = "initialize"
	EventSucceed  = "succeed"
	EventFallback = "fallback"
	EventFail     = "fail"
	EventClose    = "close"
)

// Store modes reported by Mode
const (
	ModeDatabase = "database"
	ModeFallback = "fallback"
)

// ErrAlreadyInitialized is returned when Init runs a second time
var ErrAlreadyInitialized = errors.New("store lifecycle already initialized")

// LifecycleOptions overrides how backends are opened. Zero values use the
// real storage openers.
type LifecycleOptions struct {
	OpenPostgres func(ctx context.Context, opts storage.PostgresOptions) (storage.Adapter, error)
	OpenSQLite   func(ctx context.Context, path string) (storage.Adapter, error)
	OpenFallback func(path string) (*FileSubmissionStore, error)

	// DisableMetrics skips the instrumented wrapper
	DisableMetrics bool
}

// StoreLifecycle picks the storage backend from configuration, initializes
// it once and hands the resulting SubmissionStore to the HTTP layer. When the
// database cannot be brought up it substitutes the JSON fallback store and
// keeps serving.
type StoreLifecycle struct {
	cfg    *config.Config
	logger *zap.Logger
	opts   LifecycleOptions

	mu      sync.RWMutex
	machine *fsm.FSM
	adapter storage.Adapter
	store   SubmissionStore
	mode    string
	backend config.Backend
	initErr error
}

// NewStoreLifecycle creates a lifecycle in the uninitialized state
func NewStoreLifecycle(cfg *config.Config, logger *zap.Logger, opts LifecycleOptions) *StoreLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OpenPostgres == nil {
		opts.OpenPostgres = storage.OpenPostgres
	}
	if opts.OpenSQLite == nil {
		opts.OpenSQLite = storage.OpenSQLite
	}
	if opts.OpenFallback == nil {
		opts.OpenFallback = OpenFileSubmissionStore
	}

	l := &StoreLifecycle{
		cfg:    cfg,
		logger: logger.Named("store"),
		opts:   opts,
	}

	l.machine = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: EventSelect, Src: []string{StateUninitialized}, Dst: StateSelectingBackend},
			{Name: EventInit, Src: []string{StateSelectingBackend}, Dst: StateInitializing},
			{Name: EventSucceed, Src: []string{StateInitializing}, Dst: StateReady},
			{Name: EventFallback, Src: []string{StateInitializing}, Dst: StateFallbackReady},
			{Name: EventFail, Src: []string{StateInitializing}, Dst: StateFailed},
			{Name: EventClose, Src: []string{StateUninitialized, StateReady, StateFallbackReady, StateFailed}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				l.logger.Debug("Store lifecycle transition",
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)

	return l
}

// transition fires event. The transitions carry no work of their own, so a
// cancelled request context must not leave the machine half way.
func (l *StoreLifecycle) transition(event string) error {
	if err := l.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("store lifecycle %s: %w", event, err)
	}
	return nil
}

// Init selects and initializes the backend. Database failures are logged
// and recovered by switching to the fallback file; only a fallback failure
// is returned.
func (l *StoreLifecycle) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.machine.Current() != StateUninitialized {
		return ErrAlreadyInitialized
	}

	if err := l.transition(EventSelect); err != nil {
		return err
	}
	l.backend = l.cfg.Backend()
	l.logger.Info("Selected storage backend", zap.String("backend", string(l.backend)))

	if err := l.transition(EventInit); err != nil {
		return err
	}

	adapter, err := l.openDatabase(ctx)
	if err == nil {
		l.adapter = adapter
		l.expose(NewSubmissionRepository(adapter), ModeDatabase, string(l.backend))
		l.logger.Info("Database initialized", zap.String("backend", string(l.backend)))
		return l.transition(EventSucceed)
	}

	l.logger.Warn("Database initialization failed, using fallback file storage",
		zap.String("backend", string(l.backend)),
		zap.String("fallback_file", l.cfg.FallbackFile),
		zap.Error(err))

	fallback, ferr := l.opts.OpenFallback(l.cfg.FallbackFile)
	if ferr != nil {
		l.initErr = fmt.Errorf("fallback store unavailable after database failure (%v): %w", err, ferr)
		l.logger.Error("Fallback storage failed", zap.Error(ferr))
		if terr := l.transition(EventFail); terr != nil {
			return errors.Join(l.initErr, terr)
		}
		return l.initErr
	}

	l.expose(fallback, ModeFallback, ModeFallback)
	l.logger.Info("Fallback storage ready", zap.String("file", fallback.Path()))
	return l.transition(EventFallback)
}

// openDatabase connects the selected engine and ensures the schema. The
// adapter is closed again if the schema step fails.
func (l *StoreLifecycle) openDatabase(ctx context.Context) (storage.Adapter, error) {
	var (
		adapter storage.Adapter
		err     error
	)

	switch l.backend {
	case config.BackendPostgres:
		adapter, err = l.opts.OpenPostgres(ctx, storage.PostgresOptions{
			DSN:             l.cfg.PostgresDSN(),
			MaxOpenConns:    l.cfg.DBMaxOpenConns,
			MaxIdleConns:    l.cfg.DBMaxIdleConns,
			ConnMaxLifetime: l.cfg.DBConnMaxLifetime,
		})
		if err == nil {
			l.logger.Info("Connected to PostgreSQL", zap.String("url", l.cfg.MaskedDatabaseURL()))
		}
	default:
		adapter, err = l.opts.OpenSQLite(ctx, l.cfg.SQLitePath)
		if err == nil {
			l.logger.Info("Opened SQLite database", zap.String("path", l.cfg.SQLitePath))
		}
	}
	if err != nil {
		return nil, err
	}

	if err := storage.EnsureSchema(ctx, adapter); err != nil {
		if cerr := adapter.Close(); cerr != nil {
			l.logger.Warn("Failed to close adapter after schema error", zap.Error(cerr))
		}
		return nil, err
	}
	return adapter, nil
}

// expose must be called with mu held
func (l *StoreLifecycle) expose(store SubmissionStore, mode, backendLabel string) {
	if !l.opts.DisableMetrics {
		store = NewInstrumentedStore(store, backendLabel)
		metrics.SetStoreMode(mode)
	}
	l.store = store
	l.mode = mode
}

// Store returns the active store, or nil until Init has succeeded
func (l *StoreLifecycle) Store() SubmissionStore {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store
}

// Mode returns ModeDatabase, ModeFallback or "" before initialization
func (l *StoreLifecycle) Mode() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mode
}

// Backend returns the engine chosen from configuration
func (l *StoreLifecycle) Backend() config.Backend {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.backend
}

func (l *StoreLifecycle) State() string {
	return l.machine.Current()
}

// Ready reports whether requests can be served
func (l *StoreLifecycle) Ready() bool {
	state := l.machine.Current()
	return state == StateReady || state == StateFallbackReady
}

// Check backs the readiness endpoint. It pings the database in database mode.
func (l *StoreLifecycle) Check(ctx context.Context) error {
	l.mu.RLock()
	adapter := l.adapter
	l.mu.RUnlock()

	if !l.Ready() {
		return fmt.Errorf("submission store is %s", l.State())
	}
	if adapter != nil {
		return adapter.Ping(ctx)
	}
	return nil
}

// Close releases the database pool. The fallback store holds no open handle.
func (l *StoreLifecycle) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.machine.Current() == StateClosed {
		return nil
	}

	var err error
	if l.adapter != nil {
		err = l.adapter.Close()
		l.adapter = nil
	}
	l.store = nil

	if terr := l.transition(EventClose); terr != nil {
		return errors.Join(err, terr)
	}
	l.logger.Info("Submission store closed", zap.String("mode", l.mode))
	return err
}
