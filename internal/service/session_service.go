package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

// Session actions recorded in metrics.
const (
	SessionActionSelect = "select"
	SessionActionAll    = "all"
	SessionActionNone   = "none"
)

type selectionCatalog interface {
	KnownValues(field models.FilterField) ([]string, error)
	DefaultSelection() (models.FilterSelection, error)
}

// sessionLockStripes bounds the number of mutexes guarding session updates.
const sessionLockStripes = 64

// SessionStore persists session state. The redis and memory cache repositories satisfy it.
type SessionStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionService owns per-user filter selections. Each session is stored under its own
// key, so sessions never share mutable state.
type SessionService struct {
	store     SessionStore
	catalog   selectionCatalog
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time
	newID     func() string

	// locks serialise read-modify-write of one session within this process.
	locks [sessionLockStripes]sync.Mutex
}

// NewSessionService constructs the service.
func NewSessionService(store SessionStore, catalog selectionCatalog, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionService{
		store:     store,
		catalog:   catalog,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create starts a session with the configured default selection.
func (s *SessionService) Create(ctx context.Context) (*dto.SessionState, error) {
	selection, err := s.catalog.DefaultSelection()
	if err != nil {
		return nil, err
	}
	state := &dto.SessionState{ID: s.newID(), Selection: selection}
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Debug("filter session created", zap.String("session_id", state.ID))
	return state, nil
}

// Get returns the stored session.
func (s *SessionService) Get(ctx context.Context, id string) (*dto.SessionState, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrSessionNotFound
	}
	var state dto.SessionState
	if err := s.store.Get(ctx, sessionKey(id), &state); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &state, nil
}

// Select replaces the selected values of one field.
func (s *SessionService) Select(ctx context.Context, id string, field models.FilterField, req dto.UpdateFilterRequest) (*dto.SessionState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter values")
	}
	return s.mutate(ctx, id, field, SessionActionSelect, func() ([]string, error) {
		return req.Values, nil
	})
}

// SelectAll selects every value of field known to the dataset.
func (s *SessionService) SelectAll(ctx context.Context, id string, field models.FilterField) (*dto.SessionState, error) {
	return s.mutate(ctx, id, field, SessionActionAll, func() ([]string, error) {
		return s.catalog.KnownValues(field)
	})
}

// Clear deselects every value of field.
func (s *SessionService) Clear(ctx context.Context, id string, field models.FilterField) (*dto.SessionState, error) {
	return s.mutate(ctx, id, field, SessionActionNone, func() ([]string, error) {
		return nil, nil
	})
}

// Delete ends a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *SessionService) mutate(ctx context.Context, id string, field models.FilterField, action string, values func() ([]string, error)) (*dto.SessionState, error) {
	if !field.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown filter field %q", field))
	}
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := values()
	if err != nil {
		return nil, err
	}
	state.Selection = state.Selection.With(field, next)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.metrics.RecordSessionAction(action, string(field))
	return state, nil
}

func (s *SessionService) save(ctx context.Context, state *dto.SessionState) error {
	state.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	if err := s.store.Set(ctx, sessionKey(state.ID), state, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", state.ID, err)
	}
	return nil
}

func (s *SessionService) lockFor(id string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(strings.TrimSpace(id))%sessionLockStripes]
}

func sessionKey(id string) string {
	return "ppdb:session:" + id
}
