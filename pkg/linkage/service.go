package linkage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PassLockKey is the lock key every clean pass runs under.
const PassLockKey = "clean-pass"

// PassLock serializes clean passes across service instances.
type PassLock interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Service runs clean passes against one store, optionally under a PassLock.
type Service struct {
	orchestrator *Orchestrator
	store        Store
	lock         PassLock
	lockTTL      time.Duration
	heldErr      error
}

type ServiceOption func(*Service)

// WithPassLock runs every pass under lock. held is the error lock returns when
// another holder has the key; it is reported as ErrPassInProgress.
func WithPassLock(lock PassLock, ttl time.Duration, held error) ServiceOption {
	return func(s *Service) {
		s.lock = lock
		s.lockTTL = ttl
		s.heldErr = held
	}
}

func NewService(orchestrator *Orchestrator, store Store, opts ...ServiceOption) *Service {
	s := &Service{orchestrator: orchestrator, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one pass. A nil result means the pass never started: the lock
// was held or could not be taken.
func (s *Service) Run(ctx context.Context, mode Mode) (*PassResult, error) {
	if s.lock == nil {
		return s.orchestrator.RunCleanPass(ctx, s.store, mode)
	}

	var (
		res    *PassResult
		runErr error
	)
	err := s.lock.WithLock(ctx, PassLockKey, s.lockTTL, func(ctx context.Context) error {
		res, runErr = s.orchestrator.RunCleanPass(ctx, s.store, mode)
		return runErr
	})
	if res != nil {
		return res, runErr
	}
	if s.heldErr != nil && errors.Is(err, s.heldErr) {
		return nil, fmt.Errorf("%w: %v", ErrPassInProgress, err)
	}
	return nil, err
}
