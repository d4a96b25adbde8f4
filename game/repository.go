package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dreambot/domain"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Outcome tells Mutate how to end a critical section.
type Outcome int

const (
	OutcomeRelease Outcome = iota
	OutcomeWrite
	OutcomeDelete
)

var errLockBusy = errors.New("lock-busy")

// Repository maps session codes onto the store and owns the lock protocol:
// every AcquireAndRead must be followed by exactly one Write, Release or
// Delete. Mutate is the only way the rest of the package touches sessions.
type Repository struct {
	store  SessionStore
	params Params
	log    zerolog.Logger
}

func NewRepository(store SessionStore, params Params, log zerolog.Logger) *Repository {
	return &Repository{
		store:  store,
		params: params.withDefaults(),
		log:    log.With().Str("component", "session-repository").Logger(),
	}
}

func (r *Repository) lock(ctx context.Context, code string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := r.store.Lock(ctx, code, r.params.LockTTL)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, errLockBusy
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(r.params.LockPoll)),
		backoff.WithMaxElapsedTime(r.params.LockWait),
	)
	if errors.Is(err, errLockBusy) {
		return fmt.Errorf("%w: session %s", ErrLockTimeout, code)
	}
	return err
}

func (r *Repository) AcquireAndRead(ctx context.Context, code string) (*Session, error) {
	if err := r.lock(ctx, code); err != nil {
		return nil, err
	}

	blob, err := r.store.Load(ctx, code)
	if err == nil {
		s := &Session{}
		if err = json.Unmarshal(blob, s); err == nil {
			return s, nil
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		err = ErrSessionNotFound
	}

	if unlockErr := r.store.Unlock(context.WithoutCancel(ctx), code); unlockErr != nil {
		r.log.Error().Err(unlockErr).Str("code", code).Msg("failed to release lock after failed read")
	}
	return nil, err
}

func (r *Repository) Write(ctx context.Context, s *Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, s.Code, blob); err != nil {
		return err
	}
	return r.store.Unlock(ctx, s.Code)
}

func (r *Repository) Release(ctx context.Context, code string) error {
	return r.store.Unlock(ctx, code)
}

func (r *Repository) Delete(ctx context.Context, code string) error {
	return r.store.Remove(ctx, code)
}

// Create stores a brand new session. It reports false when the code is taken.
func (r *Repository) Create(ctx context.Context, s *Session) (bool, error) {
	blob, err := json.Marshal(s)
	if err != nil {
		return false, err
	}
	return r.store.Insert(ctx, s.Code, blob)
}

// Mutate runs fn inside the session's critical section and ends it according
// to the returned Outcome. An error or panic from fn releases the lock without
// writing.
func (r *Repository) Mutate(ctx context.Context, code string, fn func(s *Session) (Outcome, error)) error {
	s, err := r.AcquireAndRead(ctx, code)
	if err != nil {
		return err
	}

	ended := false
	defer func() {
		if ended {
			return
		}
		if err := r.Release(context.WithoutCancel(ctx), code); err != nil {
			r.log.Error().Err(err).Str("code", code).Msg("failed to release session lock")
		}
	}()

	outcome, err := fn(s)
	if err != nil {
		return err
	}

	switch outcome {
	case OutcomeWrite:
		err = r.Write(ctx, s)
	case OutcomeDelete:
		err = r.Delete(ctx, code)
	default:
		err = r.Release(ctx, code)
	}
	ended = err == nil
	return err
}
