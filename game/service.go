package game

import (
	"context"
	"errors"
	"fmt"

	"dreambot/domain"
)

// Service is the entry point for everything a participant can do once the
// transport has figured out who they are.
type Service struct {
	*core
	Lobbies *LobbyManager
	Rounds  *RoundEngine
}

func NewService(d Deps) *Service {
	c := newCore(d)
	c.log = c.log.With().Str("component", "game").Logger()
	return &Service{
		core:    c,
		Lobbies: &LobbyManager{core: c},
		Rounds:  &RoundEngine{core: c},
	}
}

// CurrentSession returns the code of the session userId takes part in, or
// ErrNotInSession.
func (s *Service) CurrentSession(ctx context.Context, userId int64) (string, error) {
	return s.sessionOf(ctx, userId)
}

// Handle authorizes and applies an in-session action. Rejected actions return
// ErrUnauthorized and leave the session untouched.
func (s *Service) Handle(ctx context.Context, actor int64, action Action) error {
	code, err := s.players.PlayerSession(ctx, actor)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotInSession
	}
	if err != nil {
		return err
	}

	var deck []domain.Card
	if action.Kind == ActionStartGame {
		if deck, err = s.deckFor(ctx, code, actor); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return err
		}
	}

	err = s.apply(ctx, code, actor, action, deck)
	if errors.Is(err, errDeckMissing) {
		// The actor became host after the first look.
		if deck, err = s.drawDeck(ctx); err != nil {
			return err
		}
		err = s.apply(ctx, code, actor, action, deck)
	}

	if errors.Is(err, ErrSessionNotFound) {
		if err := s.players.ClearPlayerSession(ctx, actor); err != nil {
			s.log.Warn().Err(err).Int64("user", actor).Msg("failed to clear stale session pointer")
		}
		return ErrNotInSession
	}
	return err
}

func (s *Service) apply(ctx context.Context, code string, actor int64, action Action, deck []domain.Card) error {
	return s.mutate(ctx, code, func(sess *Session, out *Outbox) (Outcome, error) {
		route, err := Authorize(sess, actor, action.Kind)
		if err != nil {
			return OutcomeRelease, err
		}
		if route == RouteConfirmation {
			return s.Rounds.confirm(sess, out, actor, action)
		}
		return s.dispatch(sess, out, actor, action, deck)
	})
}

// deckFor draws a word deck only when actor is about to start its lobby.
// The look is read-only so the Postgres query runs outside the lock.
func (s *Service) deckFor(ctx context.Context, code string, actor int64) ([]domain.Card, error) {
	starts := false
	err := s.repo.Mutate(ctx, code, func(sess *Session) (Outcome, error) {
		p := sess.Player(actor)
		starts = p != nil && p.Pending == ConfirmNone && sess.isHost(actor) && len(sess.Players) >= PlayersMin
		return OutcomeRelease, nil
	})
	if err != nil || !starts {
		return nil, err
	}
	return s.drawDeck(ctx)
}

func (c *core) drawDeck(ctx context.Context) ([]domain.Card, error) {
	deck, err := c.assets.DrawWordDeck(ctx)
	if err != nil {
		return nil, fmt.Errorf("draw word deck: %w", err)
	}
	if deck == nil {
		deck = []domain.Card{}
	}
	return deck, nil
}

func (s *Service) dispatch(sess *Session, out *Outbox, actor int64, action Action, deck []domain.Card) (Outcome, error) {
	if sess.Status() == StatusInLobby {
		switch action.Kind {
		case ActionStartGame:
			return s.Lobbies.start(sess, out, actor, deck)
		case ActionLeave:
			return s.Lobbies.leave(sess, out, actor)
		case ActionDestroyGame:
			return s.Rounds.ask(sess, out, sess.Player(actor), ConfirmDestroy)
		}
		return OutcomeRelease, ErrUnauthorized
	}

	switch action.Kind {
	case ActionLeave:
		return s.Rounds.ask(sess, out, sess.Player(actor), ConfirmDropOut)
	case ActionDestroyGame:
		return s.Rounds.ask(sess, out, sess.Player(actor), ConfirmDestroy)
	case ActionPenalty:
		return s.Rounds.ask(sess, out, sess.Player(actor), ConfirmPenalty)
	case ActionStartRound:
		return s.Rounds.startRound(sess, out)
	case ActionMarkCorrect:
		return s.Rounds.markAnswer(sess, out, true), nil
	case ActionMarkIncorrect:
		return s.Rounds.markAnswer(sess, out, false), nil
	case ActionEndRound:
		return s.Rounds.endRound(sess, out)
	case ActionRetellCorrect:
		return s.Rounds.confirmRetelling(sess, out, true)
	case ActionRetellIncorrect:
		return s.Rounds.confirmRetelling(sess, out, false)
	case ActionReturnToMenu:
		return s.Rounds.returnToMenu(sess, out, actor)
	}
	return OutcomeRelease, ErrUnauthorized
}
