package game

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// RoundEngine drives a started game: rounds, answers, scoring, penalties
// and the ways a game can end.
type RoundEngine struct {
	*core
}

func (e *RoundEngine) startRound(s *Session, out *Outbox) (Outcome, error) {
	g, _ := s.Game()
	if err := s.transition(StatusRoundActive); err != nil {
		return OutcomeRelease, err
	}

	code := s.Code
	job, err := e.scheduler.ScheduleOnce(e.params.RoundDuration, func(ctx context.Context, job uuid.UUID) {
		if err := e.RoundTimedOut(ctx, code, job); err != nil {
			e.log.Error().Err(err).Str("code", code).Msg("round timeout failed")
		}
	})
	if err != nil {
		return OutcomeRelease, err
	}
	out.OnAbort(func() {
		if err := e.scheduler.Cancel(job); err != nil {
			e.log.Warn().Err(err).Str("code", code).Msg("failed to cancel orphaned round timer")
		}
	})

	g.Round = RoundState{StartedAt: e.now(), Timer: job}
	g.LastAnswerAt = g.Round.StartedAt.Add(-e.params.AnswerCooldown)

	dreamer := g.DreamerId()
	for _, p := range s.Players {
		text := textRoundStarted
		if p.Id == dreamer {
			text += "\n" + textDreamerSleep
		}
		out.Text(p.ChatRef, text, menuFor(s, p.Id))
	}
	pushCard(s, out)

	e.log.Debug().Str("code", code).Int("round", g.RoundNumber).Msg("round started")
	return OutcomeWrite, nil
}

// pushCard shows the current card to everybody but the dreamer.
func pushCard(s *Session, out *Outbox) {
	g, _ := s.Game()
	card, ok := g.CurrentCard()
	if !ok {
		return
	}
	dreamer := g.DreamerId()
	for _, p := range s.Players {
		if p.Id != dreamer {
			out.Image(p.ChatRef, card.FileId, "")
		}
	}
}

// markAnswer records the supervisor's verdict on the dreamer's guess.
// Verdicts arriving within the cooldown of the previous one are dropped.
func (e *RoundEngine) markAnswer(s *Session, out *Outbox, correct bool) Outcome {
	g, _ := s.Game()
	now := e.now()
	if now.Sub(g.LastAnswerAt) < e.params.AnswerCooldown {
		return OutcomeRelease
	}

	card, hasCard := g.CurrentCard()
	if correct {
		g.Round.Correct++
		if hasCard {
			g.Round.CorrectWords = append(g.Round.CorrectWords, card.Word)
		}
	} else {
		g.Round.Incorrect++
	}
	g.CardCursor++
	g.LastAnswerAt = now

	pushCard(s, out)
	return OutcomeWrite
}

func (e *RoundEngine) cancelTimer(s *Session, out *Outbox) {
	g, _ := s.Game()
	if g.Round.Timer == uuid.Nil {
		return
	}
	job := g.Round.Timer
	g.Round.Timer = uuid.Nil
	out.After("cancel-round-timer", func(context.Context) error {
		return e.scheduler.Cancel(job)
	})
}

func (e *RoundEngine) endRound(s *Session, out *Outbox) (Outcome, error) {
	e.cancelTimer(s, out)
	return e.askRetelling(s, out)
}

func (e *RoundEngine) askRetelling(s *Session, out *Outbox) (Outcome, error) {
	g, _ := s.Game()
	if err := s.transition(StatusAwaitingRetelling); err != nil {
		return OutcomeRelease, err
	}
	g.Round.Timer = uuid.Nil

	supervisor := g.SupervisorId()
	for _, p := range s.Players {
		if p.Id == supervisor {
			if p.Pending == ConfirmPenalty {
				p.Pending = ConfirmNone
			}
			out.Text(p.ChatRef, textAskRetelling+"\n"+textSupervisorRetell, menuFor(s, p.Id))
			continue
		}
		out.Text(p.ChatRef, textAskRetelling, menuFor(s, p.Id))
	}
	return OutcomeWrite, nil
}

// RoundTimedOut is called by the scheduler when a round runs out of time.
// Timers that no longer belong to the running round are ignored.
func (e *RoundEngine) RoundTimedOut(ctx context.Context, code string, job uuid.UUID) error {
	err := e.mutate(ctx, code, func(s *Session, out *Outbox) (Outcome, error) {
		g, ok := s.Game()
		if !ok || s.Status() != StatusRoundActive || g.Round.Timer != job {
			return OutcomeRelease, nil
		}
		return e.askRetelling(s, out)
	})
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func (e *RoundEngine) confirmRetelling(s *Session, out *Outbox, retold bool) (Outcome, error) {
	g, _ := s.Game()
	g.Round.RetoldCorrectly = retold
	scoreRound(s)
	summary := roundSummaryText(g)

	if g.DreamerIndex >= len(g.DreamingOrder)-1 {
		return e.finish(s, out, summary)
	}

	g.DreamerIndex++
	g.SupervisorIndex = (g.SupervisorIndex + 1) % len(g.DreamingOrder)
	g.Round = RoundState{}
	g.RoundNumber++
	if err := s.transition(StatusAwaitingRoundStart); err != nil {
		return OutcomeRelease, err
	}
	if err := assignRoles(s, e.rand); err != nil {
		return OutcomeRelease, err
	}

	for _, p := range s.Players {
		out.Text(p.ChatRef, summary, nil)
	}
	announceRoles(s, out)
	return OutcomeWrite, nil
}

// finish ends the game normally: achievements are settled, results sent and
// the lifetime statistics persisted once the session is committed.
func (e *RoundEngine) finish(s *Session, out *Outbox, prefix string) (Outcome, error) {
	e.cancelTimer(s, out)
	if err := s.transition(StatusFinished); err != nil {
		return OutcomeRelease, err
	}
	for _, p := range s.Players {
		p.Pending = ConfirmNone
	}

	for _, outcome := range settleGame(s) {
		out.After("persist-statistics", func(ctx context.Context) error {
			if err := e.stats.IncrementUserStatistic(ctx, outcome.userRef, outcome.statistic); err != nil {
				return err
			}
			return e.stats.IncrementUserAchievements(ctx, outcome.userRef, outcome.achievements)
		})
	}

	text := resultsText(s)
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	broadcast(s, out, text)

	e.log.Info().Str("code", s.Code).Int("players", len(s.Players)).Msg("game finished")
	return OutcomeWrite, nil
}

// destroy ends the game early without touching anyone's statistics.
func (e *RoundEngine) destroy(s *Session, out *Outbox, prefix string) (Outcome, error) {
	e.cancelTimer(s, out)
	if err := s.transition(StatusFinished); err != nil {
		return OutcomeRelease, err
	}
	for _, p := range s.Players {
		p.Pending = ConfirmNone
	}
	s.Results = nil

	text := textGameDestroyed
	if prefix != "" {
		text = prefix + "\n" + text
	}
	broadcast(s, out, text)

	e.log.Info().Str("code", s.Code).Msg("game destroyed")
	return OutcomeWrite, nil
}

func (e *RoundEngine) ask(s *Session, out *Outbox, p *PlayerEntry, kind Confirmation) (Outcome, error) {
	p.Pending = kind
	switch kind {
	case ConfirmDropOut:
		out.Text(p.ChatRef, textConfirmDropOut, menuConfirm)
	case ConfirmDestroy:
		out.Text(p.ChatRef, textConfirmDestroy, menuConfirm)
	case ConfirmPenalty:
		out.Text(p.ChatRef, textChoosePenalty, penaltyMenu(s, p.Id))
	}
	return OutcomeWrite, nil
}

// confirm handles the answer to a pending question. Anything but an explicit
// yes, or a listed player for penalties, cancels the question.
func (e *RoundEngine) confirm(s *Session, out *Outbox, actor int64, action Action) (Outcome, error) {
	p := s.Player(actor)
	kind := p.Pending
	p.Pending = ConfirmNone

	cancelled := func() (Outcome, error) {
		out.Text(p.ChatRef, textCancelled, menuFor(s, actor))
		return OutcomeWrite, nil
	}

	switch kind {
	case ConfirmDropOut:
		if action.Kind != ActionYes {
			return cancelled()
		}
		return e.dropOut(s, out, actor)

	case ConfirmDestroy:
		switch {
		case action.Kind != ActionYes:
			return cancelled()
		case s.isHost(actor):
			return e.disband(s, out)
		case s.isSupervisor(actor):
			return e.destroy(s, out, "")
		}
		return cancelled()

	case ConfirmPenalty:
		status := s.Status()
		target := penaltyTarget(s, action.Text)
		if target == nil || target.Id == actor || !s.isSupervisor(actor) ||
			(status != StatusRoundActive && status != StatusAwaitingRoundStart) {
			return cancelled()
		}
		target.Statistic.Penalties++
		out.Text(target.ChatRef, penaltyText(target), nil)
		out.Text(p.ChatRef, penaltyText(target), menuFor(s, actor))
		return OutcomeWrite, nil
	}
	return OutcomeWrite, nil
}

// dropOut removes a player from a running game. The game goes on while
// enough players remain; otherwise it is destroyed.
func (e *RoundEngine) dropOut(s *Session, out *Outbox, actor int64) (Outcome, error) {
	g, _ := s.Game()
	status := s.Status()
	idx := slices.Index(g.DreamingOrder, actor)
	wasDreamer := idx == g.DreamerIndex

	left := s.removePlayer(actor)
	order, cursors := Reindex(g.DreamingOrder, Cursors{Dreamer: g.DreamerIndex, Supervisor: g.SupervisorIndex}, idx)
	g.DreamingOrder, g.DreamerIndex, g.SupervisorIndex = order, cursors.Dreamer, cursors.Supervisor

	userRef := left.UserRef
	out.After("clear-player", func(ctx context.Context) error {
		return e.players.ClearPlayerSession(ctx, actor)
	})
	out.After("count-quit", func(ctx context.Context) error {
		return e.stats.IncrementUserStatistic(ctx, userRef, map[string]int{"total_quits": 1})
	})
	out.Text(left.ChatRef, textYouLeftGame, MenuMain)
	e.log.Info().Str("code", s.Code).Int64("player", actor).Msg("player dropped out")

	leftText := playerLeftText(left)
	if len(order) < PlayersMin {
		return e.destroy(s, out, leftText)
	}
	if g.DreamerIndex >= len(order) {
		if wasDreamer {
			g.Round = RoundState{}
		}
		return e.finish(s, out, leftText)
	}

	reassign := status == StatusAwaitingRoundStart
	if wasDreamer && (status == StatusRoundActive || status == StatusAwaitingRetelling) {
		e.cancelTimer(s, out)
		g.Round = RoundState{}
		if err := s.transition(StatusAwaitingRoundStart); err != nil {
			return OutcomeRelease, err
		}
		reassign = true
	}

	if reassign {
		if err := assignRoles(s, e.rand); err != nil {
			return OutcomeRelease, err
		}
		for _, p := range s.Players {
			out.Text(p.ChatRef, leftText, nil)
		}
		announceRoles(s, out)
		return OutcomeWrite, nil
	}

	broadcast(s, out, leftText)
	return OutcomeWrite, nil
}

func (e *RoundEngine) returnToMenu(s *Session, out *Outbox, actor int64) (Outcome, error) {
	if s.Status() != StatusFinished {
		p := s.Player(actor)
		out.Text(p.ChatRef, roleText(s, p), menuFor(s, actor))
		return OutcomeRelease, nil
	}

	left := s.removePlayer(actor)
	out.After("clear-player", func(ctx context.Context) error {
		return e.players.ClearPlayerSession(ctx, actor)
	})
	out.Text(left.ChatRef, textBackToMenu, MenuMain)

	if len(s.Players) == 0 {
		e.log.Debug().Str("code", s.Code).Msg("finished session removed")
		return OutcomeDelete, nil
	}
	return OutcomeWrite, nil
}
