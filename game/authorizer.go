package game

import "slices"

type Route int

const (
	RouteDispatch Route = iota
	RouteConfirmation
)

var supervisorActions = []ActionKind{
	ActionMarkCorrect,
	ActionMarkIncorrect,
	ActionEndRound,
	ActionPenalty,
	ActionStartRound,
	ActionDestroyGame,
	ActionReturnToMenu,
}

// Authorize decides whether actor may perform kind in the session's current
// state. Rules are checked in order and the first match wins. A rejection
// carries no side effect besides ErrUnauthorized.
func Authorize(s *Session, actor int64, kind ActionKind) (Route, error) {
	p := s.Player(actor)
	if p == nil {
		return RouteDispatch, ErrUnauthorized
	}

	if p.Pending != ConfirmNone {
		return RouteConfirmation, nil
	}

	status := s.Status()
	if status == StatusFinished {
		if kind == ActionReturnToMenu {
			return RouteDispatch, nil
		}
		return RouteDispatch, ErrUnauthorized
	}

	if kind == ActionLeave {
		return RouteDispatch, nil
	}

	if status == StatusInLobby {
		if kind == ActionStartGame || (kind == ActionDestroyGame && s.isHost(actor)) {
			return RouteDispatch, nil
		}
		return RouteDispatch, ErrUnauthorized
	}

	if status == StatusAwaitingRetelling {
		if s.isSupervisor(actor) && (kind == ActionRetellCorrect || kind == ActionRetellIncorrect) {
			return RouteDispatch, nil
		}
		return RouteDispatch, ErrUnauthorized
	}

	if slices.Contains(supervisorActions, kind) && s.isSupervisor(actor) && allowedIn(kind, status) {
		return RouteDispatch, nil
	}

	return RouteDispatch, ErrUnauthorized
}

func allowedIn(kind ActionKind, status Status) bool {
	switch kind {
	case ActionStartRound:
		return status == StatusAwaitingRoundStart
	case ActionMarkCorrect, ActionMarkIncorrect, ActionEndRound:
		return status == StatusRoundActive
	case ActionPenalty:
		return status == StatusRoundActive || status == StatusAwaitingRoundStart
	}
	return true
}
