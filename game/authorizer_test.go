package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authSession is hosted by 1; once started 1 dreams and 2 supervises.
func authSession(t *testing.T, status Status) *Session {
	t.Helper()
	s := newLobbySession("0000", "0000", participant(1).entry())
	for id := int64(2); id <= 4; id++ {
		s.Players = append(s.Players, participant(id).entry())
	}
	if status == StatusInLobby {
		return s
	}
	require.NoError(t, s.begin(&GameState{DreamingOrder: []int64{1, 2, 3, 4}, DreamerIndex: 0, SupervisorIndex: 1}))
	s.status = status
	return s
}

func TestAuthorize(t *testing.T) {
	t.Parallel()
	const (
		dreamer    = int64(1)
		supervisor = int64(2)
		player     = int64(3)
		stranger   = int64(99)
	)

	tests := []struct {
		name    string
		status  Status
		actor   int64
		kind    ActionKind
		pending Confirmation
		route   Route
		allowed bool
	}{
		{"stranger", StatusRoundActive, stranger, ActionLeave, ConfirmNone, RouteDispatch, false},
		{"pending answer goes to confirmation", StatusRoundActive, player, ActionText, ConfirmDropOut, RouteConfirmation, true},
		{"pending wins over finished", StatusFinished, player, ActionYes, ConfirmDropOut, RouteConfirmation, true},

		{"finished return to menu", StatusFinished, player, ActionReturnToMenu, ConfirmNone, RouteDispatch, true},
		{"finished leave", StatusFinished, player, ActionLeave, ConfirmNone, RouteDispatch, false},
		{"finished start round", StatusFinished, supervisor, ActionStartRound, ConfirmNone, RouteDispatch, false},

		{"leave any state", StatusRoundActive, dreamer, ActionLeave, ConfirmNone, RouteDispatch, true},
		{"leave while retelling", StatusAwaitingRetelling, supervisor, ActionLeave, ConfirmNone, RouteDispatch, true},

		{"lobby start", StatusInLobby, player, ActionStartGame, ConfirmNone, RouteDispatch, true},
		{"lobby leave", StatusInLobby, player, ActionLeave, ConfirmNone, RouteDispatch, true},
		{"lobby mark", StatusInLobby, supervisor, ActionMarkCorrect, ConfirmNone, RouteDispatch, false},
		{"lobby destroy by host", StatusInLobby, dreamer, ActionDestroyGame, ConfirmNone, RouteDispatch, true},
		{"lobby destroy by guest", StatusInLobby, player, ActionDestroyGame, ConfirmNone, RouteDispatch, false},
		{"lobby pending answer", StatusInLobby, dreamer, ActionYes, ConfirmDestroy, RouteConfirmation, true},

		{"retell by supervisor", StatusAwaitingRetelling, supervisor, ActionRetellCorrect, ConfirmNone, RouteDispatch, true},
		{"retell no by supervisor", StatusAwaitingRetelling, supervisor, ActionRetellIncorrect, ConfirmNone, RouteDispatch, true},
		{"retell by dreamer", StatusAwaitingRetelling, dreamer, ActionRetellCorrect, ConfirmNone, RouteDispatch, false},
		{"mark while retelling", StatusAwaitingRetelling, supervisor, ActionMarkCorrect, ConfirmNone, RouteDispatch, false},
		{"penalty while retelling", StatusAwaitingRetelling, supervisor, ActionPenalty, ConfirmNone, RouteDispatch, false},

		{"start round", StatusAwaitingRoundStart, supervisor, ActionStartRound, ConfirmNone, RouteDispatch, true},
		{"start round by player", StatusAwaitingRoundStart, player, ActionStartRound, ConfirmNone, RouteDispatch, false},
		{"start round by dreamer", StatusAwaitingRoundStart, dreamer, ActionStartRound, ConfirmNone, RouteDispatch, false},
		{"mark before round", StatusAwaitingRoundStart, supervisor, ActionMarkCorrect, ConfirmNone, RouteDispatch, false},
		{"penalty between rounds", StatusAwaitingRoundStart, supervisor, ActionPenalty, ConfirmNone, RouteDispatch, true},
		{"destroy between rounds", StatusAwaitingRoundStart, supervisor, ActionDestroyGame, ConfirmNone, RouteDispatch, true},
		{"destroy by player", StatusAwaitingRoundStart, player, ActionDestroyGame, ConfirmNone, RouteDispatch, false},

		{"mark correct", StatusRoundActive, supervisor, ActionMarkCorrect, ConfirmNone, RouteDispatch, true},
		{"mark incorrect", StatusRoundActive, supervisor, ActionMarkIncorrect, ConfirmNone, RouteDispatch, true},
		{"mark by player", StatusRoundActive, player, ActionMarkCorrect, ConfirmNone, RouteDispatch, false},
		{"mark by dreamer", StatusRoundActive, dreamer, ActionMarkCorrect, ConfirmNone, RouteDispatch, false},
		{"end round", StatusRoundActive, supervisor, ActionEndRound, ConfirmNone, RouteDispatch, true},
		{"start round twice", StatusRoundActive, supervisor, ActionStartRound, ConfirmNone, RouteDispatch, false},
		{"penalty in round", StatusRoundActive, supervisor, ActionPenalty, ConfirmNone, RouteDispatch, true},
		{"menu refresh", StatusRoundActive, supervisor, ActionReturnToMenu, ConfirmNone, RouteDispatch, true},
		{"menu refresh by player", StatusRoundActive, player, ActionReturnToMenu, ConfirmNone, RouteDispatch, false},
		{"free text", StatusRoundActive, player, ActionText, ConfirmNone, RouteDispatch, false},
		{"stray yes", StatusRoundActive, supervisor, ActionYes, ConfirmNone, RouteDispatch, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := authSession(t, tt.status)
			if p := s.Player(tt.actor); p != nil {
				p.Pending = tt.pending
			}

			route, err := Authorize(s, tt.actor, tt.kind)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.route, route)
			} else {
				assert.ErrorIs(t, err, ErrUnauthorized)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Action{Kind: ActionMarkCorrect, Text: ButtonCorrect}, ParseAction(ButtonCorrect))
	assert.Equal(t, Action{Kind: ActionYes, Text: ButtonYes}, ParseAction("  "+ButtonYes+" "))
	assert.Equal(t, Action{Kind: ActionText, Text: "2. Bob"}, ParseAction("2. Bob"))
}
