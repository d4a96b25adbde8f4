package game

import (
	"context"
	"errors"

	"dreambot/domain"
)

type Participant struct {
	Id          int64
	DisplayName string
	UserRef     int64
	ChatRef     int64
}

func (p Participant) entry() *PlayerEntry {
	return &PlayerEntry{Id: p.Id, DisplayName: p.DisplayName, UserRef: p.UserRef, ChatRef: p.ChatRef}
}

type LobbyManager struct {
	*core
}

// sessionOf returns the code of the session userId currently plays in.
// Pointers to sessions that are gone or no longer list the user are dropped.
func (c *core) sessionOf(ctx context.Context, userId int64) (string, error) {
	code, err := c.players.PlayerSession(ctx, userId)
	if errors.Is(err, domain.ErrNotFound) {
		return "", ErrNotInSession
	}
	if err != nil {
		return "", err
	}

	member := false
	err = c.repo.Mutate(ctx, code, func(s *Session) (Outcome, error) {
		member = s.Player(userId) != nil
		return OutcomeRelease, nil
	})
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return "", err
	}
	if err != nil || !member {
		if err := c.players.ClearPlayerSession(ctx, userId); err != nil {
			c.log.Warn().Err(err).Int64("user", userId).Msg("failed to clear stale session pointer")
		}
		return "", ErrNotInSession
	}
	return code, nil
}

// CreateLobby opens a new lobby hosted by creator under a free random code.
func (lm *LobbyManager) CreateLobby(ctx context.Context, creator Participant) (*Session, error) {
	if _, err := lm.sessionOf(ctx, creator.Id); err == nil {
		return nil, ErrAlreadyInSession
	} else if !errors.Is(err, ErrNotInSession) {
		return nil, err
	}

	password := lm.rand.digits(codeDigits)
	var created *Session
	for range maxCodeAttempts {
		s := newLobbySession(lm.rand.digits(codeDigits), password, creator.entry())
		ok, err := lm.repo.Create(ctx, s)
		if err != nil {
			return nil, err
		}
		if ok {
			created = s
			break
		}
	}
	if created == nil {
		return nil, ErrCodeSpaceExhausted
	}

	// The pointer claim decides between concurrent creations by one user.
	claimed, err := lm.players.ClaimPlayerSession(ctx, creator.Id, created.Code)
	if err == nil && !claimed {
		err = ErrAlreadyInSession
	}
	if err != nil {
		if rmErr := lm.repo.Delete(context.WithoutCancel(ctx), created.Code); rmErr != nil {
			lm.log.Error().Err(rmErr).Str("code", created.Code).Msg("failed to remove unclaimed lobby")
		}
		return nil, err
	}

	out := &Outbox{}
	out.After("register-open-lobby", func(ctx context.Context) error {
		return lm.lobbies.AddOpen(ctx, created.Code)
	})
	out.HostCard(created.Code, creator.ChatRef, lobbyText(created))
	lm.deliver(ctx, out)

	lm.log.Info().Str("code", created.Code).Int64("host", creator.Id).Msg("lobby created")
	return created, nil
}

func (lm *LobbyManager) ListOpenLobbies(ctx context.Context) ([]string, error) {
	return lm.lobbies.ListOpen(ctx)
}

func lobbyError(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return ErrLobbyNotFound
	}
	return err
}

// CheckJoinable reports whether code names a lobby that still takes players.
func (lm *LobbyManager) CheckJoinable(ctx context.Context, code string) error {
	err := lm.repo.Mutate(ctx, code, func(s *Session) (Outcome, error) {
		if _, ok := s.Lobby(); !ok {
			return OutcomeRelease, ErrLobbyAlreadyStarted
		}
		if len(s.Players) >= PlayersMax {
			return OutcomeRelease, ErrLobbyFull
		}
		return OutcomeRelease, nil
	})
	return lobbyError(err)
}

func (lm *LobbyManager) JoinLobby(ctx context.Context, code, password string, joiner Participant) (*Session, error) {
	current, err := lm.sessionOf(ctx, joiner.Id)
	switch {
	case err == nil && current != code:
		return nil, ErrAlreadyInSession
	case err != nil && !errors.Is(err, ErrNotInSession):
		return nil, err
	}

	var joined *Session
	err = lm.mutate(ctx, code, func(s *Session, out *Outbox) (Outcome, error) {
		lobby, ok := s.Lobby()
		if !ok {
			return OutcomeRelease, ErrLobbyAlreadyStarted
		}
		if s.Password != password {
			return OutcomeRelease, ErrWrongPassword
		}
		joined = s
		if s.Player(joiner.Id) != nil {
			return OutcomeRelease, nil
		}
		if len(s.Players) >= PlayersMax {
			return OutcomeRelease, ErrLobbyFull
		}

		claimed, err := lm.players.ClaimPlayerSession(ctx, joiner.Id, code)
		if err != nil {
			return OutcomeRelease, err
		}
		if !claimed {
			return OutcomeRelease, ErrAlreadyInSession
		}
		out.OnAbort(func() {
			if err := lm.players.ClearPlayerSession(context.WithoutCancel(ctx), joiner.Id); err != nil {
				lm.log.Warn().Err(err).Int64("user", joiner.Id).Msg("failed to drop pointer of aborted join")
			}
		})

		s.Players = append(s.Players, joiner.entry())
		if len(s.Players) >= PlayersMax {
			out.After("close-full-lobby", func(ctx context.Context) error {
				return lm.lobbies.RemoveOpen(ctx, code)
			})
		}
		out.Edit(lobby.HostChat, lobby.HostMessage, lobbyText(s))
		out.Text(joiner.ChatRef, textLobbyJoined+"\n\n"+lobbyText(s), menuLobbyGuest)
		return OutcomeWrite, nil
	})
	if err != nil {
		return nil, lobbyError(err)
	}
	return joined, nil
}

func (lm *LobbyManager) LeaveLobby(ctx context.Context, code string, playerId int64) error {
	err := lm.mutate(ctx, code, func(s *Session, out *Outbox) (Outcome, error) {
		return lm.leave(s, out, playerId)
	})
	return lobbyError(err)
}

func (lm *LobbyManager) leave(s *Session, out *Outbox, playerId int64) (Outcome, error) {
	lobby, ok := s.Lobby()
	if !ok {
		return OutcomeRelease, ErrLobbyAlreadyStarted
	}
	left := s.removePlayer(playerId)
	if left == nil {
		return OutcomeRelease, ErrNotInSession
	}

	code := s.Code
	out.After("clear-player", func(ctx context.Context) error {
		return lm.players.ClearPlayerSession(ctx, playerId)
	})
	out.Text(left.ChatRef, textLobbyLeft, MenuMain)

	if len(s.Players) == 0 {
		out.After("unregister-lobby", func(ctx context.Context) error {
			return lm.lobbies.RemoveOpen(ctx, code)
		})
		lm.log.Info().Str("code", code).Msg("empty lobby removed")
		return OutcomeDelete, nil
	}

	out.After("reopen-lobby", func(ctx context.Context) error {
		return lm.lobbies.AddOpen(ctx, code)
	})

	if lobby.HostId == playerId {
		host := s.Players[0]
		out.Delete(lobby.HostChat, lobby.HostMessage)
		lobby.HostId, lobby.HostChat, lobby.HostMessage = host.Id, host.ChatRef, 0
		out.HostCard(code, host.ChatRef, textNewHost+"\n\n"+lobbyText(s))
		return OutcomeWrite, nil
	}

	out.Edit(lobby.HostChat, lobby.HostMessage, lobbyText(s))
	return OutcomeWrite, nil
}

// disband drops a lobby that never started, sending everybody back to the
// main menu.
func (c *core) disband(s *Session, out *Outbox) (Outcome, error) {
	lobby, _ := s.Lobby()
	code := s.Code

	out.After("unregister-lobby", func(ctx context.Context) error {
		return c.lobbies.RemoveOpen(ctx, code)
	})
	for _, p := range s.Players {
		out.After("clear-player", func(ctx context.Context) error {
			return c.players.ClearPlayerSession(ctx, p.Id)
		})
		out.Text(p.ChatRef, textLobbyDisbanded, MenuMain)
	}
	out.Delete(lobby.HostChat, lobby.HostMessage)

	c.log.Info().Str("code", code).Int("players", len(s.Players)).Msg("lobby disbanded")
	return OutcomeDelete, nil
}

// StartGame moves a full enough lobby into the first round.
func (lm *LobbyManager) StartGame(ctx context.Context, code string, requester int64) error {
	deck, err := lm.drawDeck(ctx)
	if err != nil {
		return err
	}
	err = lm.mutate(ctx, code, func(s *Session, out *Outbox) (Outcome, error) {
		return lm.start(s, out, requester, deck)
	})
	return lobbyError(err)
}

func (lm *LobbyManager) start(s *Session, out *Outbox, requester int64, deck []domain.Card) (Outcome, error) {
	lobby, ok := s.Lobby()
	if !ok {
		return OutcomeRelease, ErrLobbyAlreadyStarted
	}
	if lobby.HostId != requester {
		return OutcomeRelease, ErrNotHost
	}
	if len(s.Players) < PlayersMin || len(s.Players) > PlayersMax {
		return OutcomeRelease, ErrRosterSizeInvalid
	}
	if deck == nil {
		return OutcomeRelease, errDeckMissing
	}

	order := make([]int64, len(s.Players))
	refs := make([]int64, len(s.Players))
	for i, p := range s.Players {
		order[i], refs[i] = p.Id, p.UserRef
		p.Statistic = Statistic{}
		p.Achievements = nil
		p.Pending = ConfirmNone
	}
	lm.rand.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	hostChat, hostMessage := lobby.HostChat, lobby.HostMessage
	err := s.begin(&GameState{
		DreamingOrder:   order,
		DreamerIndex:    0,
		SupervisorIndex: 1,
		Deck:            deck,
		RoundNumber:     1,
	})
	if err != nil {
		return OutcomeRelease, err
	}
	if err := assignRoles(s, lm.rand); err != nil {
		return OutcomeRelease, err
	}

	code, startedAt := s.Code, lm.now()
	out.After("close-lobby", func(ctx context.Context) error {
		return lm.lobbies.RemoveOpen(ctx, code)
	})
	out.After("touch-last-game", func(ctx context.Context) error {
		return lm.stats.TouchLastGame(ctx, refs, startedAt)
	})
	if hostMessage != 0 {
		out.Delete(hostChat, hostMessage)
	}
	announceRoles(s, out)

	lm.log.Info().Str("code", code).Int("players", len(order)).Msg("game started")
	return OutcomeWrite, nil
}

func announceRoles(s *Session, out *Outbox) {
	for _, p := range s.Players {
		out.RoleCard(p.ChatRef, p.Role, roleText(s, p), menuFor(s, p.Id))
	}
}
