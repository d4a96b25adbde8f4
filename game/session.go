package game

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"dreambot/domain"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInLobby            Status = "in_lobby"
	StatusAwaitingRoundStart Status = "awaiting_round_start"
	StatusRoundActive        Status = "round_active"
	StatusAwaitingRetelling  Status = "awaiting_retelling"
	StatusFinished           Status = "finished"
)

var transitions = map[Status][]Status{
	StatusAwaitingRoundStart: {StatusRoundActive, StatusFinished},
	StatusRoundActive:        {StatusAwaitingRetelling, StatusAwaitingRoundStart, StatusFinished},
	StatusAwaitingRetelling:  {StatusAwaitingRoundStart, StatusFinished},
}

func (s Status) inGame() bool {
	switch s {
	case StatusAwaitingRoundStart, StatusRoundActive, StatusAwaitingRetelling, StatusFinished:
		return true
	}
	return false
}

type Role string

const (
	RoleDreamer Role = "dreamer"
	RoleFairy   Role = "fairy"
	RoleBuka    Role = "buka"
	RoleSandman Role = "sandman"
)

type Achievement string

const (
	AchievementNightmare    Achievement = "nightmare"
	AchievementDreamMaster  Achievement = "dream_master"
	AchievementTopPenalties Achievement = "top_penalties"
	AchievementTopDreamer   Achievement = "top_dreamer"
	AchievementTopBuka      Achievement = "top_buka"
	AchievementTopFairy     Achievement = "top_fairy"
	AchievementTopSandman   Achievement = "top_sandman"
	AchievementTopScore     Achievement = "top_score"
)

// Confirmation is a question the bot asked a player and is waiting on.
type Confirmation string

const (
	ConfirmNone    Confirmation = ""
	ConfirmDropOut Confirmation = "drop_out"
	ConfirmDestroy Confirmation = "destroy"
	ConfirmPenalty Confirmation = "penalty"
)

type Statistic struct {
	Penalties    int `json:"penalties"`
	ScoreBuka    int `json:"score_buka"`
	ScoreFairy   int `json:"score_fairy"`
	ScoreSandman int `json:"score_sandman"`
	ScoreDreamer int `json:"score_dreamer"`
}

func (s Statistic) Final() int {
	return s.ScoreBuka + s.ScoreFairy + s.ScoreSandman + s.ScoreDreamer - s.Penalties
}

type PlayerEntry struct {
	Id           int64         `json:"id"`
	DisplayName  string        `json:"name"`
	UserRef      int64         `json:"user_ref"`
	ChatRef      int64         `json:"chat_ref"`
	Role         Role          `json:"role,omitempty"`
	Statistic    Statistic     `json:"statistic"`
	Achievements []Achievement `json:"achievements,omitempty"`
	Pending      Confirmation  `json:"pending,omitempty"`
}

func (p *PlayerEntry) Award(a Achievement) {
	if !slices.Contains(p.Achievements, a) {
		p.Achievements = append(p.Achievements, a)
	}
}

func (p *PlayerEntry) HasAchievement(a Achievement) bool {
	return slices.Contains(p.Achievements, a)
}

type LobbyState struct {
	HostId      int64 `json:"host_id"`
	HostChat    int64 `json:"host_chat"`
	HostMessage int   `json:"host_message,omitempty"`
}

type RoundState struct {
	Correct         int       `json:"correct"`
	Incorrect       int       `json:"incorrect"`
	CorrectWords    []string  `json:"correct_words,omitempty"`
	RetoldCorrectly bool      `json:"retold_correctly"`
	StartedAt       time.Time `json:"started_at"`
	Timer           uuid.UUID `json:"timer"`
}

type GameState struct {
	DreamingOrder   []int64       `json:"dreaming_order"`
	DreamerIndex    int           `json:"dreamer_index"`
	SupervisorIndex int           `json:"supervisor_index"`
	Deck            []domain.Card `json:"deck"`
	CardCursor      int           `json:"card_cursor"`
	LastAnswerAt    time.Time     `json:"last_answer_at"`
	RoundNumber     int           `json:"round_number"`
	Round           RoundState    `json:"round"`
}

func (g *GameState) DreamerId() int64 {
	return g.DreamingOrder[g.DreamerIndex]
}

func (g *GameState) SupervisorId() int64 {
	return g.DreamingOrder[g.SupervisorIndex]
}

func (g *GameState) CurrentCard() (domain.Card, bool) {
	if len(g.Deck) == 0 {
		return domain.Card{}, false
	}
	return g.Deck[g.CardCursor%len(g.Deck)], true
}

type Standing struct {
	PlayerId    int64  `json:"player_id"`
	DisplayName string `json:"name"`
	Score       int    `json:"score"`
	Place       int    `json:"place"`
}

// Session is the shared state of one lobby and the game played in it.
// Lobby data exists only while the session is in the lobby and game data
// only once it has started; the accessors enforce that split.
type Session struct {
	Code     string
	Password string
	Players  []*PlayerEntry
	Results  []Standing

	status Status
	lobby  *LobbyState
	game   *GameState
}

func newLobbySession(code, password string, host *PlayerEntry) *Session {
	return &Session{
		Code:     code,
		Password: password,
		Players:  []*PlayerEntry{host},
		status:   StatusInLobby,
		lobby:    &LobbyState{HostId: host.Id, HostChat: host.ChatRef},
	}
}

func (s *Session) Status() Status {
	return s.status
}

func (s *Session) Lobby() (*LobbyState, bool) {
	if s.status != StatusInLobby {
		return nil, false
	}
	return s.lobby, true
}

func (s *Session) Game() (*GameState, bool) {
	if !s.status.inGame() {
		return nil, false
	}
	return s.game, true
}

func (s *Session) begin(g *GameState) error {
	if s.status != StatusInLobby {
		return fmt.Errorf("%w: cannot begin from %s", ErrLobbyAlreadyStarted, s.status)
	}
	s.status = StatusAwaitingRoundStart
	s.lobby = nil
	s.game = g
	return nil
}

func (s *Session) transition(to Status) error {
	if !slices.Contains(transitions[s.status], to) {
		return fmt.Errorf("invalid transition %s -> %s", s.status, to)
	}
	s.status = to
	return nil
}

func (s *Session) Player(id int64) *PlayerEntry {
	for _, p := range s.Players {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func (s *Session) removePlayer(id int64) *PlayerEntry {
	for i, p := range s.Players {
		if p.Id == id {
			s.Players = slices.Delete(s.Players, i, i+1)
			return p
		}
	}
	return nil
}

func (s *Session) isHost(id int64) bool {
	lobby, ok := s.Lobby()
	return ok && lobby.HostId == id
}

func (s *Session) isSupervisor(id int64) bool {
	g, ok := s.Game()
	if !ok || s.status == StatusFinished {
		return false
	}
	return g.SupervisorId() == id
}

type sessionWire struct {
	Code     string         `json:"code"`
	Password string         `json:"password"`
	Status   Status         `json:"status"`
	Players  []*PlayerEntry `json:"players"`
	Lobby    *LobbyState    `json:"lobby,omitempty"`
	Game     *GameState     `json:"game,omitempty"`
	Results  []Standing     `json:"results,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionWire{
		Code:     s.Code,
		Password: s.Password,
		Status:   s.status,
		Players:  s.Players,
		Lobby:    s.lobby,
		Game:     s.game,
		Results:  s.Results,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	if err := w.validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrCorruptSession, err)
	}
	*s = Session{
		Code:     w.Code,
		Password: w.Password,
		Players:  w.Players,
		Results:  w.Results,
		status:   w.Status,
		lobby:    w.Lobby,
		game:     w.Game,
	}
	return nil
}

func (w sessionWire) validate() error {
	switch {
	case w.Status == StatusInLobby:
		if w.Lobby == nil || w.Game != nil {
			return fmt.Errorf("lobby session must carry lobby data only")
		}
	case w.Status.inGame():
		if w.Game == nil || w.Lobby != nil {
			return fmt.Errorf("%s session must carry game data only", w.Status)
		}
		if w.Status == StatusFinished {
			return nil
		}
		n := len(w.Game.DreamingOrder)
		if w.Game.DreamerIndex < 0 || w.Game.DreamerIndex >= n || w.Game.SupervisorIndex < 0 || w.Game.SupervisorIndex >= n {
			return fmt.Errorf("turn cursors out of range")
		}
	default:
		return fmt.Errorf("unknown status %q", w.Status)
	}
	return nil
}
