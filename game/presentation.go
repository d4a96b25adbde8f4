package game

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	MenuMain = Menu{{ButtonCreateGame, ButtonJoinGame}, {ButtonRules, ButtonHelp}}

	menuLobbyHost       = Menu{{ButtonStartGame}, {ButtonDestroyGame, ButtonLeave}}
	menuLobbyGuest      = Menu{{ButtonLeave}}
	menuSupervisorIdle  = Menu{{ButtonStartRound}, {ButtonPenalty}, {ButtonDestroyGame, ButtonLeave}}
	menuSupervisorRound = Menu{{ButtonCorrect, ButtonIncorrect}, {ButtonEndRound}, {ButtonPenalty}}
	menuRetelling       = Menu{{ButtonRetoldCorrect, ButtonRetoldIncorrect}}
	menuPlayer          = Menu{{ButtonLeave}}
	menuConfirm         = Menu{{ButtonYes, ButtonNo}}
	menuFinished        = Menu{{ButtonMainMenu}}
)

var roleNames = map[Role]string{
	RoleDreamer: "Dreamer",
	RoleFairy:   "Fairy",
	RoleBuka:    "Buka",
	RoleSandman: "Sandman",
}

var roleGoals = map[Role]string{
	RoleDreamer: "Close your eyes when the round starts and guess the dream.",
	RoleFairy:   "Help the dreamer guess as many words as possible.",
	RoleBuka:    "Lead the dreamer to wrong answers.",
	RoleSandman: "Keep correct and wrong answers balanced.",
}

// menuFor returns the keyboard a participant should see in the current state.
func menuFor(s *Session, playerId int64) Menu {
	if lobby, ok := s.Lobby(); ok {
		if lobby.HostId == playerId {
			return menuLobbyHost
		}
		return menuLobbyGuest
	}

	supervisor := s.isSupervisor(playerId)
	switch s.Status() {
	case StatusFinished:
		return menuFinished
	case StatusAwaitingRoundStart:
		if supervisor {
			return menuSupervisorIdle
		}
	case StatusRoundActive:
		if supervisor {
			return menuSupervisorRound
		}
	case StatusAwaitingRetelling:
		if supervisor {
			return menuRetelling
		}
	}
	return menuPlayer
}

// penaltyMenu lists every other player with a position prefix so equal
// display names stay distinguishable.
func penaltyMenu(s *Session, supervisor int64) Menu {
	menu := Menu{}
	for i, p := range s.Players {
		if p.Id == supervisor {
			continue
		}
		menu = append(menu, []string{penaltyLabel(i, p)})
	}
	return append(menu, []string{ButtonNo})
}

func penaltyLabel(i int, p *PlayerEntry) string {
	return strconv.Itoa(i+1) + ". " + p.DisplayName
}

func penaltyTarget(s *Session, text string) *PlayerEntry {
	for i, p := range s.Players {
		if penaltyLabel(i, p) == text {
			return p
		}
	}
	return nil
}

func lobbyText(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lobby %s\nPassword: %s\n\nPlayers (%d/%d):\n", s.Code, s.Password, len(s.Players), PlayersMax)
	for i, p := range s.Players {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.DisplayName)
	}
	if len(s.Players) < PlayersMin {
		fmt.Fprintf(&b, "\nAt least %d players are needed to start.", PlayersMin)
	}
	return b.String()
}

func roleText(s *Session, p *PlayerEntry) string {
	g, _ := s.Game()
	dreamer := s.Player(g.DreamerId())
	supervisor := s.Player(g.SupervisorId())

	var b strings.Builder
	fmt.Fprintf(&b, "Round %d\nYour role: %s\n%s\n\n", g.RoundNumber, roleNames[p.Role], roleGoals[p.Role])
	if dreamer != nil {
		fmt.Fprintf(&b, "Dreamer: %s\n", dreamer.DisplayName)
	}
	if supervisor != nil {
		fmt.Fprintf(&b, "Supervisor: %s", supervisor.DisplayName)
	}
	if p.Id == g.SupervisorId() {
		b.WriteString("\n\nYou are the supervisor: start the round when everybody is ready.")
	}
	return b.String()
}

func roundSummaryText(g *GameState) string {
	words := "none"
	if len(g.Round.CorrectWords) > 0 {
		words = strings.Join(g.Round.CorrectWords, ", ")
	}
	retold := "no"
	if g.Round.RetoldCorrectly {
		retold = "yes"
	}
	return fmt.Sprintf("Round %d is over.\nCorrect: %d\nIncorrect: %d\nGuessed words: %s\nRetold correctly: %s",
		g.RoundNumber, g.Round.Correct, g.Round.Incorrect, words, retold)
}

func resultsText(s *Session) string {
	var b strings.Builder
	b.WriteString("The game is over!\n\n")
	for _, st := range s.Results {
		fmt.Fprintf(&b, "%d. %s: %d\n", st.Place, st.DisplayName, st.Score)
	}
	return b.String()
}

const (
	textLobbyJoined      = "You joined the lobby. Wait for the host to start the game."
	textLobbyLeft        = "You left the lobby."
	textNewHost          = "The host left. You are the host now."
	textRoundStarted     = "The round has started!"
	textDreamerSleep     = "Sleep! Close your eyes and listen to the others."
	textAskRetelling     = "Time is up! The dreamer now retells the dream."
	textSupervisorRetell = "Did the dreamer retell the dream correctly?"
	textConfirmDropOut   = "Do you really want to leave the game?"
	textConfirmDestroy   = "Do you really want to destroy the game for everybody?"
	textChoosePenalty    = "Who gets a penalty?"
	textCancelled        = "Cancelled."
	textYouLeftGame      = "You left the game."
	textGameDestroyed    = "The game was ended early. No statistics were saved."
	textBackToMenu       = "Welcome back to the main menu."
	textLobbyDisbanded   = "The host closed the lobby."
)

func penaltyText(p *PlayerEntry) string {
	return fmt.Sprintf("%s gets a penalty (total: %d).", p.DisplayName, p.Statistic.Penalties)
}

func playerLeftText(p *PlayerEntry) string {
	return fmt.Sprintf("%s left the game.", p.DisplayName)
}
