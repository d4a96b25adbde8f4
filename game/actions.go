package game

import "strings"

type ActionKind int

const (
	ActionText ActionKind = iota
	ActionStartGame
	ActionLeave
	ActionStartRound
	ActionMarkCorrect
	ActionMarkIncorrect
	ActionEndRound
	ActionPenalty
	ActionDestroyGame
	ActionReturnToMenu
	ActionRetellCorrect
	ActionRetellIncorrect
	ActionYes
	ActionNo
)

// Action is one inbound command from a participant. Text keeps the raw
// message for answers to selection prompts.
type Action struct {
	Kind ActionKind
	Text string
}

const (
	ButtonCreateGame      = "🌙 Create game"
	ButtonJoinGame        = "🚪 Join game"
	ButtonRules           = "📜 Rules"
	ButtonHelp            = "❓ Help"
	ButtonMainMenu        = "🏠 Main menu"
	ButtonStartGame       = "▶️ Start game"
	ButtonLeave           = "🚶 Leave game"
	ButtonStartRound      = "⏰ Start round"
	ButtonCorrect         = "✅ Correct"
	ButtonIncorrect       = "❌ Incorrect"
	ButtonEndRound        = "⏹ End round"
	ButtonPenalty         = "⚠️ Penalty"
	ButtonDestroyGame     = "💥 Destroy game"
	ButtonRetoldCorrect   = "👍 Retold correctly"
	ButtonRetoldIncorrect = "👎 Retold incorrectly"
	ButtonYes             = "Yes"
	ButtonNo              = "No"
)

var buttonActions = map[string]ActionKind{
	ButtonMainMenu:        ActionReturnToMenu,
	ButtonStartGame:       ActionStartGame,
	ButtonLeave:           ActionLeave,
	ButtonStartRound:      ActionStartRound,
	ButtonCorrect:         ActionMarkCorrect,
	ButtonIncorrect:       ActionMarkIncorrect,
	ButtonEndRound:        ActionEndRound,
	ButtonPenalty:         ActionPenalty,
	ButtonDestroyGame:     ActionDestroyGame,
	ButtonRetoldCorrect:   ActionRetellCorrect,
	ButtonRetoldIncorrect: ActionRetellIncorrect,
	ButtonYes:             ActionYes,
	ButtonNo:              ActionNo,
}

func ParseAction(text string) Action {
	text = strings.TrimSpace(text)
	if kind, ok := buttonActions[text]; ok {
		return Action{Kind: kind, Text: text}
	}
	return Action{Kind: ActionText, Text: text}
}
