package telegram

import "dreambot/game"

const (
	textWelcome        = "Welcome to When I Dream! Create a game or join one to start dreaming."
	textMainMenu       = "Main menu"
	textStillInGame    = "You are still in a game. Once it is over, press " + game.ButtonMainMenu + " to come back here."
	textNoLobbies      = "There are no open lobbies right now. Create one!"
	textChooseLobby    = "Choose a lobby:"
	textEnterPassword  = "Enter the lobby password:"
	textSomethingWrong = "Something went wrong. Please try again."
	textHelp           = "Create a game and share its code and password with your friends, or join an open lobby. " +
		"A game needs 4 to 10 players. Each round one player dreams while the others describe the cards."
	textRules = "Rules are not available right now."
	textPong  = "pong"
)

var userErrors = []struct {
	err  error
	text string
}{
	{game.ErrLobbyNotFound, "This lobby does not exist."},
	{game.ErrLobbyAlreadyStarted, "The game in this lobby has already started."},
	{game.ErrWrongPassword, "Wrong password, try again."},
	{game.ErrLobbyFull, "This lobby is full."},
	{game.ErrRosterSizeInvalid, "A game needs 4 to 10 players."},
	{game.ErrNotHost, "Only the host can start the game."},
	{game.ErrAlreadyInSession, "You are already in a game."},
	{game.ErrNotInSession, "You are not in a game."},
	{game.ErrCodeSpaceExhausted, "No free lobby codes left, try again later."},
	{game.ErrLockTimeout, "The game is busy, try again."},
}
