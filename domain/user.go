package domain

import (
	"strings"
	"time"
)

type User struct {
	Id             int64
	TelegramId     int64
	FirstName      string
	LastName       string
	Username       string
	LastMainMenuId int
	CreatedAt      time.Time
}

// DisplayName is what other players see in rosters and selection menus.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Player"
}

type Card struct {
	FileId string
	Word   string
}
