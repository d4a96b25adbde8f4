package game

import (
	"context"
	"time"

	"dreambot/domain"

	"github.com/google/uuid"
)

// Menu is a reply keyboard, one slice per row.
type Menu [][]string

type Messenger interface {
	SendText(ctx context.Context, chat int64, text string, menu Menu) (int, error)
	SendImage(ctx context.Context, chat int64, image string, caption string) (int, error)
	EditText(ctx context.Context, chat int64, message int, text string) error
	DeleteMessages(ctx context.Context, chat int64, messages ...int) error
}

type StatsRecorder interface {
	IncrementUserStatistic(ctx context.Context, userRef int64, deltas map[string]int) error
	IncrementUserAchievements(ctx context.Context, userRef int64, deltas map[string]int) error
	TouchLastGame(ctx context.Context, userRefs []int64, at time.Time) error
}

type Scheduler interface {
	ScheduleOnce(delay time.Duration, task func(ctx context.Context, job uuid.UUID)) (uuid.UUID, error)
	// Cancel must not fail for a job that already ran or was cancelled.
	Cancel(job uuid.UUID) error
}

type Assets interface {
	DrawWordDeck(ctx context.Context) ([]domain.Card, error)
	RoleImage(ctx context.Context, role string) (string, error)
}

// SessionStore is the key-value backend behind Repository.
type SessionStore interface {
	Lock(ctx context.Context, code string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, code string) error
	Load(ctx context.Context, code string) ([]byte, error)
	Save(ctx context.Context, code string, blob []byte) error
	Insert(ctx context.Context, code string, blob []byte) (bool, error)
	Remove(ctx context.Context, code string) error
}

type LobbyRegistry interface {
	AddOpen(ctx context.Context, code string) error
	RemoveOpen(ctx context.Context, code string) error
	ListOpen(ctx context.Context) ([]string, error)
}

type PlayerIndex interface {
	// ClaimPlayerSession points userId at code unless the user already has a
	// session. It reports whether the claim was made.
	ClaimPlayerSession(ctx context.Context, userId int64, code string) (bool, error)
	PlayerSession(ctx context.Context, userId int64) (string, error)
	ClearPlayerSession(ctx context.Context, userId int64) error
}
