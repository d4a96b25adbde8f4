package game

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

type Deps struct {
	Store     SessionStore
	Lobbies   LobbyRegistry
	Players   PlayerIndex
	Messenger Messenger
	Assets    Assets
	Stats     StatsRecorder
	Scheduler Scheduler
	Params    Params
	Logger    zerolog.Logger

	// Rand and Now default to a time seeded generator and time.Now.
	Rand *rand.Rand
	Now  func() time.Time
}

// core is shared by LobbyManager, RoundEngine and Service.
type core struct {
	repo      *Repository
	lobbies   LobbyRegistry
	players   PlayerIndex
	messenger Messenger
	assets    Assets
	stats     StatsRecorder
	scheduler Scheduler
	params    Params
	rand      *randomizer
	now       func() time.Time
	log       zerolog.Logger
}

func newCore(d Deps) *core {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	params := d.Params.withDefaults()
	return &core{
		repo:      NewRepository(d.Store, params, d.Logger),
		lobbies:   d.Lobbies,
		players:   d.Players,
		messenger: d.Messenger,
		assets:    d.Assets,
		stats:     d.Stats,
		scheduler: d.Scheduler,
		params:    params,
		rand:      newRandomizer(d.Rand),
		now:       now,
		log:       d.Logger,
	}
}

// mutate wraps Repository.Mutate and flushes the outbox once the session
// has been committed.
func (c *core) mutate(ctx context.Context, code string, fn func(s *Session, out *Outbox) (Outcome, error)) error {
	out := &Outbox{}
	err := c.repo.Mutate(ctx, code, func(s *Session) (Outcome, error) {
		return fn(s, out)
	})
	if err != nil {
		for _, abort := range out.aborts {
			abort()
		}
		return err
	}
	c.deliver(ctx, out)
	return nil
}

// deliver runs the after-commit effects and sends every notice. Failures are
// logged and never undo the committed state.
func (c *core) deliver(ctx context.Context, out *Outbox) {
	for _, e := range out.effects {
		if err := e.run(ctx); err != nil {
			c.log.Error().Err(err).Str("effect", e.name).Msg("after-commit effect failed")
		}
	}

	for _, n := range out.notices {
		var err error
		switch n.kind {
		case noticeText:
			_, err = c.messenger.SendText(ctx, n.chat, n.text, n.menu)
		case noticeImage:
			_, err = c.messenger.SendImage(ctx, n.chat, n.image, n.text)
		case noticeRoleCard:
			err = c.sendRoleCard(ctx, n)
		case noticeEdit:
			err = c.messenger.EditText(ctx, n.chat, n.messages[0], n.text)
		case noticeDelete:
			err = c.messenger.DeleteMessages(ctx, n.chat, n.messages...)
		case noticeHostCard:
			err = c.sendHostCard(ctx, n)
		}
		if err != nil {
			c.log.Warn().Err(err).Int64("chat", n.chat).Msg("failed to deliver message")
		}
	}
}

func (c *core) sendRoleCard(ctx context.Context, n notice) error {
	image, err := c.assets.RoleImage(ctx, string(n.role))
	if err != nil {
		c.log.Debug().Err(err).Str("role", string(n.role)).Msg("role image missing, sending text only")
		_, err = c.messenger.SendText(ctx, n.chat, n.text, n.menu)
		return err
	}
	if _, err := c.messenger.SendImage(ctx, n.chat, image, ""); err != nil {
		return err
	}
	_, err = c.messenger.SendText(ctx, n.chat, n.text, n.menu)
	return err
}

func (c *core) sendHostCard(ctx context.Context, n notice) error {
	message, err := c.messenger.SendText(ctx, n.chat, n.text, n.menu)
	if err != nil {
		return err
	}
	return c.repo.Mutate(ctx, n.code, func(s *Session) (Outcome, error) {
		lobby, ok := s.Lobby()
		if !ok || lobby.HostChat != n.chat {
			return OutcomeRelease, nil
		}
		lobby.HostMessage = message
		return OutcomeWrite, nil
	})
}

// broadcast queues text for every participant with the keyboard matching
// their seat.
func broadcast(s *Session, out *Outbox, text string) {
	for _, p := range s.Players {
		out.Text(p.ChatRef, text, menuFor(s, p.Id))
	}
}
