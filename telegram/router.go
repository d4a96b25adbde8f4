package telegram

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"dreambot/domain"
	"dreambot/game"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	lobbiesPerRow  = 5
	requestTimeout = 30 * time.Second
	// A limiter idle this long has refilled its bucket and can be dropped.
	limiterIdle = 10 * time.Minute
)

type GameService interface {
	CurrentSession(ctx context.Context, userId int64) (string, error)
	Handle(ctx context.Context, actor int64, action game.Action) error
}

type LobbyService interface {
	CreateLobby(ctx context.Context, creator game.Participant) (*game.Session, error)
	ListOpenLobbies(ctx context.Context) ([]string, error)
	CheckJoinable(ctx context.Context, code string) error
	JoinLobby(ctx context.Context, code, password string, joiner game.Participant) (*game.Session, error)
}

type UserRegistry interface {
	RegisterUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUserByTelegramId(ctx context.Context, telegramId int64) (domain.User, error)
	SetMainMenuMessage(ctx context.Context, telegramId int64, messageId int) error
	RulesImages(ctx context.Context) ([]string, error)
}

type JoinDrafts interface {
	SetJoinDraft(ctx context.Context, userId int64, code string) error
	JoinDraft(ctx context.Context, userId int64) (string, error)
	ClearJoinDraft(ctx context.Context, userId int64) error
}

type Sender interface {
	game.Messenger
	SendAlbum(ctx context.Context, chat int64, images []string) error
}

type RouterDeps struct {
	Games   GameService
	Lobbies LobbyService
	Users   UserRegistry
	Drafts  JoinDrafts
	Sender  Sender
	Admins  []int64
	Limit   rate.Limit
	Burst   int
	Logger  zerolog.Logger
}

// Router turns Telegram updates into lobby and game calls.
type Router struct {
	games   GameService
	lobbies LobbyService
	users   UserRegistry
	drafts  JoinDrafts
	out     Sender
	admins  []int64
	log     zerolog.Logger

	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	limiters  map[int64]*userLimiter
	lastSweep time.Time
	now       func() time.Time
}

type userLimiter struct {
	*rate.Limiter
	seen time.Time
}

func NewRouter(d RouterDeps) *Router {
	if d.Limit <= 0 {
		d.Limit = 1
	}
	if d.Burst <= 0 {
		d.Burst = 5
	}
	return &Router{
		games:    d.Games,
		lobbies:  d.Lobbies,
		users:    d.Users,
		drafts:   d.Drafts,
		out:      d.Sender,
		admins:   d.Admins,
		log:      d.Logger.With().Str("component", "telegram").Logger(),
		limit:    d.Limit,
		burst:    d.Burst,
		limiters: make(map[int64]*userLimiter),
		now:      time.Now,
	}
}

// Run handles updates until ctx is done or the channel closes, then waits
// for in-flight handlers.
func (r *Router) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Go(func() { r.HandleUpdate(ctx, update) })
		}
	}
}

func (r *Router) allow(userId int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= limiterIdle {
		for id, l := range r.limiters {
			if now.Sub(l.seen) >= limiterIdle {
				delete(r.limiters, id)
			}
		}
		r.lastSweep = now
	}

	l, ok := r.limiters[userId]
	if !ok {
		l = &userLimiter{Limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[userId] = l
	}
	l.seen = now
	return l.AllowN(now, 1)
}

func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !r.allow(msg.From.ID) {
		r.log.Debug().Int64("user", msg.From.ID).Msg("rate limited")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := r.handleMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Int64("user", msg.From.ID).Str("text", msg.Text).Msg("failed to handle message")
		r.reply(ctx, msg.Chat.ID, textSomethingWrong, nil)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		switch {
		case msg.Command() == "start":
			return r.start(ctx, msg)
		case msg.Command() == "ping" && slices.Contains(r.admins, msg.From.ID):
			r.reply(ctx, msg.Chat.ID, textPong, nil)
			return r.out.DeleteMessages(ctx, msg.Chat.ID, msg.MessageID)
		}
	}

	user, err := r.users.GetUserByTelegramId(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = r.register(ctx, msg.From)
	}
	if err != nil {
		return err
	}
	p := game.Participant{
		Id:          msg.From.ID,
		DisplayName: user.DisplayName(),
		UserRef:     user.Id,
		ChatRef:     msg.Chat.ID,
	}

	_, err = r.games.CurrentSession(ctx, msg.From.ID)
	switch {
	case err == nil:
		return r.inSession(ctx, msg)
	case !errors.Is(err, game.ErrNotInSession):
		return err
	}

	draft, err := r.drafts.JoinDraft(ctx, msg.From.ID)
	switch {
	case err == nil:
		return r.continueJoin(ctx, msg, user, p, draft)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	switch msg.Text {
	case game.ButtonCreateGame:
		if _, err := r.lobbies.CreateLobby(ctx, p); err != nil {
			return r.replyError(ctx, msg.Chat.ID, err)
		}
		return nil
	case game.ButtonJoinGame:
		return r.listLobbies(ctx, msg, user)
	case game.ButtonRules:
		images, err := r.users.RulesImages(ctx)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			r.reply(ctx, msg.Chat.ID, textRules, nil)
			return nil
		}
		return r.out.SendAlbum(ctx, msg.Chat.ID, images)
	case game.ButtonHelp:
		r.reply(ctx, msg.Chat.ID, textHelp, nil)
		return nil
	}
	return r.mainMenu(ctx, msg.Chat.ID, user, textMainMenu)
}

func (r *Router) register(ctx context.Context, from *tgbotapi.User) (domain.User, error) {
	return r.users.RegisterUser(ctx, domain.User{
		TelegramId: from.ID,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
		Username:   from.UserName,
	})
}

func (r *Router) start(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := r.register(ctx, msg.From)
	if err != nil {
		return err
	}
	if _, err := r.games.CurrentSession(ctx, msg.From.ID); err == nil {
		r.reply(ctx, msg.Chat.ID, textStillInGame, nil)
		return nil
	}
	return r.mainMenu(ctx, msg.Chat.ID, user, textWelcome)
}

// mainMenu sends the main menu and removes the previous one so the chat
// keeps a single copy.
func (r *Router) mainMenu(ctx context.Context, chat int64, user domain.User, text string) error {
	id, err := r.out.SendText(ctx, chat, text, game.MenuMain)
	if err != nil {
		return err
	}
	if user.LastMainMenuId != 0 {
		if err := r.out.DeleteMessages(ctx, chat, user.LastMainMenuId); err != nil {
			r.log.Debug().Err(err).Msg("old main menu already gone")
		}
	}
	return r.users.SetMainMenuMessage(ctx, user.TelegramId, id)
}

func (r *Router) inSession(ctx context.Context, msg *tgbotapi.Message) error {
	err := r.games.Handle(ctx, msg.From.ID, game.ParseAction(msg.Text))
	if errors.Is(err, game.ErrUnauthorized) {
		return r.out.DeleteMessages(ctx, msg.Chat.ID, msg.MessageID)
	}
	if err != nil {
		return r.replyError(ctx, msg.Chat.ID, err)
	}
	return nil
}

func (r *Router) listLobbies(ctx context.Context, msg *tgbotapi.Message, user domain.User) error {
	codes, err := r.lobbies.ListOpenLobbies(ctx)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return r.mainMenu(ctx, msg.Chat.ID, user, textNoLobbies)
	}
	if err := r.drafts.SetJoinDraft(ctx, msg.From.ID, ""); err != nil {
		return err
	}
	r.reply(ctx, msg.Chat.ID, textChooseLobby, lobbiesMenu(codes))
	return nil
}

func lobbiesMenu(codes []string) game.Menu {
	menu := game.Menu{}
	for row := range slices.Chunk(codes, lobbiesPerRow) {
		menu = append(menu, row)
	}
	return append(menu, []string{game.ButtonMainMenu})
}

// continueJoin drives the two step join conversation: pick a lobby, then
// type its password. An empty draft means no lobby is picked yet.
func (r *Router) continueJoin(ctx context.Context, msg *tgbotapi.Message, user domain.User, p game.Participant, draft string) error {
	chat := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if text == game.ButtonMainMenu || text == game.ButtonJoinGame {
		if err := r.drafts.ClearJoinDraft(ctx, p.Id); err != nil {
			return err
		}
		if text == game.ButtonJoinGame {
			return r.listLobbies(ctx, msg, user)
		}
		return r.mainMenu(ctx, chat, user, textMainMenu)
	}

	if draft == "" {
		if err := r.lobbies.CheckJoinable(ctx, text); err != nil {
			return r.replyError(ctx, chat, err)
		}
		if err := r.drafts.SetJoinDraft(ctx, p.Id, text); err != nil {
			return err
		}
		r.reply(ctx, chat, textEnterPassword, game.Menu{{game.ButtonMainMenu}})
		return nil
	}

	if err := r.out.DeleteMessages(ctx, chat, msg.MessageID); err != nil {
		r.log.Debug().Err(err).Msg("could not delete password message")
	}

	_, err := r.lobbies.JoinLobby(ctx, draft, text, p)
	if errors.Is(err, game.ErrWrongPassword) {
		return r.replyError(ctx, chat, err)
	}
	if clearErr := r.drafts.ClearJoinDraft(ctx, p.Id); clearErr != nil {
		return clearErr
	}
	if err != nil {
		if replyErr := r.replyError(ctx, chat, err); replyErr != nil {
			return replyErr
		}
		return r.mainMenu(ctx, chat, user, textMainMenu)
	}
	return nil
}

func (r *Router) reply(ctx context.Context, chat int64, text string, menu game.Menu) {
	if _, err := r.out.SendText(ctx, chat, text, menu); err != nil {
		r.log.Warn().Err(err).Int64("chat", chat).Msg("failed to reply")
	}
}

// replyError tells the user about expected failures and passes anything
// else up.
func (r *Router) replyError(ctx context.Context, chat int64, err error) error {
	for _, ue := range userErrors {
		if errors.Is(err, ue.err) {
			r.reply(ctx, chat, ue.text, nil)
			return nil
		}
	}
	return err
}
