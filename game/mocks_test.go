package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"dreambot/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- SessionStore, LobbyRegistry, PlayerIndex ---

type memoryStore struct {
	mu            sync.Mutex
	sessions      map[string][]byte
	locks         map[string]bool
	open          map[string]bool
	players       map[int64]string
	saveErr       error
	codesAllTaken bool
	// lookupDelay stretches pointer reads to mimic a network round trip.
	lookupDelay time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]bool),
		open:     make(map[string]bool),
		players:  make(map[int64]string),
	}
}

func (m *memoryStore) Lock(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[code] {
		return false, nil
	}
	m.locks[code] = true
	return true, nil
}

func (m *memoryStore) Unlock(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, code)
	return nil
}

func (m *memoryStore) Load(ctx context.Context, code string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.sessions[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return blob, nil
}

func (m *memoryStore) Save(ctx context.Context, code string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[code] = blob
	return nil
}

func (m *memoryStore) Insert(ctx context.Context, code string, blob []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[code]; ok || m.codesAllTaken {
		return false, nil
	}
	m.sessions[code] = blob
	return true, nil
}

func (m *memoryStore) Remove(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, code)
	delete(m.locks, code)
	return nil
}

func (m *memoryStore) AddOpen(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[code] = true
	return nil
}

func (m *memoryStore) RemoveOpen(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, code)
	return nil
}

func (m *memoryStore) ListOpen(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.open))
	for code := range m.open {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes, nil
}

func (m *memoryStore) ClaimPlayerSession(ctx context.Context, userId int64, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[userId]; ok {
		return false, nil
	}
	m.players[userId] = code
	return true, nil
}

func (m *memoryStore) PlayerSession(ctx context.Context, userId int64) (string, error) {
	time.Sleep(m.lookupDelay)
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.players[userId]
	if !ok {
		return "", domain.ErrNotFound
	}
	return code, nil
}

func (m *memoryStore) ClearPlayerSession(ctx context.Context, userId int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, userId)
	return nil
}

func (m *memoryStore) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.sessions))
	for code := range m.sessions {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

func (m *memoryStore) locked(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[code]
}

func (m *memoryStore) exists(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[code]
	return ok
}

func (m *memoryStore) session(t *testing.T, code string) *Session {
	t.Helper()
	m.mu.Lock()
	blob, ok := m.sessions[code]
	m.mu.Unlock()
	require.True(t, ok, "session %s does not exist", code)

	s := &Session{}
	require.NoError(t, json.Unmarshal(blob, s))
	return s
}

// --- Messenger ---

type sentMessage struct {
	chat  int64
	text  string
	menu  Menu
	image string
}

type recordingMessenger struct {
	mu      sync.Mutex
	next    int
	sent    []sentMessage
	edits   []sentMessage
	deleted []int
}

func (m *recordingMessenger) SendText(ctx context.Context, chat int64, text string, menu Menu) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.sent = append(m.sent, sentMessage{chat: chat, text: text, menu: menu})
	return m.next, nil
}

func (m *recordingMessenger) SendImage(ctx context.Context, chat int64, image string, caption string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.sent = append(m.sent, sentMessage{chat: chat, text: caption, image: image})
	return m.next, nil
}

func (m *recordingMessenger) EditText(ctx context.Context, chat int64, message int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentMessage{chat: chat, text: text})
	return nil
}

func (m *recordingMessenger) DeleteMessages(ctx context.Context, chat int64, messages ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messages...)
	return nil
}

func (m *recordingMessenger) to(chat int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.chat == chat {
			out = append(out, s)
		}
	}
	return out
}

func (m *recordingMessenger) lastMenu(chat int64) Menu {
	msgs := m.to(chat)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].menu != nil {
			return msgs[i].menu
		}
	}
	return nil
}

func (m *recordingMessenger) images(chat int64) []string {
	var out []string
	for _, s := range m.to(chat) {
		if s.image != "" {
			out = append(out, s.image)
		}
	}
	return out
}

// --- Scheduler ---

type fakeScheduler struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]func(ctx context.Context, job uuid.UUID)
	cancelled []uuid.UUID
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[uuid.UUID]func(ctx context.Context, job uuid.UUID))}
}

func (f *fakeScheduler) ScheduleOnce(delay time.Duration, task func(ctx context.Context, job uuid.UUID)) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.tasks[id] = task
	return id, nil
}

func (f *fakeScheduler) Cancel(job uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, job)
	f.cancelled = append(f.cancelled, job)
	return nil
}

func (f *fakeScheduler) fire(job uuid.UUID) {
	f.mu.Lock()
	task, ok := f.tasks[job]
	delete(f.tasks, job)
	f.mu.Unlock()
	if ok {
		task(context.Background(), job)
	}
}

func (f *fakeScheduler) pending() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeScheduler) wasCancelled(job uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.cancelled, job)
}

// --- StatsRecorder ---

type MockStatsRecorder struct {
	mock.Mock
}

func (m *MockStatsRecorder) IncrementUserStatistic(ctx context.Context, userRef int64, deltas map[string]int) error {
	args := m.Called(ctx, userRef, deltas)
	return args.Error(0)
}

func (m *MockStatsRecorder) IncrementUserAchievements(ctx context.Context, userRef int64, deltas map[string]int) error {
	args := m.Called(ctx, userRef, deltas)
	return args.Error(0)
}

func (m *MockStatsRecorder) TouchLastGame(ctx context.Context, userRefs []int64, at time.Time) error {
	args := m.Called(ctx, userRefs, at)
	return args.Error(0)
}

// --- Assets ---

type MockAssets struct {
	mock.Mock
}

func (m *MockAssets) DrawWordDeck(ctx context.Context) ([]domain.Card, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockAssets) RoleImage(ctx context.Context, role string) (string, error) {
	args := m.Called(ctx, role)
	return args.String(0), args.Error(1)
}

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- harness ---

var testDeck = []domain.Card{
	{FileId: "card-moon", Word: "moon"},
	{FileId: "card-owl", Word: "owl"},
	{FileId: "card-river", Word: "river"},
	{FileId: "card-bridge", Word: "bridge"},
	{FileId: "card-lamp", Word: "lamp"},
}

type harness struct {
	svc    *Service
	store  *memoryStore
	msgr   *recordingMessenger
	sched  *fakeScheduler
	stats  *MockStatsRecorder
	assets *MockAssets
	clock  *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newMemoryStore(),
		msgr:   &recordingMessenger{},
		sched:  newFakeScheduler(),
		stats:  &MockStatsRecorder{},
		assets: &MockAssets{},
		clock:  &fakeClock{now: time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)},
	}
	h.stats.On("IncrementUserStatistic", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	h.stats.On("IncrementUserAchievements", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	h.stats.On("TouchLastGame", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	h.assets.On("DrawWordDeck", mock.Anything).Return(slices.Clone(testDeck), nil).Maybe()
	h.assets.On("RoleImage", mock.Anything, mock.Anything).Return("role-image", nil).Maybe()

	h.svc = NewService(Deps{
		Store:     h.store,
		Lobbies:   h.store,
		Players:   h.store,
		Messenger: h.msgr,
		Assets:    h.assets,
		Stats:     h.stats,
		Scheduler: h.sched,
		Params: Params{
			RoundDuration:  2 * time.Minute,
			AnswerCooldown: 5 * time.Second,
			LockTTL:        time.Second,
			LockPoll:       time.Millisecond,
			LockWait:       time.Second,
		},
		Logger: zerolog.Nop(),
		Rand:   rand.New(rand.NewPCG(7, 11)),
		Now:    h.clock.Now,
	})
	return h
}

func participant(id int64) Participant {
	return Participant{Id: id, DisplayName: fmt.Sprintf("player-%d", id), UserRef: id * 10, ChatRef: id * 100}
}

// lobby creates a lobby hosted by player 1 and joins players 2..n.
func (h *harness) lobby(t *testing.T, n int) string {
	t.Helper()
	ctx := context.Background()
	s, err := h.svc.Lobbies.CreateLobby(ctx, participant(1))
	require.NoError(t, err)
	for id := int64(2); id <= int64(n); id++ {
		_, err := h.svc.Lobbies.JoinLobby(ctx, s.Code, s.Password, participant(id))
		require.NoError(t, err)
	}
	return s.Code
}

func (h *harness) started(t *testing.T, n int) string {
	t.Helper()
	code := h.lobby(t, n)
	require.NoError(t, h.svc.Handle(context.Background(), 1, Action{Kind: ActionStartGame}))
	return code
}

func (h *harness) session(t *testing.T, code string) *Session {
	t.Helper()
	require.False(t, h.store.locked(code), "session %s left locked", code)
	return h.store.session(t, code)
}

func (h *harness) game(t *testing.T, code string) (*Session, *GameState) {
	t.Helper()
	s := h.session(t, code)
	g, ok := s.Game()
	require.True(t, ok)
	return s, g
}

func (h *harness) do(t *testing.T, actor int64, kind ActionKind) {
	t.Helper()
	require.NoError(t, h.svc.Handle(context.Background(), actor, Action{Kind: kind}))
}

func (h *harness) reply(t *testing.T, actor int64, text string) {
	t.Helper()
	require.NoError(t, h.svc.Handle(context.Background(), actor, ParseAction(text)))
}
