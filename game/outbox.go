package game

import (
	"context"
	"slices"
)

type noticeKind int

const (
	noticeText noticeKind = iota
	noticeImage
	noticeRoleCard
	noticeEdit
	noticeDelete
	noticeHostCard
)

type notice struct {
	kind     noticeKind
	chat     int64
	text     string
	menu     Menu
	image    string
	role     Role
	messages []int
	code     string
}

type effect struct {
	name string
	run  func(ctx context.Context) error
}

// Outbox collects what a critical section wants to tell the outside world.
// It is flushed only after the session has been committed.
type Outbox struct {
	notices []notice
	effects []effect
	aborts  []func()
}

func (o *Outbox) Text(chat int64, text string, menu Menu) {
	o.notices = append(o.notices, notice{kind: noticeText, chat: chat, text: text, menu: menu})
}

func (o *Outbox) Image(chat int64, image, caption string) {
	o.notices = append(o.notices, notice{kind: noticeImage, chat: chat, image: image, text: caption})
}

// RoleCard sends the picture of role, looked up at delivery time.
func (o *Outbox) RoleCard(chat int64, role Role, caption string, menu Menu) {
	o.notices = append(o.notices, notice{kind: noticeRoleCard, chat: chat, role: role, text: caption, menu: menu})
}

func (o *Outbox) Edit(chat int64, message int, text string) {
	if message == 0 {
		return
	}
	o.notices = append(o.notices, notice{kind: noticeEdit, chat: chat, messages: []int{message}, text: text})
}

func (o *Outbox) Delete(chat int64, messages ...int) {
	messages = slices.DeleteFunc(slices.Clone(messages), func(m int) bool { return m == 0 })
	if len(messages) == 0 {
		return
	}
	o.notices = append(o.notices, notice{kind: noticeDelete, chat: chat, messages: messages})
}

// HostCard sends the lobby roster to the host and remembers the message so
// later roster changes edit it in place.
func (o *Outbox) HostCard(code string, chat int64, text string) {
	o.notices = append(o.notices, notice{kind: noticeHostCard, code: code, chat: chat, text: text, menu: menuLobbyHost})
}

func (o *Outbox) After(name string, run func(ctx context.Context) error) {
	o.effects = append(o.effects, effect{name: name, run: run})
}

// OnAbort registers a rollback for work done inside the critical section that
// must not outlive a session change that was never committed.
func (o *Outbox) OnAbort(fn func()) {
	o.aborts = append(o.aborts, fn)
}
