package game

import "time"

const (
	PlayersMin = 4
	PlayersMax = 10

	codeDigits      = 4
	maxCodeAttempts = 100
)

type Params struct {
	RoundDuration  time.Duration
	AnswerCooldown time.Duration
	LockTTL        time.Duration
	LockPoll       time.Duration
	LockWait       time.Duration
}

func DefaultParams() Params {
	return Params{
		RoundDuration:  2 * time.Minute,
		AnswerCooldown: 5 * time.Second,
		LockTTL:        time.Second,
		LockPoll:       50 * time.Millisecond,
		LockWait:       10 * time.Second,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.RoundDuration <= 0 {
		p.RoundDuration = d.RoundDuration
	}
	if p.AnswerCooldown <= 0 {
		p.AnswerCooldown = d.AnswerCooldown
	}
	if p.LockTTL <= 0 {
		p.LockTTL = d.LockTTL
	}
	if p.LockPoll <= 0 {
		p.LockPoll = d.LockPoll
	}
	if p.LockWait <= 0 {
		p.LockWait = d.LockWait
	}
	return p
}
