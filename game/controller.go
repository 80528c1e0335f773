/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game implements the hitline round lifecycle.
//
// A Controller owns the undrawn pool, the timeline, the single card in hand and
// the lives/points counters. Each round draws a card, starts playback and waits
// for the player to place it. A correct placement scores a point and inserts the
// card; a wrong one costs a life and discards it. The game ends when the pool
// runs dry (completion) or when lives reach zero (loss).
//
// A Controller is not safe for concurrent use. Callers that share one across
// goroutines must serialize every call, including the continuations handed to
// the Scheduler.
package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultLives       = 3
	DefaultRevealDelay = 1500 * time.Millisecond
)

type Phase int

const (
	Idle Phase = iota
	Presenting
	AwaitingPlacement
	Resolving
	RoundComplete
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Presenting:
		return "presenting"
	case AwaitingPlacement:
		return "awaiting_placement"
	case Resolving:
		return "resolving"
	case RoundComplete:
		return "round_complete"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome describes how a finished game ended.
type Outcome int

const (
	Undecided Outcome = iota
	Completed         // every song was drawn
	Lost              // lives ran out
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Lost:
		return "lost"
	default:
		return "undecided"
	}
}

// Player drives media playback for the card in hand.
type Player interface {
	Load(mediaID string, startOffset int)
	Play()
	Stop()
	IsPlaying() bool
}

// Presenter is told about every externally visible transition.
// Round.Song carries the real year; presenters must hide it until the
// matching Result arrives.
type Presenter interface {
	RoundStarted(r Round)
	PlacementResolved(r Result)
	GameEnded(s Summary)
}

// Scheduler runs fn once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type SchedulerFunc func(d time.Duration, fn func())

func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) {
	f(d, fn)
}

type Round struct {
	Number int
	Song   Song
}

// Result is the resolution of a single placement. Song is always revealed.
type Result struct {
	Round   int
	Song    Song
	Index   int
	Correct bool
	Lives   int
	Points  int
	Outcome Outcome
}

type Summary struct {
	Outcome Outcome
	Points  int
	Lives   int
	Placed  int
	Rounds  int
}

type Options struct {
	Lives       int
	RevealDelay time.Duration

	// IntN returns a uniform value in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int

	Player    Player
	Presenter Presenter
	Scheduler Scheduler
}

type Controller struct {
	catalog []Song

	lives       int
	revealDelay time.Duration
	intN        func(int) int
	player      Player
	presenter   Presenter
	scheduler   Scheduler

	pool      []Song
	timeline  []Song
	hand      *Song
	discarded []Song

	points  int
	round   int
	phase   Phase
	outcome Outcome
	summary Summary
}

// New returns a controller over a private copy of songs. Zero-valued options
// fall back to three lives, a 1.5s reveal delay, time.AfterFunc and silent
// player/presenter implementations.
func New(songs []Song, opts Options) *Controller {
	c := &Controller{
		catalog:     slices.Clone(songs),
		lives:       opts.Lives,
		revealDelay: opts.RevealDelay,
		intN:        opts.IntN,
		player:      opts.Player,
		presenter:   opts.Presenter,
		scheduler:   opts.Scheduler,
	}

	if c.lives <= 0 {
		c.lives = DefaultLives
	}
	if c.revealDelay <= 0 {
		c.revealDelay = DefaultRevealDelay
	}
	if c.intN == nil {
		c.intN = rand.IntN
	}
	if c.player == nil {
		c.player = nopPlayer{}
	}
	if c.presenter == nil {
		c.presenter = nopPresenter{}
	}
	if c.scheduler == nil {
		c.scheduler = SchedulerFunc(func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		})
	}

	return c
}

// StartGame fills the pool, seeds the timeline with one revealed card and
// draws the first round.
func (c *Controller) StartGame() error {
	switch c.phase {
	case Idle:
	case GameOver:
		return ErrGameOver
	default:
		return ErrAlreadyStarted
	}

	if len(c.catalog) == 0 {
		return ErrEmptyCatalog
	}

	c.pool = slices.Clone(c.catalog)
	c.timeline = []Song{c.take()}

	c.drawNextRound()

	return nil
}

// Replay restarts playback of the card in hand from its offset, unless it is
// already playing or there is no card in hand.
func (c *Controller) Replay() error {
	switch c.phase {
	case Idle:
		return ErrNotStarted
	case GameOver:
		return ErrGameOver
	}

	if c.hand == nil || c.player.IsPlaying() {
		return nil
	}

	c.player.Load(c.hand.ID, c.hand.Offset)
	c.player.Play()

	return nil
}

// ResolvePlacement checks the card in hand against the timeline position
// index, where 0 inserts before the first card and len(Timeline()) appends.
// A rejected request leaves all state untouched.
func (c *Controller) ResolvePlacement(index int) (Result, error) {
	switch c.phase {
	case Idle:
		return Result{}, ErrNotStarted
	case GameOver:
		return Result{}, ErrGameOver
	case AwaitingPlacement:
	default:
		return Result{}, fmt.Errorf("%w: no card awaiting placement", ErrInvalidPlacement)
	}

	if c.hand == nil {
		return Result{}, fmt.Errorf("%w: no card awaiting placement", ErrInvalidPlacement)
	}

	if index < 0 || index > len(c.timeline) {
		return Result{}, fmt.Errorf("%w: index %d outside [0, %d]", ErrInvalidPlacement, index, len(c.timeline))
	}

	c.phase = Resolving
	c.player.Stop()

	song := *c.hand
	c.hand = nil

	prev, next := Neighbors(c.Years(), index)

	res := Result{
		Round:   c.round,
		Song:    song,
		Index:   index,
		Correct: IsValidPlacement(song.Year, prev, next),
	}

	if res.Correct {
		c.points++
		c.timeline = slices.Insert(c.timeline, index, song)
		c.phase = RoundComplete

		round := c.round
		c.scheduler.AfterFunc(c.revealDelay, func() {
			c.advance(round)
		})
	} else {
		c.lives--
		c.discarded = append(c.discarded, song)
	}

	res.Lives = c.lives
	res.Points = c.points

	c.presenter.PlacementResolved(res)

	if !res.Correct {
		if c.lives <= 0 {
			c.gameOver(Lost)
		} else {
			c.drawNextRound()
		}
	}

	res.Outcome = c.outcome

	return res, nil
}

// advance is the delayed continuation after a correct placement. It ignores
// continuations belonging to an earlier round.
func (c *Controller) advance(round int) {
	if c.phase != RoundComplete || c.round != round {
		return
	}

	c.drawNextRound()
}

func (c *Controller) drawNextRound() {
	if len(c.pool) == 0 {
		c.gameOver(Completed)

		return
	}

	song := c.take()
	c.round++
	c.hand = &song
	c.phase = Presenting

	c.presenter.RoundStarted(Round{Number: c.round, Song: song})

	c.player.Load(song.ID, song.Offset)
	c.player.Play()

	c.phase = AwaitingPlacement
}

func (c *Controller) gameOver(outcome Outcome) {
	c.player.Stop()

	c.hand = nil
	c.phase = GameOver
	c.outcome = outcome
	c.summary = Summary{
		Outcome: outcome,
		Points:  c.points,
		Lives:   c.lives,
		Placed:  len(c.timeline),
		Rounds:  c.round,
	}

	c.presenter.GameEnded(c.summary)
}

// take removes one uniformly chosen song from the pool.
func (c *Controller) take() Song {
	i := c.intN(len(c.pool))
	song := c.pool[i]
	c.pool = slices.Delete(c.pool, i, i+1)

	return song
}

func (c *Controller) Phase() Phase {
	return c.phase
}

func (c *Controller) Lives() int {
	return c.lives
}

func (c *Controller) Points() int {
	return c.points
}

func (c *Controller) Round() int {
	return c.round
}

func (c *Controller) Remaining() int {
	return len(c.pool)
}

func (c *Controller) Outcome() Outcome {
	return c.outcome
}

// Summary returns the final tally once the game is over.
func (c *Controller) Summary() (Summary, bool) {
	return c.summary, c.phase == GameOver
}

func (c *Controller) Hand() (Song, bool) {
	if c.hand == nil {
		return Song{}, false
	}

	return *c.hand, true
}

func (c *Controller) Timeline() []Song {
	return slices.Clone(c.timeline)
}

func (c *Controller) Discarded() []Song {
	return slices.Clone(c.discarded)
}

func (c *Controller) Pool() []Song {
	return slices.Clone(c.pool)
}

func (c *Controller) Years() []int {
	return lo.Map(c.timeline, func(s Song, _ int) int {
		return s.Year
	})
}

type nopPlayer struct{}

func (nopPlayer) Load(string, int) {}
func (nopPlayer) Play()            {}
func (nopPlayer) Stop()            {}
func (nopPlayer) IsPlaying() bool  { return false }

type nopPresenter struct{}

func (nopPresenter) RoundStarted(Round)       {}
func (nopPresenter) PlacementResolved(Result) {}
func (nopPresenter) GameEnded(Summary)        {}
