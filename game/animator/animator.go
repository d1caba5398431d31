package animator

import (
	"context"
	"sync"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/service"
	"github.com/dmi-s/rongame/logger"
)

const (
	DefaultStepDelay     = 300 * time.Millisecond
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultMaxBlocked    = 20
)

// Service is the part of the game service the animator drives
type Service interface {
	StepRobot(ctx context.Context, sessionID string, robotID int) (*service.StepResult, error)
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
}

// Frame is one interpolated robot position between two cells
type Frame struct {
	RobotID  int             `json:"robot_id"`
	From     engine.Position `json:"from"`
	To       engine.Position `json:"to"`
	X        float32         `json:"x"`
	Y        float32         `json:"y"`
	Progress float32         `json:"progress"`
}

// Notifier receives animation output
type Notifier interface {
	BroadcastFrame(sessionID string, frame Frame)
	BroadcastStep(sessionID string, result *service.StepResult)
}

// Options tune the delay chains. Zero values take the defaults; a negative
// FrameInterval disables frames.
type Options struct {
	StepDelay     time.Duration
	FrameInterval time.Duration
	MaxBlocked    int
}

type chainKey struct {
	sessionID string
	robotID   int
}

type chain struct {
	cancel context.CancelFunc
}

// Animator runs one delay chain per moving robot
type Animator struct {
	svc      Service
	notifier Notifier
	opts     Options

	mu     sync.Mutex
	chains map[chainKey]*chain
	wg     sync.WaitGroup
}

// New creates an animator. notifier may be nil.
func New(svc Service, notifier Notifier, opts Options) *Animator {
	if opts.StepDelay <= 0 {
		opts.StepDelay = DefaultStepDelay
	}
	if opts.FrameInterval == 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.MaxBlocked <= 0 {
		opts.MaxBlocked = DefaultMaxBlocked
	}
	return &Animator{
		svc:      svc,
		notifier: notifier,
		opts:     opts,
		chains:   make(map[chainKey]*chain),
	}
}

// Start launches the delay chain for a robot unless one is already running.
// The chain lives until the path is walked, the game ends or ctx is done,
// so ctx should outlive the request that triggered it.
func (a *Animator) Start(ctx context.Context, sessionID string, robotID int) bool {
	key := chainKey{sessionID: service.SessionKey(sessionID), robotID: robotID}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, running := a.chains[key]; running {
		return false
	}

	chainCtx, cancel := context.WithCancel(ctx)
	c := &chain{cancel: cancel}
	a.chains[key] = c
	a.wg.Add(1)
	go a.run(chainCtx, key, c)
	return true
}

// Running reports whether a robot's chain is active
func (a *Animator) Running(sessionID string, robotID int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, running := a.chains[chainKey{sessionID: service.SessionKey(sessionID), robotID: robotID}]
	return running
}

// StopSession cancels every chain of a session
func (a *Animator) StopSession(sessionID string) {
	sessionKey := service.SessionKey(sessionID)
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, c := range a.chains {
		if key.sessionID == sessionKey {
			c.cancel()
		}
	}
}

// Stop cancels every chain and waits for them to exit
func (a *Animator) Stop() {
	a.mu.Lock()
	for _, c := range a.chains {
		c.cancel()
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Animator) finish(key chainKey, c *chain) {
	a.mu.Lock()
	if a.chains[key] == c {
		delete(a.chains, key)
	}
	a.mu.Unlock()
	c.cancel()
	a.wg.Done()
}

// retire unregisters the chain once the robot has nothing left to walk. A
// path extended in the meantime keeps the chain alive instead.
func (a *Animator) retire(ctx context.Context, key chainKey, c *chain) (engine.Position, engine.Position, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	from, next, ok := a.peek(ctx, key)
	if !ok && a.chains[key] == c {
		delete(a.chains, key)
	}
	return from, next, ok
}

func (a *Animator) run(ctx context.Context, key chainKey, c *chain) {
	defer a.finish(key, c)
	log := logger.Log.WithField("session", key.sessionID).WithField("robot", key.robotID)

	from, next, ok := a.peek(ctx, key)
	if !ok {
		return
	}

	blocked := 0
	for {
		if !a.wait(ctx, key.robotID, key.sessionID, from, next) {
			return
		}

		res, err := a.svc.StepRobot(ctx, key.sessionID, key.robotID)
		if err != nil {
			log.WithError(err).Debug("animation stopped")
			return
		}
		if a.notifier != nil {
			a.notifier.BroadcastStep(key.sessionID, res)
		}

		switch {
		case res.Moved:
			blocked = 0
		case res.Reason == engine.ReasonBlocked:
			blocked++
			if blocked >= a.opts.MaxBlocked {
				log.Warn("robot blocked, giving up")
				return
			}
		default:
			return
		}

		if res.GameOver || res.Restarted {
			return
		}
		if res.Remaining > 0 && len(res.Robot.Path) > 0 {
			from, next = res.Robot.Pos, res.Robot.Path[0]
			continue
		}
		if from, next, ok = a.retire(ctx, key, c); !ok {
			return
		}
	}
}

// peek reads the robot's position and next queued cell
func (a *Animator) peek(ctx context.Context, key chainKey) (engine.Position, engine.Position, bool) {
	state, err := a.svc.GetGameState(ctx, key.sessionID)
	if err != nil {
		return engine.Position{}, engine.Position{}, false
	}
	r := state.Robot(key.robotID)
	if r == nil || len(r.Path) == 0 {
		return engine.Position{}, engine.Position{}, false
	}
	return r.Pos, r.Path[0], true
}

// wait sleeps one step delay, emitting frames that slide the robot from
// from to next. It returns false when ctx is done.
func (a *Animator) wait(ctx context.Context, robotID int, sessionID string, from, next engine.Position) bool {
	delay := a.opts.StepDelay
	deadline := time.NewTimer(delay)
	defer deadline.Stop()

	var tick <-chan time.Time
	if a.notifier != nil && a.opts.FrameInterval > 0 && a.opts.FrameInterval < delay {
		ticker := time.NewTicker(a.opts.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	tw := gween.New(0, 1, float32(delay.Seconds()), ease.Linear)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return true
		case now := <-tick:
			progress, _ := tw.Update(float32(now.Sub(last).Seconds()))
			last = now
			a.notifier.BroadcastFrame(sessionID, interpolate(robotID, from, next, progress))
		}
	}
}

func interpolate(robotID int, from, to engine.Position, progress float32) Frame {
	if progress > 1 {
		progress = 1
	}
	return Frame{
		RobotID:  robotID,
		From:     from,
		To:       to,
		X:        float32(from.X) + float32(to.X-from.X)*progress,
		Y:        float32(from.Y) + float32(to.Y-from.Y)*progress,
		Progress: progress,
	}
}
