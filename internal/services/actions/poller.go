package actions

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

// DefaultBackoff is the retry ladder: floor, intermediate, ceiling.
var DefaultBackoff = []time.Duration{3 * time.Second, 5 * time.Second, 8 * time.Second}

// PollState is the observable state of a Poller.
type PollState struct {
	DeviceID     domain.DeviceID
	LastError    string
	IsPolling    bool
	LastPolledAt time.Time
}

// Fetcher lists the actions queued for a device.
type Fetcher interface {
	GetActions(ctx context.Context, deviceID domain.DeviceID) ([]domain.Action, error)
}

// Session reports whether the caller is signed in.
type Session interface {
	Authenticated() bool
}

// Config tunes a Poller.
type Config struct {
	// Backoff is the delay ladder; empty means DefaultBackoff.
	Backoff []time.Duration
	// OnState, if set, receives every state change. It must not call Stop.
	OnState func(PollState)
}

// Poller runs poll cycles on a timer. One cycle at most is in flight at any time.
type Poller struct {
	store   domain.SecretStore
	fetcher Fetcher
	handler domain.ActionHandler
	session Session
	ladder  []time.Duration
	onState func(PollState)
	log     zerolog.Logger

	inflight atomic.Bool
	cycles   sync.WaitGroup

	mu     sync.Mutex
	state  PollState
	rung   int
	gen    uint64
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Poller.
func New(
	st domain.SecretStore,
	fetcher Fetcher,
	handler domain.ActionHandler,
	session Session,
	cfg Config,
	log zerolog.Logger,
) *Poller {
	ladder := cfg.Backoff
	if len(ladder) == 0 {
		ladder = DefaultBackoff
	}
	return &Poller{
		store:   st,
		fetcher: fetcher,
		handler: handler,
		session: session,
		ladder:  append([]time.Duration(nil), ladder...),
		onState: cfg.OnState,
		log:     log.With().Str("component", "actions").Logger(),
	}
}

// Start arms the loop; the first cycle runs after the current delay. It needs
// a device id and a signed-in caller. The loop ends on Stop, when ctx is done,
// or when the caller is found signed out.
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.deviceID(); err != nil {
		return err
	}
	if !p.session.Authenticated() {
		return errors.Wrap(domain.ErrNotAuthenticated, "start poller")
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return nil
	}
	p.gen++
	gen := p.gen
	p.ctx, p.cancel = context.WithCancel(ctx)
	done := p.ctx.Done()
	p.armLocked(gen)
	p.mu.Unlock()

	go func() {
		<-done
		p.halt(gen)
	}()
	p.log.Info().Dur("delay", p.Delay()).Msg("poller started")
	return nil
}

// Stop cancels the pending cycle and waits for a running scheduled cycle to settle.
func (p *Poller) Stop() {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	p.halt(gen)
	p.cycles.Wait()
}

// Running reports whether the loop is armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// ForcePoll runs one cycle now without touching the schedule. It returns false
// without doing anything if a cycle is already in flight or the preconditions
// do not hold.
func (p *Poller) ForcePoll(ctx context.Context) bool {
	return p.runCycle(ctx)
}

// State returns a snapshot of the poll state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Delay is the delay the next scheduled cycle will wait.
func (p *Poller) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ladder[p.rung]
}

func (p *Poller) halt(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || p.cancel == nil {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.cancel()
	p.cancel, p.ctx = nil, nil
	p.log.Info().Msg("poller stopped")
}

// armLocked schedules the next cycle for generation gen.
func (p *Poller) armLocked(gen uint64) {
	p.timer = time.AfterFunc(p.ladder[p.rung], func() { p.tick(gen) })
}

func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.cancel == nil {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.cycles.Add(1)
	p.mu.Unlock()
	defer p.cycles.Done()

	if !p.session.Authenticated() {
		p.log.Info().Msg("signed out; stopping poller")
		p.halt(gen)
		return
	}
	p.runCycle(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.gen && p.cancel != nil {
		p.armLocked(gen)
	}
}

// runCycle fetches and dispatches once. It reports whether a cycle ran.
func (p *Poller) runCycle(ctx context.Context) bool {
	if !p.session.Authenticated() {
		return false
	}
	device, err := p.deviceID()
	if err != nil {
		p.log.Error().Err(err).Msg("device id unavailable")
		return false
	}
	if !p.inflight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inflight.Store(false)

	p.update(func(s *PollState) { s.IsPolling = true })

	failure := p.cycle(ctx, device)

	p.mu.Lock()
	if failure != nil {
		p.state.LastError = failure.Error()
		if p.rung < len(p.ladder)-1 {
			p.rung++
		}
	} else {
		p.rung = 0
	}
	p.state.IsPolling = false
	snap := p.state
	p.mu.Unlock()

	if failure != nil {
		p.log.Warn().Err(failure).Dur("next_delay", p.Delay()).Msg("poll cycle failed")
	}
	p.notify(snap)
	return true
}

// cycle returns the fetch error, or the last handler failure of the batch.
func (p *Poller) cycle(ctx context.Context, device domain.DeviceID) error {
	list, err := p.fetcher.GetActions(ctx, device)
	if err != nil {
		return err
	}
	p.update(func(s *PollState) {
		s.LastPolledAt = time.Now()
		s.LastError = ""
	})

	var last error
	for _, a := range list {
		if a.Status() != domain.ActionPending {
			continue
		}
		if err := a.Accept(ctx, p.handler); err != nil {
			last = errors.Wrapf(err, "%s action %s", a.Type(), a.ActionID())
			p.log.Error().Err(err).Str("action_id", a.ActionID().String()).Str("type", string(a.Type())).Msg("action failed")
		}
	}
	return last
}

func (p *Poller) deviceID() (domain.DeviceID, error) {
	p.mu.Lock()
	id := p.state.DeviceID
	p.mu.Unlock()
	if id != "" {
		return id, nil
	}
	id, err := p.store.GetOrCreateDeviceID()
	if err != nil {
		return "", errors.Wrap(err, "device id")
	}
	p.update(func(s *PollState) { s.DeviceID = id })
	return id, nil
}

func (p *Poller) update(fn func(*PollState)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.state
	p.mu.Unlock()
	p.notify(snap)
}

func (p *Poller) notify(s PollState) {
	if p.onState != nil {
		p.onState(s)
	}
}
