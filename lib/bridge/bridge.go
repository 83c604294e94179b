// Package bridge installs the page agent into a host document and turns the
// fire-and-forget realm bus into a request/response intent API: correlation
// ids, one-shot response subscriptions, timeouts, and bounded readiness
// polling.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundshift/soundshift/lib/agentwire"
	"github.com/soundshift/soundshift/lib/dom"
	"github.com/soundshift/soundshift/lib/pageagent"
	"github.com/soundshift/soundshift/lib/realmbus"
)

// State is the readiness state machine position.
type State string

const (
	StateUnchecked State = "unchecked"
	StatePolling   State = "polling"
	StateReady     State = "ready"
	StateFailed    State = "failed"
)

var (
	// ErrNotReady means the page agent never answered within the readiness
	// bound.
	ErrNotReady = errors.New("page agent not ready")
	// ErrNoMediaElement means the agent is reachable but no qualifying media
	// element appeared within the wait bound. Recoverable by user action.
	ErrNoMediaElement = errors.New("no media element")
	// ErrLostConnection means a previously ready session stopped answering.
	ErrLostConnection = errors.New("lost connection to page agent")
	// errCallTimeout is the raw per-call timeout; callers map it onto the
	// taxonomy above.
	errCallTimeout = errors.New("cross-realm call timed out")
)

// Store persists the last-used settings. Persistence is best-effort and
// optimistic: values are written on send, not on confirmed receipt.
type Store interface {
	PutSpeed(ctx context.Context, speed float64) error
}

// Config bounds the polling loops and the per-call timeout. Zero values
// fall back to the reference behavior.
type Config struct {
	CallTimeout         time.Duration
	ReadyPollInterval   time.Duration
	ReadyPollAttempts   int
	ElementPollInterval time.Duration
	ElementPollAttempts int
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = time.Second
	}
	if c.ReadyPollInterval <= 0 {
		c.ReadyPollInterval = 200 * time.Millisecond
	}
	if c.ReadyPollAttempts <= 0 {
		c.ReadyPollAttempts = 10
	}
	if c.ElementPollInterval <= 0 {
		c.ElementPollInterval = time.Second
	}
	if c.ElementPollAttempts <= 0 {
		c.ElementPollAttempts = 30
	}
	return c
}

// Bridge drives the page agent across the realm boundary. It holds only a
// mirrored copy of the settings, updated optimistically on send.
type Bridge struct {
	log   *slog.Logger
	bus   *realmbus.Bus
	cfg   Config
	store Store // may be nil

	mu       sync.Mutex
	state    State
	settings pageagent.Settings
}

func New(bus *realmbus.Bus, store Store, cfg Config, log *slog.Logger) *Bridge {
	return &Bridge{
		log:      log,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		store:    store,
		state:    StateUnchecked,
		settings: pageagent.DefaultSettings(),
	}
}

// Inject installs the page agent into doc ahead of the host page's own
// scripts: the loader element goes in as the very first head child, the
// agent's construction hook installs, and the loader is removed again.
// Failing to remove the loader is cosmetic, not an error.
func (b *Bridge) Inject(doc *dom.Document) *pageagent.Agent {
	loader := dom.NewBasicElement("script")
	doc.InsertHeadFirst(loader)
	agent := pageagent.Install(doc, b.bus, b.log)
	if !doc.RemoveFromHead(loader) {
		b.log.Debug("loader element already removed")
	}
	return agent
}

// State returns the readiness state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RestoreSettings seeds the mirror from persisted state, read once at
// startup before any intent is forwarded.
func (b *Bridge) RestoreSettings(s pageagent.Settings) {
	b.mu.Lock()
	b.settings = s
	b.mu.Unlock()
}

// Settings returns the bridge's mirrored settings copy.
func (b *Bridge) Settings() pageagent.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Init walks the readiness state machine: poll checkReady within its bound,
// then wait for a qualifying media element within its own, longer bound
// (the host page may need the user to press play before one exists).
// Exhausting either bound transitions to Failed; Init can always be retried
// from scratch.
func (b *Bridge) Init(ctx context.Context) error {
	b.setState(StatePolling)

	err := pollUntil(ctx, b.cfg.ReadyPollInterval, b.cfg.ReadyPollAttempts, func(ctx context.Context) (bool, error) {
		resp, err := b.call(ctx, agentwire.CmdCheckReady, nil)
		if err != nil {
			if errors.Is(err, errCallTimeout) {
				return false, nil // agent not loaded yet, keep polling
			}
			return false, err
		}
		return resp.Ready != nil && *resp.Ready, nil
	})
	if err != nil {
		b.setState(StateFailed)
		if errors.Is(err, ErrPollExhausted) {
			return ErrNotReady
		}
		return fmt.Errorf("readiness poll: %w", err)
	}

	err = pollUntil(ctx, b.cfg.ElementPollInterval, b.cfg.ElementPollAttempts, func(ctx context.Context) (bool, error) {
		resp, err := b.call(ctx, agentwire.CmdCheckMediaElement, nil)
		if err != nil {
			if errors.Is(err, errCallTimeout) {
				return false, nil
			}
			return false, err
		}
		return resp.HasMediaElement != nil && *resp.HasMediaElement, nil
	})
	if err != nil {
		b.setState(StateFailed)
		if errors.Is(err, ErrPollExhausted) {
			return ErrNoMediaElement
		}
		return fmt.Errorf("element poll: %w", err)
	}

	b.setState(StateReady)
	return nil
}

// SetSpeed forwards the intent as a single command (no retry), mirroring
// the value locally and persisting it best-effort regardless of whether the
// page realm acknowledged.
func (b *Bridge) SetSpeed(ctx context.Context, speed float64) error {
	b.mu.Lock()
	b.settings.Speed = speed
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.PutSpeed(ctx, speed); err != nil {
			b.log.Warn("failed to persist speed", "err", err)
		}
	}

	return b.forward(ctx, agentwire.CmdSetSpeed, speed)
}

// SetPreservesPitch forwards the coarse pitch-preservation flag.
func (b *Bridge) SetPreservesPitch(ctx context.Context, preserve bool) error {
	b.mu.Lock()
	b.settings.PreservesPitch = preserve
	b.mu.Unlock()

	return b.forward(ctx, agentwire.CmdSetPreservesPitch, preserve)
}

func (b *Bridge) forward(ctx context.Context, cmd string, value any) error {
	resp, err := b.call(ctx, cmd, value)
	if err != nil {
		if errors.Is(err, errCallTimeout) {
			// Detected lazily: a ready session that stops answering has lost
			// its page.
			if b.State() == StateReady {
				b.setState(StateFailed)
			}
			return fmt.Errorf("%s: %w", cmd, ErrLostConnection)
		}
		return err
	}
	if resp.Success == nil || !*resp.Success {
		return fmt.Errorf("%s rejected by page agent: %s", cmd, resp.Error)
	}
	return nil
}

// call performs one cross-realm request/response exchange: a fresh
// correlation id, a one-shot filtered subscription, a command broadcast,
// then the first of a matching response, the configured timeout, or ctx
// cancellation. The subscription is torn down on every path; a response
// arriving after that fires with no listener and is dropped.
func (b *Bridge) call(ctx context.Context, command string, value any) (agentwire.Response, error) {
	id := uuid.NewString()

	respCh := make(chan agentwire.Response, 1)
	cancel := b.bus.Subscribe(agentwire.TopicResponse, func(data json.RawMessage) {
		var resp agentwire.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		if resp.ID != id {
			return
		}
		select {
		case respCh <- resp:
		default:
		}
	})
	defer cancel()

	msg := agentwire.Command{ID: id, Command: command}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return agentwire.Response{}, fmt.Errorf("marshal %s value: %w", command, err)
		}
		msg.Value = raw
	}

	if err := b.bus.Publish(agentwire.TopicCommand, msg); err != nil {
		return agentwire.Response{}, fmt.Errorf("broadcast %s: %w", command, err)
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		return agentwire.Response{}, ctx.Err()
	case <-time.After(b.cfg.CallTimeout):
		return agentwire.Response{}, fmt.Errorf("%s: %w", command, errCallTimeout)
	}
}
