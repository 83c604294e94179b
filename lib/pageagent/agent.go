// Package pageagent owns the only mutable source of truth for playback
// settings inside the page realm and guarantees those settings survive the
// host page's own attempts to overwrite them.
package pageagent

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/soundshift/soundshift/lib/agentwire"
	"github.com/soundshift/soundshift/lib/dom"
	"github.com/soundshift/soundshift/lib/realmbus"
)

// Settings is the single global playback configuration the agent enforces.
type Settings struct {
	Speed          float64 `json:"speed"`
	PreservesPitch bool    `json:"preservesPitch"`
}

func DefaultSettings() Settings {
	return Settings{Speed: 1.0, PreservesPitch: true}
}

// Agent captures media elements the host page creates, arbitrates writes to
// their playback rate, and answers bridge commands over the realm bus.
type Agent struct {
	log *slog.Logger
	bus *realmbus.Bus
	doc *dom.Document

	mu       sync.Mutex
	settings Settings

	registry *Registry

	cancelCmd     func()
	cancelCreated func()
}

// Install hooks the document's element construction, subscribes the command
// responder, and returns the agent. Readiness is implied by reachability:
// by the time a command can be delivered, the hook is already in place.
func Install(doc *dom.Document, bus *realmbus.Bus, log *slog.Logger) *Agent {
	a := &Agent{
		log:      log,
		bus:      bus,
		doc:      doc,
		settings: DefaultSettings(),
		registry: NewRegistry(),
	}
	doc.SetCreateHook(a.createHook)
	a.cancelCmd = bus.Subscribe(agentwire.TopicCommand, a.handleCommand)
	// The agent listens to its own creation notifications so settings
	// application lands one dispatch turn after construction, letting the
	// host page's setup code run first.
	a.cancelCreated = bus.Subscribe(agentwire.TopicMediaCreated, a.handleMediaCreated)
	return a
}

// Uninstall detaches the responder subscriptions. The construction hook
// stays; captured elements keep their facades.
func (a *Agent) Uninstall() {
	if a.cancelCmd != nil {
		a.cancelCmd()
	}
	if a.cancelCreated != nil {
		a.cancelCreated()
	}
}

// Settings returns a copy of the current playback settings.
func (a *Agent) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Registry exposes the captured-element registry.
func (a *Agent) Registry() *Registry {
	return a.registry
}

// createHook wraps the document's element-construction entry point. The
// native construction always happens; media elements additionally get
// registered, wrapped in a rate-guarding facade, and announced on the bus.
func (a *Agent) createHook(tag string, native dom.Element) dom.Element {
	kind, ok := dom.IsMediaKind(tag)
	if !ok {
		return native
	}
	me, ok := native.(dom.MediaElement)
	if !ok {
		return native
	}

	guarded := &guardedElement{native: me, agent: a}
	reg := a.registry.Add(guarded, me)

	if err := a.bus.Publish(agentwire.TopicMediaCreated, agentwire.MediaCreated{
		ElementID: reg.ID,
		Kind:      string(kind),
	}); err != nil {
		a.log.Warn("failed to announce media element", "err", err)
	}
	return guarded
}

func (a *Agent) handleMediaCreated(data json.RawMessage) {
	var msg agentwire.MediaCreated
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	reg := a.registry.ByID(msg.ElementID)
	if reg == nil {
		return
	}
	a.applySettings(reg)
}

// applySettings pushes the current settings onto one element through the
// system write path.
func (a *Agent) applySettings(reg *Registered) {
	a.mu.Lock()
	settings := a.settings
	a.mu.Unlock()
	a.systemWrite(reg, settings.Speed)
	reg.native.SetPreservesPitch(settings.PreservesPitch)
}

// systemWrite is the SystemWrite arm of the rate-write union: a value
// authored by the agent itself, applied through the original underlying
// setter. Ad/canvas elements are pinned to rate 1 no matter what.
func (a *Agent) systemWrite(reg *Registered, v float64) {
	if isAdCanvas(reg.native) {
		reg.native.SetPlaybackRate(1)
		return
	}
	reg.native.SetPlaybackRate(v)
}

// foreignWrite is the ForeignWrite arm: the host page wrote a bare value.
// The attempted value is discarded and the agent's remembered speed is
// re-applied.
func (a *Agent) foreignWrite(reg *Registered, attempted float64) {
	a.mu.Lock()
	speed := a.settings.Speed
	a.mu.Unlock()
	a.log.Info("blocked playback rate reset", "attempted", attempted, "kept", speed)
	a.systemWrite(reg, speed)
}

func isAdCanvas(el dom.MediaElement) bool {
	return strings.Contains(strings.ToLower(el.ContainerClass()), "canvas")
}

// adoptUnseen scans the document for media elements created before the hook
// installed and registers them. Last-resort discovery only.
func (a *Agent) adoptUnseen() {
	for _, me := range a.doc.MediaElements() {
		if a.registry.Contains(me) {
			continue
		}
		reg := a.registry.Add(me, me)
		a.applySettings(reg)
		a.log.Info("adopted media element found by scan", "id", reg.ID, "kind", me.Kind())
	}
}

// handleCommand is the command responder.
func (a *Agent) handleCommand(data json.RawMessage) {
	var cmd agentwire.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		a.log.Warn("malformed command", "err", err)
		a.respond(agentwire.NewErrorResponse("", "malformed command"))
		return
	}

	switch cmd.Command {
	case agentwire.CmdCheckReady:
		a.respond(agentwire.NewReadyResponse(cmd.ID, true))

	case agentwire.CmdCheckMediaElement:
		if a.registry.Len() == 0 {
			a.adoptUnseen()
		}
		a.respond(agentwire.NewHasElementResponse(cmd.ID, a.registry.Active() != nil))

	case agentwire.CmdSetSpeed:
		var speed float64
		if err := json.Unmarshal(cmd.Value, &speed); err != nil {
			a.respond(agentwire.NewErrorResponse(cmd.ID, "setSpeed: value must be a number"))
			return
		}
		a.setSpeed(speed)
		a.respond(agentwire.NewAckResponse(cmd.ID, true))

	case agentwire.CmdSetPreservesPitch:
		var preserve bool
		if err := json.Unmarshal(cmd.Value, &preserve); err != nil {
			a.respond(agentwire.NewErrorResponse(cmd.ID, "setPreservesPitch: value must be a boolean"))
			return
		}
		a.setPreservesPitch(preserve)
		a.respond(agentwire.NewAckResponse(cmd.ID, true))

	default:
		a.respond(agentwire.NewErrorResponse(cmd.ID, "unknown command: "+cmd.Command))
	}
}

// setSpeed stores v and re-applies it to every captured element. The speed
// value is accepted as-is; no bounds are enforced at this layer.
func (a *Agent) setSpeed(v float64) {
	a.mu.Lock()
	a.settings.Speed = v
	a.mu.Unlock()
	for _, reg := range a.registry.All() {
		a.systemWrite(reg, v)
	}
}

func (a *Agent) setPreservesPitch(b bool) {
	a.mu.Lock()
	a.settings.PreservesPitch = b
	a.mu.Unlock()
	for _, reg := range a.registry.All() {
		reg.native.SetPreservesPitch(b)
	}
}

func (a *Agent) respond(resp agentwire.Response) {
	if err := a.bus.Publish(agentwire.TopicResponse, resp); err != nil {
		a.log.Warn("failed to publish response", "err", err)
	}
}

// guardedElement is the facade the host page holds for a captured media
// element. Reads pass straight through; rate writes are treated as foreign
// and arbitrated by the agent.
type guardedElement struct {
	native dom.MediaElement
	agent  *Agent
}

func (g *guardedElement) Tag() string           { return g.native.Tag() }
func (g *guardedElement) Kind() dom.MediaKind   { return g.native.Kind() }
func (g *guardedElement) PlaybackRate() float64 { return g.native.PlaybackRate() }

func (g *guardedElement) SetPlaybackRate(v float64) {
	reg := g.agent.registry.byElement(g)
	if reg == nil {
		// Not registered yet; let the write through untouched.
		g.native.SetPlaybackRate(v)
		return
	}
	g.agent.foreignWrite(reg, v)
}

func (g *guardedElement) PreservesPitch() bool           { return g.native.PreservesPitch() }
func (g *guardedElement) SetPreservesPitch(b bool)       { g.native.SetPreservesPitch(b) }
func (g *guardedElement) Playing() bool                  { return g.native.Playing() }
func (g *guardedElement) SetPlaying(playing bool)        { g.native.SetPlaying(playing) }
func (g *guardedElement) BufferedSeconds() float64       { return g.native.BufferedSeconds() }
func (g *guardedElement) SetBufferedSeconds(sec float64) { g.native.SetBufferedSeconds(sec) }
func (g *guardedElement) ContainerClass() string         { return g.native.ContainerClass() }
func (g *guardedElement) SetContainerClass(class string) { g.native.SetContainerClass(class) }
