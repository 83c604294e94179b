package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/samber/lo"

	"github.com/soundshift/soundshift/lib/bridge"
	"github.com/soundshift/soundshift/lib/dom"
	"github.com/soundshift/soundshift/lib/logger"
	"github.com/soundshift/soundshift/lib/scriptcache"
	"github.com/soundshift/soundshift/lib/store"
)

// ApiService answers the controller protocol: connection state, playback
// intents, settings, and tab queries.
type ApiService struct {
	bridge     *bridge.Bridge
	store      *store.Store
	cache      *scriptcache.Cache // nil when no agent bundle is configured
	targetHost string

	tabsMu sync.RWMutex
	tabs   []*dom.Document
}

func New(b *bridge.Bridge, st *store.Store, cache *scriptcache.Cache, targetHost string) *ApiService {
	return &ApiService{
		bridge:     b,
		store:      st,
		cache:      cache,
		targetHost: targetHost,
	}
}

// RegisterTab adds a host document to the tab list consulted by
// checkSpotifyTab.
func (s *ApiService) RegisterTab(doc *dom.Document) {
	s.tabsMu.Lock()
	defer s.tabsMu.Unlock()
	s.tabs = append(s.tabs, doc)
}

// Shutdown releases service resources.
func (s *ApiService) Shutdown(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			return err
		}
	}
	return s.store.Close()
}

// initRetryAttempts bounds controller-level init retries on the
// no-media-element case; the user hint covers the rest.
const (
	initRetryAttempts = 3
	initRetryDelay    = time.Second
)

// dispatch executes one controller action and produces its response. Every
// failure is local to the call; nothing here is fatal.
func (s *ApiService) dispatch(ctx context.Context, req ControlRequest) ControlResponse {
	log := logger.FromContext(ctx)

	switch req.Action {
	case ActionInit:
		err := retry.New(
			retry.Attempts(initRetryAttempts),
			retry.Delay(initRetryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
			retry.RetryIf(func(err error) bool {
				return errors.Is(err, bridge.ErrNoMediaElement)
			}),
		).Do(func() error {
			return s.bridge.Init(ctx)
		})
		switch {
		case err == nil:
			return okResponse()
		case errors.Is(err, bridge.ErrNoMediaElement):
			return errResponse("no media element found; try playing a song")
		case errors.Is(err, bridge.ErrNotReady):
			return errResponse("page agent not ready")
		default:
			return errResponse(err.Error())
		}

	case ActionSetSpeed:
		var speed float64
		if err := json.Unmarshal(req.Value, &speed); err != nil {
			return errResponse("setSpeed: value must be a number")
		}
		if err := s.bridge.SetSpeed(ctx, speed); err != nil {
			return errResponse(err.Error())
		}
		return okResponse()

	case ActionSetPitch:
		var semitones int
		if err := json.Unmarshal(req.Value, &semitones); err != nil {
			return errResponse("setPitch: value must be an integer")
		}
		if err := s.store.PutPitch(ctx, semitones); err != nil {
			log.Warn("failed to persist pitch", "err", err)
		}
		// The system only toggles the coarse flag: any requested shift means
		// pitch should follow the rate change.
		if err := s.bridge.SetPreservesPitch(ctx, semitones == 0); err != nil {
			return errResponse(err.Error())
		}
		return okResponse()

	case ActionGetSettings:
		pitch, err := s.store.Pitch(ctx)
		if err != nil {
			return errResponse(err.Error())
		}
		settings := s.bridge.Settings()
		return ControlResponse{
			Success:  true,
			Settings: &SettingsPayload{Pitch: pitch, Speed: settings.Speed},
		}

	case ActionLogEvent:
		log.Info("controller event", "payload", string(req.Value))
		return okResponse()

	case ActionCheckSpotifyTab:
		s.tabsMu.RLock()
		docs := make([]*dom.Document, len(s.tabs))
		copy(docs, s.tabs)
		s.tabsMu.RUnlock()

		tabs := lo.Map(docs, func(d *dom.Document, _ int) TabInfo {
			return TabInfo{URL: d.URL(), Title: d.Title()}
		})
		has := lo.SomeBy(docs, func(d *dom.Document) bool {
			return strings.Contains(d.URL(), s.targetHost)
		})
		return ControlResponse{Success: true, HasSpotifyTab: &has, Tabs: tabs}

	default:
		return errResponse("unknown action: " + req.Action)
	}
}
