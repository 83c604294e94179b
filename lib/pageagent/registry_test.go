package pageagent

import (
	"testing"

	"github.com/soundshift/soundshift/lib/dom"
)

func TestRegistryActive(t *testing.T) {
	t.Parallel()

	mk := func(playing bool, buffered float64) *dom.BasicMediaElement {
		el := dom.NewBasicMediaElement(dom.MediaKindAudio)
		el.SetPlaying(playing)
		el.SetBufferedSeconds(buffered)
		return el
	}

	t.Run("empty registry has no active element", func(t *testing.T) {
		r := NewRegistry()
		if r.Active() != nil {
			t.Fatal("expected nil active element")
		}
	})

	t.Run("most recent playing element with buffered data wins", func(t *testing.T) {
		r := NewRegistry()
		r.Add(mk(true, 5), mk(true, 5))
		playing := mk(true, 3)
		r.Add(playing, playing)
		r.Add(mk(false, 10), mk(false, 10)) // newer, but not playing

		active := r.Active()
		if active == nil || active.El != dom.MediaElement(playing) {
			t.Fatal("expected the most recent playing+buffered element")
		}
	})

	t.Run("playing without buffered data does not qualify", func(t *testing.T) {
		r := NewRegistry()
		qualified := mk(true, 1)
		r.Add(qualified, qualified)
		r.Add(mk(true, 0), mk(true, 0))

		active := r.Active()
		if active == nil || active.El != dom.MediaElement(qualified) {
			t.Fatal("expected the buffered element")
		}
	})

	t.Run("falls back to most recently created", func(t *testing.T) {
		r := NewRegistry()
		r.Add(mk(false, 0), mk(false, 0))
		last := mk(false, 0)
		r.Add(last, last)

		active := r.Active()
		if active == nil || active.El != dom.MediaElement(last) {
			t.Fatal("expected the most recently created element")
		}
	})

	t.Run("active element is always a registry member", func(t *testing.T) {
		r := NewRegistry()
		for i := 0; i < 5; i++ {
			el := mk(i%2 == 0, float64(i))
			r.Add(el, el)
		}
		active := r.Active()
		found := false
		for _, e := range r.All() {
			if e == active {
				found = true
			}
		}
		if !found {
			t.Fatal("active element not in registry")
		}
	})
}

func TestRegistryNeverRemoves(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for i := 0; i < 10; i++ {
		el := dom.NewBasicMediaElement(dom.MediaKindVideo)
		r.Add(el, el)
	}
	if r.Len() != 10 {
		t.Fatalf("got %d entries, want 10", r.Len())
	}

	ids := make(map[string]bool)
	for _, e := range r.All() {
		if ids[e.ID] {
			t.Fatalf("duplicate registry id %q", e.ID)
		}
		ids[e.ID] = true
	}
}
