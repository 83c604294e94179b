// Package dom models the slice of a host page the playback agent needs: a
// document with an element-construction entry point that can be hooked, and
// media elements whose playback state the host page mutates at will.
package dom

import "sync"

// MediaKind is the element type of a capturable media element.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// IsMediaKind reports whether tag names one of the two media element kinds.
func IsMediaKind(tag string) (MediaKind, bool) {
	switch tag {
	case "audio":
		return MediaKindAudio, true
	case "video":
		return MediaKindVideo, true
	}
	return "", false
}

// Element is anything the document can hold.
type Element interface {
	Tag() string
}

// MediaElement is the playback surface the agent arbitrates.
type MediaElement interface {
	Element
	Kind() MediaKind
	PlaybackRate() float64
	SetPlaybackRate(v float64)
	PreservesPitch() bool
	SetPreservesPitch(b bool)
	Playing() bool
	SetPlaying(playing bool)
	BufferedSeconds() float64
	SetBufferedSeconds(sec float64)
	ContainerClass() string
	SetContainerClass(class string)
}

// BasicElement is a plain non-media element (e.g. a script loader).
type BasicElement struct {
	tag string
}

func NewBasicElement(tag string) *BasicElement { return &BasicElement{tag: tag} }

func (e *BasicElement) Tag() string { return e.tag }

// BasicMediaElement is the native media element implementation. The host
// page drives its playback state; SetPlaybackRate here is the original
// underlying setter with no arbitration.
type BasicMediaElement struct {
	kind MediaKind

	mu             sync.Mutex
	rate           float64
	preservesPitch bool
	playing        bool
	buffered       float64
	containerClass string
}

func NewBasicMediaElement(kind MediaKind) *BasicMediaElement {
	return &BasicMediaElement{kind: kind, rate: 1.0, preservesPitch: true}
}

func (e *BasicMediaElement) Tag() string     { return string(e.kind) }
func (e *BasicMediaElement) Kind() MediaKind { return e.kind }

func (e *BasicMediaElement) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *BasicMediaElement) SetPlaybackRate(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = v
}

func (e *BasicMediaElement) PreservesPitch() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preservesPitch
}

func (e *BasicMediaElement) SetPreservesPitch(b bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preservesPitch = b
}

func (e *BasicMediaElement) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// SetPlaying simulates the host page starting/stopping playback.
func (e *BasicMediaElement) SetPlaying(playing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = playing
}

func (e *BasicMediaElement) BufferedSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffered
}

// SetBufferedSeconds simulates buffering progress.
func (e *BasicMediaElement) SetBufferedSeconds(sec float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffered = sec
}

func (e *BasicMediaElement) ContainerClass() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.containerClass
}

// SetContainerClass records the class of the container the host page mounted
// the element into.
func (e *BasicMediaElement) SetContainerClass(class string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.containerClass = class
}

// CreateHook intercepts element construction. It receives the tag and the
// native element and returns the element the host page will actually hold,
// which may be a wrapping facade.
type CreateHook func(tag string, native Element) Element

// Document is the host page: a URL, head/body child lists, and the
// element-construction entry point.
type Document struct {
	mu    sync.Mutex
	url   string
	title string
	head  []Element
	hook  CreateHook
	media []MediaElement // every media element ever constructed, hooked or not
}

func NewDocument(url, title string) *Document {
	return &Document{url: url, title: title}
}

func (d *Document) URL() string   { return d.url }
func (d *Document) Title() string { return d.title }

// SetCreateHook installs hook as the construction interceptor. There is at
// most one hook; installing replaces any previous one.
func (d *Document) SetCreateHook(hook CreateHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = hook
}

// CreateElement constructs an element of the given tag. The native
// construction always runs; if a hook is installed the host page receives
// whatever the hook returns, so every later host write flows through it.
func (d *Document) CreateElement(tag string) Element {
	var native Element
	if kind, ok := IsMediaKind(tag); ok {
		native = NewBasicMediaElement(kind)
	} else {
		native = NewBasicElement(tag)
	}

	d.mu.Lock()
	hook := d.hook
	d.mu.Unlock()

	el := native
	if hook != nil {
		el = hook(tag, native)
	}

	if me, ok := el.(MediaElement); ok {
		d.mu.Lock()
		d.media = append(d.media, me)
		d.mu.Unlock()
	}
	return el
}

// InsertHeadFirst puts el ahead of everything already in head, mirroring the
// run-before-host-scripts injection ordering.
func (d *Document) InsertHeadFirst(el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.head = append([]Element{el}, d.head...)
}

// RemoveFromHead detaches el from head. Returns false when el is absent.
func (d *Document) RemoveFromHead(el Element) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.head {
		if e == el {
			d.head = append(d.head[:i], d.head[i+1:]...)
			return true
		}
	}
	return false
}

// Head returns a snapshot of head children.
func (d *Document) Head() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Element, len(d.head))
	copy(out, d.head)
	return out
}

// MediaElements returns every media element the document has constructed, in
// creation order. This is the last-resort scan for elements created before
// any hook was installed.
func (d *Document) MediaElements() []MediaElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MediaElement, len(d.media))
	copy(out, d.media)
	return out
}
