package dom

import "testing"

func TestIsMediaKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tag  string
		want MediaKind
		ok   bool
	}{
		{"audio", MediaKindAudio, true},
		{"video", MediaKindVideo, true},
		{"div", "", false},
		{"script", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		kind, ok := IsMediaKind(tc.tag)
		if ok != tc.ok || kind != tc.want {
			t.Errorf("IsMediaKind(%q) = (%q, %t), want (%q, %t)", tc.tag, kind, ok, tc.want, tc.ok)
		}
	}
}

type wrapper struct {
	MediaElement
}

func TestCreateElementRoutesThroughHook(t *testing.T) {
	t.Parallel()

	doc := NewDocument("https://example.com/", "Example")

	var hookedTags []string
	doc.SetCreateHook(func(tag string, native Element) Element {
		hookedTags = append(hookedTags, tag)
		if me, ok := native.(MediaElement); ok {
			return &wrapper{MediaElement: me}
		}
		return native
	})

	el := doc.CreateElement("audio")
	if _, ok := el.(*wrapper); !ok {
		t.Fatalf("expected hook wrapper, got %T", el)
	}
	if el.Tag() != "audio" {
		t.Errorf("unexpected tag %q", el.Tag())
	}

	div := doc.CreateElement("div")
	if _, ok := div.(*BasicElement); !ok {
		t.Errorf("expected plain element for div, got %T", div)
	}

	if len(hookedTags) != 2 {
		t.Fatalf("hook called %d times, want 2", len(hookedTags))
	}
}

func TestMediaElementsRecordsCreationOrder(t *testing.T) {
	t.Parallel()

	doc := NewDocument("https://example.com/", "Example")
	doc.CreateElement("audio")
	doc.CreateElement("div")
	doc.CreateElement("video")

	media := doc.MediaElements()
	if len(media) != 2 {
		t.Fatalf("got %d media elements, want 2", len(media))
	}
	if media[0].Kind() != MediaKindAudio || media[1].Kind() != MediaKindVideo {
		t.Errorf("unexpected order: %q, %q", media[0].Kind(), media[1].Kind())
	}
}

func TestHeadInsertAndRemove(t *testing.T) {
	t.Parallel()

	doc := NewDocument("https://example.com/", "Example")
	existing := NewBasicElement("meta")
	doc.InsertHeadFirst(existing)

	loader := NewBasicElement("script")
	doc.InsertHeadFirst(loader)

	head := doc.Head()
	if len(head) != 2 || head[0] != loader {
		t.Fatalf("loader must be the first head child")
	}

	if !doc.RemoveFromHead(loader) {
		t.Fatal("expected removal to succeed")
	}
	if doc.RemoveFromHead(loader) {
		t.Fatal("second removal must report absence")
	}
	if len(doc.Head()) != 1 {
		t.Errorf("unexpected head length %d", len(doc.Head()))
	}
}
