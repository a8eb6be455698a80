package models

import "fmt"

// IconRefPrefix is the URI scheme the content service uses for icon references.
const IconRefPrefix = "yoto:#"

// Display holds the icon reference shown for a chapter or track.
type Display struct {
	Icon16x16 string `json:"icon16x16,omitempty"`
}

// Track represents a single audio track within a chapter.
type Track struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	TrackURL string   `json:"trackUrl"`
	Type     string   `json:"type"`
	Format   string   `json:"format"`
	Duration int      `json:"duration"`
	FileSize int64    `json:"fileSize"`
	Display  *Display `json:"display,omitempty"`
}

// Chapter represents an ordered content unit of a card. Each chapter may
// reference an icon via its display.
type Chapter struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Tracks  []Track  `json:"tracks"`
	Display *Display `json:"display,omitempty"`
}

// Cover holds the card's cover image reference.
type Cover struct {
	ImageL string `json:"imageL,omitempty"`
}

// Metadata holds card-level metadata.
type Metadata struct {
	Cover       Cover  `json:"cover"`
	Description string `json:"description,omitempty"`
}

// Content holds the chapter list of a card.
type Content struct {
	Chapters []Chapter `json:"chapters"`
}

// Card is the playlist document as stored by the content service.
// A card with an empty CardID has not been created remotely yet.
type Card struct {
	CardID   string   `json:"cardId,omitempty"`
	Title    string   `json:"title"`
	Content  Content  `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Clone returns a deep copy of the card. Workflows mutate copies so callers
// never observe partially rewritten documents.
func (c *Card) Clone() *Card {
	out := *c
	out.Content.Chapters = make([]Chapter, len(c.Content.Chapters))
	for i, ch := range c.Content.Chapters {
		cp := ch
		if ch.Display != nil {
			d := *ch.Display
			cp.Display = &d
		}
		cp.Tracks = make([]Track, len(ch.Tracks))
		for j, tr := range ch.Tracks {
			tp := tr
			if tr.Display != nil {
				d := *tr.Display
				tp.Display = &d
			}
			cp.Tracks[j] = tp
		}
		out.Content.Chapters[i] = cp
	}
	return &out
}

// SetChapterIcon rewrites the icon reference of the chapter with the given
// key, and of every track inside it. Returns false if no chapter matches.
func (c *Card) SetChapterIcon(chapterKey, mediaID string) bool {
	ref := IconRef(mediaID)
	for i := range c.Content.Chapters {
		ch := &c.Content.Chapters[i]
		if ch.Key != chapterKey {
			continue
		}
		if ch.Display == nil {
			ch.Display = &Display{}
		}
		ch.Display.Icon16x16 = ref
		for j := range ch.Tracks {
			if ch.Tracks[j].Display == nil {
				ch.Tracks[j].Display = &Display{}
			}
			ch.Tracks[j].Display.Icon16x16 = ref
		}
		return true
	}
	return false
}

// IconRef returns the chapter's current icon reference, or "" when no icon
// is set.
func (c Chapter) IconRef() string {
	if c.Display == nil {
		return ""
	}
	return c.Display.Icon16x16
}

// IconRef formats a media id as a content-service icon reference.
func IconRef(mediaID string) string {
	return fmt.Sprintf("%s%s", IconRefPrefix, mediaID)
}

// Icon is a selectable 16x16 display icon. Immutable once fetched.
type Icon struct {
	MediaID string   `json:"mediaId"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Custom  bool     `json:"custom,omitempty"`
}

// MergeIcons combines user-uploaded icons with the public icon set.
//
// Custom icons are placed first so they win ties in candidate ranking, and on
// a mediaId collision the custom icon replaces the public one.
func MergeIcons(custom, public []Icon) []Icon {
	merged := make([]Icon, 0, len(custom)+len(public))
	seen := make(map[string]bool, len(custom))

	for _, ic := range custom {
		if seen[ic.MediaID] {
			continue
		}
		ic.Custom = true
		seen[ic.MediaID] = true
		merged = append(merged, ic)
	}
	for _, ic := range public {
		if seen[ic.MediaID] {
			continue
		}
		seen[ic.MediaID] = true
		merged = append(merged, ic)
	}
	return merged
}
