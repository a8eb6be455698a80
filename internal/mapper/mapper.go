package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/cache"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/services"
	"github.com/desertthunder/cardbox/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultTopK bounds the candidate list handed to the chat model.
const DefaultTopK = 100

const defaultThrottle = 500 * time.Millisecond

// arbitrationPrompt instructs the chat model how to pick an icon. The model
// must answer with an exact candidate title; anything else falls back to the
// highest-similarity candidate.
const arbitrationPrompt = `**Task**: Icon Matching for Song Titles

You will be given:
1. A song title
2. A list of icon candidates showing the title and tags of each icon

**Your job**: Return the exact 'title' of the icon that best matches the song title.

**Instructions**:
- Analyze the song title for key themes, objects, emotions, or concepts
- Compare against both the 'title' and 'tags' of each icon
- Look for direct matches first (e.g., "bus" in song title -> icon with "bus" tag)
- Consider metaphorical or thematic connections (e.g., love songs -> heart icons)
- Prioritize icons that match multiple aspects of the song
- If multiple icons seem equally relevant, choose the most specific/direct match

**Response format**: Return only the exact icon 'title' string, nothing else.

**If no suitable match exists**: Return the 'title' of the most generic or closest thematically related icon from the available options.`

// artist prefix delimiters, checked in order of first occurrence
var titleDelimiters = []string{" - ", " – ", " — ", " | "}

// ProgressFunc receives progress ticks while mapping runs.
type ProgressFunc func(progress models.JobProgress)

// ChapterSavedFunc is invoked after each chapter is resolved, with the
// playlist updated so far. Callers persist incrementally and notify
// observers per track. Errors are logged, not fatal.
type ChapterSavedFunc func(card *models.Card, chapterKey, iconRef string) error

// HybridMapper maps chapters to icons: embedding similarity ranks candidates,
// a chat model arbitrates the winner.
type HybridMapper struct {
	ai       services.AIAPI
	content  services.ContentAPI
	icons    *cache.IconCache
	limiter  *rate.Limiter
	logger   *log.Logger
	throttle time.Duration
}

// New creates a HybridMapper. Chat-model calls are spaced by the throttle
// interval; a non-positive throttle falls back to 500ms.
func New(ai services.AIAPI, content services.ContentAPI, icons *cache.IconCache, throttle time.Duration, logger *log.Logger) *HybridMapper {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	return &HybridMapper{
		ai:       ai,
		content:  content,
		icons:    icons,
		limiter:  rate.NewLimiter(rate.Every(throttle), 1),
		logger:   logger,
		throttle: throttle,
	}
}

// cleanTitle strips a leading "Artist - " style prefix so matching biases
// toward the song title. Only the first delimiter found is stripped.
func cleanTitle(title string) string {
	best := -1
	width := 0
	for _, d := range titleDelimiters {
		if idx := strings.Index(title, d); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			width = len(d)
		}
	}
	if best < 0 {
		return title
	}
	return strings.TrimSpace(title[best+width:])
}

// iconText builds the embedding input for an icon from its title and tags.
func iconText(icon models.Icon) string {
	return strings.TrimSpace(icon.Title + " " + strings.Join(icon.Tags, " "))
}

// cosine computes cosine similarity. Degenerate inputs (nil, mismatched
// lengths, zero magnitude) yield -1 so they sort last.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return -1
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// candidate pairs an icon with its similarity to one track.
type candidate struct {
	icon       models.Icon
	similarity float64
}

// rankIcons returns the topK candidates by similarity, descending. The sort
// is stable so ties keep the original icon order (custom icons first).
func rankIcons(trackEmbedding []float64, icons []models.Icon, iconEmbeddings [][]float64, topK int) []candidate {
	ranked := make([]candidate, len(icons))
	for i, icon := range icons {
		ranked[i] = candidate{icon: icon, similarity: cosine(trackEmbedding, iconEmbeddings[i])}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].similarity > ranked[j].similarity
	})
	if topK > 0 && topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked
}

// iconEmbeddings returns embeddings for the merged icon set, reusing the
// cache when its hashes still match. Cache write failures degrade to a
// warning; mapping proceeds without persistence.
func (m *HybridMapper) iconEmbeddings(ctx context.Context, allIcons []models.Icon) ([][]float64, error) {
	if !m.icons.ShouldRefresh(allIcons) {
		cachedIcons, embeddings, ok := m.icons.Cached()
		if ok && len(cachedIcons) == len(allIcons) {
			m.logger.Info("using cached icon embeddings")
			return embeddings, nil
		}
		m.logger.Info("icon cache mismatch, recomputing embeddings")
	} else {
		m.logger.Info("creating new icon embeddings")
	}

	texts := make([]string, len(allIcons))
	for i, icon := range allIcons {
		texts[i] = iconText(icon)
	}

	embeddings, err := m.ai.Embeddings(ctx, texts)
	if err != nil {
		return nil, err
	}

	if err := m.icons.SetCached(allIcons, embeddings); err != nil {
		m.logger.Warnf("failed to cache icon embeddings: %v", err)
	}
	return embeddings, nil
}

// selectIcon asks the chat model to pick the best candidate title. A reply
// that matches no candidate falls back to the top-similarity icon without
// counting as a failure; a transport error propagates to the caller.
func (m *HybridMapper) selectIcon(ctx context.Context, trackTitle string, ranked []candidate) (models.Icon, error) {
	type wireIcon struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	candidates := make([]wireIcon, len(ranked))
	for i, c := range ranked {
		tags := c.icon.Tags
		if tags == nil {
			tags = []string{}
		}
		candidates[i] = wireIcon{Title: c.icon.Title, Tags: tags}
	}

	encoded, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return models.Icon{}, fmt.Errorf("failed to encode candidates: %w", err)
	}
	user := fmt.Sprintf("Song title: %q\nIcons: %s\nResponse:", trackTitle, encoded)

	answer, err := m.ai.SelectTitle(ctx, arbitrationPrompt, user)
	if err != nil {
		return models.Icon{}, err
	}

	for _, c := range ranked {
		if c.icon.Title == answer {
			return c.icon, nil
		}
	}

	m.logger.Infof("model returned unknown title %q, using highest similarity as fallback", answer)
	return ranked[0].icon, nil
}

// MapIcons assigns one icon to every chapter of the card and returns a new
// card with all icon references rewritten. The input card is not mutated.
//
// Per-chapter arbitration failures fall back to the highest-similarity
// candidate; if any occurred, one warning progress tick summarizes the count.
func (m *HybridMapper) MapIcons(ctx context.Context, card *models.Card, publicIcons []models.Icon, topK int, onProgress ProgressFunc, onChapterSaved ChapterSavedFunc) (*models.Card, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	progress := func(p models.JobProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	progress(models.JobProgress{Status: "Testing AI API connection..."})
	if err := m.ai.Probe(ctx); err != nil {
		return nil, err
	}

	custom, err := m.content.GetCustomIcons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom icons: %w", err)
	}
	allIcons := models.MergeIcons(custom, publicIcons)
	if len(allIcons) == 0 {
		return nil, fmt.Errorf("%w: no icons available for mapping", shared.ErrNoIcons)
	}

	chapters := card.Content.Chapters
	titles := make([]string, len(chapters))
	for i, ch := range chapters {
		titles[i] = cleanTitle(ch.Title)
	}

	iconVectors, err := m.iconEmbeddings(ctx, allIcons)
	if err != nil {
		return nil, err
	}

	// track titles are playlist-specific, never cached
	trackVectors, err := m.ai.Embeddings(ctx, titles)
	if err != nil {
		return nil, err
	}

	updated := card.Clone()
	failed := 0

	for i, ch := range chapters {
		title := titles[i]
		progress(models.JobProgress{
			Status:   fmt.Sprintf("Mapping icons: processing track %d of %d", i+1, len(chapters)),
			Current:  i + 1,
			Total:    len(chapters),
			FileName: fmt.Sprintf("%q", title),
		})

		ranked := rankIcons(trackVectors[i], allIcons, iconVectors, topK)

		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		chosen, err := m.selectIcon(ctx, title, ranked)
		if err != nil {
			m.logger.Errorf("failed to map icon for chapter %q: %v", title, err)
			failed++
			chosen = ranked[0].icon
		}

		updated.SetChapterIcon(ch.Key, chosen.MediaID)
		if onChapterSaved != nil {
			if err := onChapterSaved(updated, ch.Key, models.IconRef(chosen.MediaID)); err != nil {
				m.logger.Errorf("failed to save playlist after mapping %q: %v", title, err)
			}
		}
	}

	if failed > 0 {
		progress(models.JobProgress{
			Status:  fmt.Sprintf("Warning: %d out of %d icon mappings failed and used fallback icons.", failed, len(chapters)),
			Current: len(chapters),
			Total:   len(chapters),
			Warning: true,
		})
	}

	return updated, nil
}
