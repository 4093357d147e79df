package planner

import (
	"context"
	"strings"

	"github.com/ternarybob/zola/internal/models"
	"github.com/ternarybob/zola/internal/store"
)

// GalleryCard is one image as rendered by the gallery
type GalleryCard struct {
	models.Image
	Pinned   bool `json:"pinned"`
	Selected bool `json:"selected"`
}

// GalleryView is the gallery display set with per-card pin state
type GalleryView struct {
	Source      string            `json:"source"` // "search" or "default"
	Search      store.SearchState `json:"search"`
	Cards       []GalleryCard     `json:"cards"`
	PinnedCount int               `json:"pinned_count"`
}

// LoadDefaultImages fills the image collection from the warm pool when it has
// images, otherwise from the image service. A failure leaves the collection as
// it was.
func (w *Workspace) LoadDefaultImages(ctx context.Context) models.Result[[]models.Image] {
	images, source, err := w.defaultImages(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Str("workspace", w.ID).Msg("Default images unavailable")
		return models.Failure[[]models.Image](err.Error())
	}

	w.Images.SetImages(images)
	w.logger.Debug().Str("workspace", w.ID).Str("source", source).Int("images", len(images)).Msg("Default images loaded")
	return models.Success(images)
}

func (w *Workspace) defaultImages(ctx context.Context) ([]models.Image, string, error) {
	if w.deps.Pool != nil {
		if n, err := w.deps.Pool.Count(ctx); err == nil && n > 0 {
			images, err := w.deps.Pool.Sample(ctx, w.deps.DefaultImageCount)
			if err == nil {
				return images, "pool", nil
			}
			w.logger.Warn().Err(err).Msg("Image pool sample failed, falling back to live images")
		}
	}

	images, err := w.deps.Images.RandomImages(ctx, w.deps.DefaultImageCount)
	if err != nil {
		return nil, "", err
	}
	return images, "live", nil
}

// Search runs an image search and records it in the image store. A blank
// query clears the search. Failures are recorded as a completed search with
// no results; a response superseded by a newer search is dropped.
func (w *Workspace) Search(ctx context.Context, query string) models.Result[[]models.Image] {
	query = strings.TrimSpace(query)
	if query == "" {
		w.Images.ClearSearch()
		return models.Success([]models.Image{})
	}

	seq := w.Images.BeginSearch(query)
	images, err := w.deps.Images.SearchImages(ctx, query)
	if err != nil {
		w.logger.Warn().Err(err).Str("workspace", w.ID).Str("query", query).Msg("Image search failed")
	}

	if !w.Images.CompleteSearch(seq, images, err) {
		w.logger.Debug().Str("workspace", w.ID).Str("query", query).Int64("seq", int64(seq)).Msg("Discarding superseded search response")
	}
	return models.FromError(images, err)
}

// Gallery renders the display set. Pin state is read from the plan store at
// call time.
func (w *Workspace) Gallery() GalleryView {
	search := w.Images.SearchState()
	pinned := w.Plans.PinnedIDs()

	source := "default"
	if search.Status == store.SearchSearched {
		source = "search"
	}

	display := w.Images.DisplayImages()
	cards := make([]GalleryCard, 0, len(display))
	for _, img := range display {
		cards = append(cards, GalleryCard{
			Image:    img,
			Pinned:   pinned[img.ID],
			Selected: w.Images.IsSelected(img.URL),
		})
	}

	// results are already in the cards
	search.Results = nil

	return GalleryView{
		Source:      source,
		Search:      search,
		Cards:       cards,
		PinnedCount: len(pinned),
	}
}
