package store

import (
	"sync"

	"github.com/ternarybob/zola/internal/models"
)

// SearchStatus is the state of the gallery search
type SearchStatus string

const (
	SearchNotSearched SearchStatus = "not_searched"
	SearchSearching   SearchStatus = "searching"
	SearchSearched    SearchStatus = "searched"
)

// SearchState describes the most recent search. Results is only meaningful
// when Status is SearchSearched.
type SearchState struct {
	Status  SearchStatus   `json:"status"`
	Query   string         `json:"query,omitempty"`
	Results []models.Image `json:"results"`
	Count   int            `json:"count"`
	Error   string         `json:"error,omitempty"`
	Seq     uint64         `json:"seq"`
}

// ImageStore holds the general image collection, the selection set and the
// search state. It is independent of the plan store.
type ImageStore struct {
	mu       sync.RWMutex
	images   []models.Image
	selected []string // urls, in selection order

	search  SearchState
	lastSeq uint64
}

// NewImageStore creates an empty image store
func NewImageStore() *ImageStore {
	return &ImageStore{
		images:   []models.Image{},
		selected: []string{},
		search:   SearchState{Status: SearchNotSearched, Results: []models.Image{}},
	}
}

// SetImages replaces the collection
func (s *ImageStore) SetImages(images []models.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = cloneImages(images)
}

// AddImages appends images to the collection
func (s *ImageStore) AddImages(images []models.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, cloneImages(images)...)
}

// RemoveImage removes every image with url from the collection and the selection
func (s *ImageStore) RemoveImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Image, 0, len(s.images))
	for _, img := range s.images {
		if img.URL != url {
			kept = append(kept, img)
		}
	}
	s.images = kept
	s.selected = without(s.selected, url)
}

// SelectImage adds url to the selection
func (s *ImageStore) SelectImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.selected {
		if u == url {
			return
		}
	}
	s.selected = append(s.selected, url)
}

// DeselectImage removes url from the selection
func (s *ImageStore) DeselectImage(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = without(s.selected, url)
}

// ClearSelectedImages empties the selection
func (s *ImageStore) ClearSelectedImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = []string{}
}

// ClearImages empties the collection and the selection
func (s *ImageStore) ClearImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = []models.Image{}
	s.selected = []string{}
}

// Images returns a copy of the collection
func (s *ImageStore) Images() []models.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneImages(s.images)
}

// SelectedImages returns the selected urls in selection order
func (s *ImageStore) SelectedImages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.selected...)
}

// IsSelected reports whether url is selected
func (s *ImageStore) IsSelected(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.selected {
		if u == url {
			return true
		}
	}
	return false
}

// FindImage looks id up in the search results and then the collection
func (s *ImageStore) FindImage(id string) (models.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, img := range s.search.Results {
		if img.ID == id {
			return img.Clone(), true
		}
	}
	for _, img := range s.images {
		if img.ID == id {
			return img.Clone(), true
		}
	}
	return models.Image{}, false
}

// BeginSearch moves the search to searching and returns the sequence number
// that the matching CompleteSearch must present
func (s *ImageStore) BeginSearch(query string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeq++
	s.search = SearchState{
		Status:  SearchSearching,
		Query:   query,
		Results: s.search.Results,
		Count:   s.search.Count,
		Seq:     s.lastSeq,
	}
	return s.lastSeq
}

// CompleteSearch records the results of search seq. Completions of searches
// superseded by a later BeginSearch or ClearSearch are discarded and false is
// returned. A failed search is recorded as searched with no results.
func (s *ImageStore) CompleteSearch(seq uint64, results []models.Image, searchErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.lastSeq || s.search.Status != SearchSearching {
		return false
	}

	state := SearchState{
		Status:  SearchSearched,
		Query:   s.search.Query,
		Results: cloneImages(results),
		Seq:     seq,
	}
	if searchErr != nil {
		state.Results = []models.Image{}
		state.Error = searchErr.Error()
	}
	state.Count = len(state.Results)
	s.search = state
	return true
}

// ClearSearch returns the search to not_searched and fences any search in flight
func (s *ImageStore) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	s.search = SearchState{Status: SearchNotSearched, Results: []models.Image{}, Seq: s.lastSeq}
}

// SearchState returns a copy of the current search state
func (s *ImageStore) SearchState() SearchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.search
	state.Results = cloneImages(s.search.Results)
	return state
}

// DisplayImages returns the gallery display set: search results once a search
// has completed (even when empty), the collection otherwise
func (s *ImageStore) DisplayImages() []models.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.search.Status == SearchSearched {
		return cloneImages(s.search.Results)
	}
	return cloneImages(s.images)
}

func cloneImages(images []models.Image) []models.Image {
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		out = append(out, img.Clone())
	}
	return out
}

func without(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
