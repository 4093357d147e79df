package unsplash

import (
	"strings"

	"github.com/ternarybob/zola/internal/models"
)

// Photo is the subset of the Unsplash photo object we consume
type Photo struct {
	ID             string    `json:"id"`
	Description    string    `json:"description"`
	AltDescription string    `json:"alt_description"`
	URLs           PhotoURLs `json:"urls"`
	Tags           []Tag     `json:"tags"`
}

// PhotoURLs are the rendition links of a photo
type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// Tag is a photo tag
type Tag struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// SearchResponse is the body of /search/photos
type SearchResponse struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`
}

// TagTitles returns the non-empty tag titles, de-duplicated case-insensitively
func (p Photo) TagTitles() []string {
	seen := make(map[string]bool, len(p.Tags))
	titles := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		title := strings.TrimSpace(t.Title)
		key := strings.ToLower(title)
		if title == "" || seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, title)
	}
	return titles
}

// ToImage maps a photo onto the domain image
func (p Photo) ToImage() models.Image {
	url := p.URLs.Regular
	if url == "" {
		url = p.URLs.Small
	}
	description := p.Description
	if description == "" {
		description = p.AltDescription
	}
	return models.Image{
		ID:          p.ID,
		URL:         url,
		Description: description,
		AltText:     p.AltDescription,
		Tags:        p.TagTitles(),
	}
}

func toImages(photos []Photo) []models.Image {
	images := make([]models.Image, 0, len(photos))
	for _, p := range photos {
		if p.ID == "" {
			continue
		}
		images = append(images, p.ToImage())
	}
	return images
}
