package models

// Image is a photo returned by the image service. Images are immutable once
// constructed; identity is ID.
type Image struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	AltText     string   `json:"altText"`
	Tags        []string `json:"tags"`
}

// Clone returns a copy that shares no slices with the receiver
func (i Image) Clone() Image {
	out := i
	if i.Tags != nil {
		out.Tags = append([]string(nil), i.Tags...)
	}
	return out
}

// Idea returns the text used to describe the image to the itinerary planner
func (i Image) Idea() string {
	if i.AltText != "" {
		return i.AltText
	}
	return i.Description
}

// ImageIDs returns the ids of images in order
func ImageIDs(images []Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}

// DedupeImages returns images with later duplicates of an id removed, preserving order
func DedupeImages(images []Image) []Image {
	seen := make(map[string]struct{}, len(images))
	out := make([]Image, 0, len(images))
	for _, img := range images {
		if _, ok := seen[img.ID]; ok {
			continue
		}
		seen[img.ID] = struct{}{}
		out = append(out, img.Clone())
	}
	return out
}
