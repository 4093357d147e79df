package planner

import (
	"context"
	"fmt"

	"github.com/ternarybob/zola/internal/models"
)

// PinResult reports the outcome of a pin toggle
type PinResult struct {
	Image  models.Image `json:"image"`
	Pinned bool         `json:"pinned"`
	Tags   []string     `json:"tags,omitempty"`
}

// ResolveImage finds an image by id in the gallery stores or the current plan
func (w *Workspace) ResolveImage(imageID string) (models.Image, error) {
	if img, ok := w.Images.FindImage(imageID); ok {
		return img, nil
	}
	if plan := w.Plans.Current(); plan != nil {
		for _, img := range plan.Images {
			if img.ID == imageID {
				return img, nil
			}
		}
	}
	return models.Image{}, fmt.Errorf("%w: %s", models.ErrImageNotFound, imageID)
}

// TogglePin pins the image when it is not in the current plan and unpins it
// otherwise. Membership is read from the plan store at the moment of the
// toggle. supplied, when non-nil, is used instead of looking the image up.
// When an image without tags is pinned its tags are looked up; that lookup
// may fail without affecting the toggle.
func (w *Workspace) TogglePin(ctx context.Context, imageID string, supplied *models.Image) (*PinResult, error) {
	var image models.Image
	if supplied != nil {
		if supplied.ID == "" {
			supplied.ID = imageID
		}
		if supplied.ID != imageID {
			return nil, fmt.Errorf("image id %q does not match %q", supplied.ID, imageID)
		}
		image = supplied.Clone()
	} else {
		resolved, err := w.ResolveImage(imageID)
		if err != nil {
			return nil, err
		}
		image = resolved
	}

	result := &PinResult{Image: image, Pinned: w.Plans.TogglePin(image)}

	w.logger.Debug().
		Str("workspace", w.ID).
		Str("image_id", imageID).
		Bool("pinned", result.Pinned).
		Msg("Pin toggled")

	if result.Pinned {
		result.Tags = w.lookupTags(ctx, image)
	}
	return result, nil
}

func (w *Workspace) lookupTags(ctx context.Context, image models.Image) []string {
	if len(image.Tags) > 0 {
		return image.Tags
	}
	if w.deps.Images == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.deps.TagTimeout)
	defer cancel()

	tags, err := w.deps.Images.ImageTags(ctx, image.ID)
	if err != nil {
		w.logger.Debug().Err(err).Str("image_id", image.ID).Msg("Tag lookup failed")
		return nil
	}
	return tags
}
