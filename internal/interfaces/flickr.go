package interfaces

import (
	"context"

	"github.com/ternarybob/flickrinsert/internal/models"
)

// MetadataResolver fetches photo metadata from the remote photo service.
// Failures are returned as errors and never panic; callers record them and move on.
type MetadataResolver interface {
	Resolve(ctx context.Context, photoID string) (*models.Metadata, error)
}

// Renderer turns the flat field map of one photo into replacement markup
type Renderer interface {
	Render(data map[string]any) (string, error)
}
