// Package programme is the client for the remote Programme API.
package programme

import (
	"time"

	"programme-studio/internal/media"
)

type Programme struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"productId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	MuxAssetID    string    `json:"muxAssetId,omitempty"`
	MuxPlaybackID string    `json:"muxPlaybackId,omitempty"`
	IsFeatured    bool      `json:"isFeatured"`
	IsPublished   bool      `json:"isPublished"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

type DraftProgramme struct {
	ID            string `json:"id"`
	ProductID     string `json:"productId"`
	Title         string `json:"title"`
	MuxAssetID    string `json:"muxAssetId,omitempty"`
	MuxPlaybackID string `json:"muxPlaybackId,omitempty"`
}

type Product struct {
	ID string `json:"id"`
}

// DraftResponse is returned when a draft programme is created from an uploaded video.
type DraftResponse struct {
	Programme DraftProgramme `json:"programme"`
	Product   Product        `json:"product"`
}

// ProductID prefers the product record and falls back to the programme's reference.
func (r DraftResponse) ProductID() string {
	if r.Product.ID != "" {
		return r.Product.ID
	}
	return r.Programme.ProductID
}

type DraftRequest struct {
	Title string
	Video media.File
	// StagedVideoKey replaces the file part when the video was staged in object storage.
	StagedVideoKey string
	Progress       *media.Progress
}

type DetailsUpdate struct {
	ProductID   string
	Description string
	Categories  []string
	IsFeatured  bool
	IsPublished bool
	Thumbnail   *media.File
}

type SecureProgramme struct {
	Programme     Programme `json:"programme"`
	PlaybackURL   string    `json:"playbackUrl"`
	PlaybackToken string    `json:"playbackToken,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

type Stats struct {
	TotalProgrammes     int `json:"totalProgrammes"`
	PublishedProgrammes int `json:"publishedProgrammes"`
	DraftProgrammes     int `json:"draftProgrammes"`
	FeaturedProgrammes  int `json:"featuredProgrammes"`
}
