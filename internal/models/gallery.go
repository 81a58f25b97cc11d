package models

// GalleryItem is a single picture flattened out of the album listing.
type GalleryItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Created string `json:"created"`
}
