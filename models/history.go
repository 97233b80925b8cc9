package models

// CardHistoryEntry is a named, timestamped snapshot of a card plus an optional
// rendered preview image. The display name is the identity key: saving under an
// existing name overwrites that entry.
type CardHistoryEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CreatedAt  int64    `json:"createdAt"` // unix milliseconds
	Data       CardData `json:"data"`
	PreviewURL string   `json:"previewUrl,omitempty"` // data URL of the rendered preview
}
