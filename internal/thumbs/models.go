package thumbs

import "strings"

// Status is the thumbnail pipeline state reported for an asset.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// thumbnailKinds lists the media kinds the pipeline generates thumbnails
// for. Anything else is terminal on sight. An empty kind is treated as
// supported since the grid may not know the kind yet.
var thumbnailKinds = map[string]struct{}{
	"image":    {},
	"video":    {},
	"document": {},
}

// KindSupportsThumbnails reports whether assets of the given media kind
// ever receive thumbnails.
func KindSupportsThumbnails(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return true
	}
	_, ok := thumbnailKinds[kind]
	return ok
}

// Record is the thumbnail view of one asset: the grid's snapshot on open,
// the status endpoint's payload afterwards.
type Record struct {
	AssetID    string `json:"asset_id"`
	MediaKind  string `json:"media_kind,omitempty"`
	PreviewURL string `json:"preview_thumbnail_url,omitempty"`
	FinalURL   string `json:"final_thumbnail_url,omitempty"`
	Status     Status `json:"thumbnail_status,omitempty"`
	Version    int    `json:"thumbnail_version,omitempty"`
	Error      string `json:"thumbnail_error,omitempty"`
}

// Terminal reports whether further polling for this record would be wasted.
func (r Record) Terminal() bool {
	switch {
	case r.Status == StatusCompleted && r.FinalURL != "":
		return true
	case r.Status == StatusFailed || r.Status == StatusSkipped:
		return true
	case r.Error != "":
		return true
	case !KindSupportsThumbnails(r.MediaKind):
		return true
	}
	return false
}

// NotYetQueued reports the window right after a file replacement where the
// asset sits pending or processing with no URLs because thumbnail
// generation has not been queued yet. Polling such an asset loops on empty
// results.
func (r Record) NotYetQueued() bool {
	if r.Status != StatusPending && r.Status != StatusProcessing {
		return false
	}
	return r.PreviewURL == "" && r.FinalURL == ""
}

// fingerprint captures the fields whose change makes a poll response worth
// propagating. Everything else is a no-op tick.
type fingerprint struct {
	version    int
	hasFinal   bool
	hasPreview bool
	status     Status
	errMsg     string
}

func (r Record) fingerprint() fingerprint {
	return fingerprint{
		version:    r.Version,
		hasFinal:   r.FinalURL != "",
		hasPreview: r.PreviewURL != "",
		status:     r.Status,
		errMsg:     r.Error,
	}
}
