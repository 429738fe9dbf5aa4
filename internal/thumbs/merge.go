package thumbs

// Merge reconciles a poll record into the grid's record for the same asset.
// The grid wins every field it already has a value for; poll data only
// fills gaps. A slow poll response can therefore never overwrite a fresher
// grid-driven update. Pure function, no side effects.
func Merge(grid, poll Record) Record {
	merged := grid
	if merged.AssetID == "" {
		merged.AssetID = poll.AssetID
	}
	if merged.MediaKind == "" {
		merged.MediaKind = poll.MediaKind
	}
	if merged.PreviewURL == "" {
		merged.PreviewURL = poll.PreviewURL
	}
	if merged.FinalURL == "" {
		merged.FinalURL = poll.FinalURL
	}
	if merged.Status == "" {
		merged.Status = poll.Status
	}
	if merged.Version == 0 {
		merged.Version = poll.Version
	}
	if merged.Error == "" {
		merged.Error = poll.Error
	}
	return merged
}
