package syncer

import (
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

// Plan is the outcome of comparing the library with the folder listing.
type Plan struct {
	// Intents are upserted into the queue.
	Intents []models.Intent
	// Removals are local records whose remote file was trashed.
	Removals []*models.Record
}

// Decide partitions local and remote by GUID and applies the precedence
// rules to each pair. A local record whose GUID is not in the listing is
// local-only and gets uploaded as a new file. Records without an original
// have nothing to upload and are left out. Remote folders are ignored.
func Decide(local []*models.Record, remote []models.RemoteFile) Plan {
	byGUID := make(map[string]models.RemoteFile, len(remote))
	for _, f := range remote {
		if f.ID == "" || f.MimeType == models.FolderMimeType {
			continue
		}
		byGUID[f.ID] = f
	}

	var plan Plan
	linked := make(map[string]bool, len(local))

	for _, rec := range local {
		f, ok := byGUID[rec.GUID]
		if rec.GUID == "" || !ok {
			if rec.HasOriginal() {
				plan.Intents = append(plan.Intents, models.UploadIntent(rec.ID, "", true))
			}
			continue
		}
		linked[f.ID] = true

		switch {
		case f.Trashed:
			plan.Removals = append(plan.Removals, rec)
		case rec.Dirty():
			if rec.HasOriginal() {
				plan.Intents = append(plan.Intents, models.UploadIntent(rec.ID, f.ID, rec.LocalImageChanges))
			}
		case rec.LastSyncVersion < f.Version:
			plan.Intents = append(plan.Intents, models.DownloadIntent(rec.ID, f.ID))
		}
	}

	for _, f := range remote {
		if _, ok := byGUID[f.ID]; !ok || linked[f.ID] || f.Trashed {
			continue
		}
		plan.Intents = append(plan.Intents, models.DownloadIntent(0, f.ID))
	}

	return plan
}
