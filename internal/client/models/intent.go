package models

import "errors"

var ErrInvalidIntentKey = errors.New("intent key needs a record id or a guid")

type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// IntentKey identifies a queued sync action. Local-only uploads carry just
// RecordID, remote-only downloads just GUID, linked pairs both.
type IntentKey struct {
	RecordID int64
	GUID     string
}

func (k IntentKey) Validate() error {
	if k.RecordID == 0 && k.GUID == "" {
		return ErrInvalidIntentKey
	}
	return nil
}

// Intent is a durable instruction for the executor. Writing an intent
// with an existing key replaces it.
type Intent struct {
	IntentKey
	Direction    Direction
	IncludeMedia bool
}

func UploadIntent(recordID int64, guid string, includeMedia bool) Intent {
	return Intent{
		IntentKey:    IntentKey{RecordID: recordID, GUID: guid},
		Direction:    DirectionUpload,
		IncludeMedia: includeMedia,
	}
}

func DownloadIntent(recordID int64, guid string) Intent {
	return Intent{
		IntentKey:    IntentKey{RecordID: recordID, GUID: guid},
		Direction:    DirectionDownload,
		IncludeMedia: true,
	}
}
