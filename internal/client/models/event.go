package models

// ChangeType tells subscribers what happened to a record during sync.
type ChangeType string

const (
	ChangeAdd    ChangeType = "ADD"
	ChangeRemove ChangeType = "REMOVE"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeEvent is the payload of the "sync" channel.
type ChangeEvent struct {
	Type ChangeType `json:"type"`
	ID   int64      `json:"id"`
}
