package media

type SlotState int

const (
	NotLoaded SlotState = iota
	Loaded
	Changed
	OutOfDate
)

func (s SlotState) String() string {
	switch s {
	case NotLoaded:
		return "not-loaded"
	case Loaded:
		return "loaded"
	case Changed:
		return "changed"
	case OutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

type Slot int

const (
	SlotOriginal Slot = iota
	SlotEdited
	SlotThumbnail
)

func (s Slot) String() string {
	return [...]string{"original", "edited", "thumbnail"}[s]
}
