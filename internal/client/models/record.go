package models

// NeverSynced is the LastSyncVersion of a record that was never linked to
// a remote version.
const NeverSynced int64 = -1

// Record is one photo in the local library.
type Record struct {
	// ID is assigned by the store on first put and never reused.
	ID int64
	// GUID is the remote file id, empty until the first upload succeeds.
	GUID string

	OriginalRef  *string
	EditedRef    *string
	ThumbnailRef *string

	Transform Transform

	LocalImageChanges  bool
	LocalFilterChanges bool

	LastSyncVersion int64
}

// NewRecord returns an unsaved record with the default transform.
func NewRecord() *Record {
	return &Record{
		Transform:       DefaultTransform(),
		LastSyncVersion: NeverSynced,
	}
}

// Dirty reports local changes not yet uploaded.
func (r *Record) Dirty() bool {
	return r.LocalImageChanges || r.LocalFilterChanges
}

// HasOriginal reports whether the record points at original content.
func (r *Record) HasOriginal() bool {
	return r.OriginalRef != nil && *r.OriginalRef != ""
}

// Refs returns the content refs held by the record.
func (r *Record) Refs() []string {
	refs := make([]string, 0, 3)
	for _, ref := range []*string{r.OriginalRef, r.EditedRef, r.ThumbnailRef} {
		if ref != nil && *ref != "" {
			refs = append(refs, *ref)
		}
	}
	return refs
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.OriginalRef = cloneRef(r.OriginalRef)
	c.EditedRef = cloneRef(r.EditedRef)
	c.ThumbnailRef = cloneRef(r.ThumbnailRef)
	return &c
}

// Ref returns a pointer to a copy of s.
func Ref(s string) *string {
	return &s
}

func cloneRef(p *string) *string {
	if p == nil {
		return nil
	}
	return Ref(*p)
}

// LocalUpdate is what a local edit writes back to a stored record. Nil
// fields are left as stored; the change flags are only ever raised.
type LocalUpdate struct {
	OriginalRef  *string
	EditedRef    *string
	ThumbnailRef *string
	Transform    *Transform

	ImageChanged  bool
	FilterChanged bool
}
