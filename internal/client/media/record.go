package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

var ErrNoOriginal = errors.New("record has no original")

// Renderer produces a variant from an original. It must be deterministic
// for a given (src, transform, targetHeight).
type Renderer interface {
	Render(ctx context.Context, src []byte, t models.Transform, targetHeight int) ([]byte, error)
}

// Storage is the part of the record store a handle needs.
type Storage interface {
	GetContent(ctx context.Context, ref string) ([]byte, error)
	PutContent(ctx context.Context, ref string, data []byte) error
	PutRecord(ctx context.Context, r *models.Record) (int64, error)
	UpdateRecordLocal(ctx context.Context, id int64, u models.LocalUpdate) error
}

// Record is an in-memory handle over one stored record and its media.
type Record struct {
	mu          sync.Mutex
	rec         *models.Record
	st          Storage
	renderer    Renderer
	thumbHeight int

	state [3]SlotState
	data  [3][]byte

	// edits not yet written to the store
	imageEdited  bool
	filterEdited bool
	refUnsaved   [3]bool
}

func newHandle(rec *models.Record, st Storage, renderer Renderer, thumbHeight int) *Record {
	h := &Record{rec: rec, st: st, renderer: renderer, thumbHeight: thumbHeight}
	for _, s := range []Slot{SlotOriginal, SlotEdited, SlotThumbnail} {
		if ref := h.ref(s); ref != nil && *ref != "" {
			h.state[s] = NotLoaded
		} else if s == SlotOriginal {
			h.state[s] = NotLoaded
		} else {
			h.state[s] = OutOfDate
		}
	}
	return h
}

func (h *Record) ref(s Slot) *string {
	switch s {
	case SlotOriginal:
		return h.rec.OriginalRef
	case SlotEdited:
		return h.rec.EditedRef
	default:
		return h.rec.ThumbnailRef
	}
}

func (h *Record) setRef(s Slot, ref string) {
	switch s {
	case SlotOriginal:
		h.rec.OriginalRef = models.Ref(ref)
	case SlotEdited:
		h.rec.EditedRef = models.Ref(ref)
	default:
		h.rec.ThumbnailRef = models.Ref(ref)
	}
}

func (h *Record) ID() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rec.ID
}

// Snapshot returns a copy of the underlying record.
func (h *Record) Snapshot() *models.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rec.Clone()
}

func (h *Record) State(s Slot) SlotState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state[s]
}

func (h *Record) SetOriginal(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.data[SlotOriginal] = data
	h.state[SlotOriginal] = Changed
	h.invalidateVariants()
	h.rec.LocalImageChanges = true
	h.imageEdited = true
}

func (h *Record) SetTransform(t models.Transform) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.rec.Transform = t
	h.invalidateVariants()
	h.rec.LocalFilterChanges = true
	h.filterEdited = true
}

func (h *Record) invalidateVariants() {
	for _, s := range []Slot{SlotEdited, SlotThumbnail} {
		h.data[s] = nil
		h.state[s] = OutOfDate
	}
}

func (h *Record) Original(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.original(ctx)
}

func (h *Record) original(ctx context.Context) ([]byte, error) {
	if h.state[SlotOriginal] == NotLoaded {
		ref := h.ref(SlotOriginal)
		if ref == nil || *ref == "" {
			return nil, ErrNoOriginal
		}
		data, err := h.st.GetContent(ctx, *ref)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, ErrNoOriginal
			}
			return nil, fmt.Errorf("failed to load original: %w", err)
		}
		h.data[SlotOriginal] = data
		h.state[SlotOriginal] = Loaded
	}
	if h.data[SlotOriginal] == nil {
		return nil, ErrNoOriginal
	}
	return h.data[SlotOriginal], nil
}

// Edited returns the filtered full size image, rendering it when stale.
func (h *Record) Edited(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.variant(ctx, SlotEdited)
}

// Thumbnail returns the filtered image scaled to the thumbnail height.
func (h *Record) Thumbnail(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.variant(ctx, SlotThumbnail)
}

// EditedOrOriginal falls back to the original when rendering fails.
func (h *Record) EditedOrOriginal(ctx context.Context) ([]byte, error) {
	data, err := h.Edited(ctx)
	if errors.Is(err, common.ErrRender) {
		return h.Original(ctx)
	}
	return data, err
}

func (h *Record) variant(ctx context.Context, s Slot) ([]byte, error) {
	if h.state[s] == NotLoaded {
		data, err := h.st.GetContent(ctx, *h.ref(s))
		switch {
		case err == nil:
			h.data[s] = data
			h.state[s] = Loaded
		case errors.Is(err, common.ErrorNotFound):
			h.state[s] = OutOfDate
		default:
			return nil, fmt.Errorf("failed to load %s: %w", s, err)
		}
	}
	if h.state[s] == OutOfDate {
		if err := h.render(ctx, s); err != nil {
			return nil, err
		}
	}
	return h.data[s], nil
}

func (h *Record) render(ctx context.Context, s Slot) error {
	src, err := h.original(ctx)
	if err != nil {
		return err
	}
	height := 0
	if s == SlotThumbnail {
		height = h.thumbHeight
	}
	out, err := h.renderer.Render(ctx, src, h.rec.Transform, height)
	if err != nil {
		if errors.Is(err, common.ErrRender) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", common.ErrRender, s, err)
	}
	h.data[s] = out
	h.state[s] = Changed
	return nil
}

// Save renders stale variants, writes changed slots to content storage
// reusing their refs, and persists the record. Nothing is written when
// rendering fails. A record without an original only persists its fields.
//
// A stored record only gets the written refs and the pending edits; its
// GUID and sync version belong to the sync engine. Saving a record that
// was deleted meanwhile reports common.ErrorNotFound.
func (h *Record) Save(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.original(ctx); err == nil {
		for _, s := range []Slot{SlotEdited, SlotThumbnail} {
			if h.state[s] == OutOfDate {
				if err := h.render(ctx, s); err != nil {
					return err
				}
			}
		}
	} else if !errors.Is(err, ErrNoOriginal) {
		return err
	}

	for _, s := range []Slot{SlotOriginal, SlotEdited, SlotThumbnail} {
		if h.state[s] != Changed || h.data[s] == nil {
			continue
		}
		ref := ""
		if p := h.ref(s); p != nil && *p != "" {
			ref = *p
		} else {
			ref = content.NewRef()
		}
		if err := h.st.PutContent(ctx, ref, h.data[s]); err != nil {
			return fmt.Errorf("failed to store %s: %w", s, err)
		}
		h.setRef(s, ref)
		h.state[s] = Loaded
		h.refUnsaved[s] = true
	}

	if h.rec.ID == 0 {
		id, err := h.st.PutRecord(ctx, h.rec)
		if err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
		h.rec.ID = id
	} else if err := h.st.UpdateRecordLocal(ctx, h.rec.ID, h.localUpdate()); err != nil {
		return fmt.Errorf("failed to store record %d: %w", h.rec.ID, err)
	}
	h.imageEdited, h.filterEdited = false, false
	h.refUnsaved = [3]bool{}
	return nil
}

func (h *Record) localUpdate() models.LocalUpdate {
	u := models.LocalUpdate{ImageChanged: h.imageEdited, FilterChanged: h.filterEdited}
	for _, s := range []Slot{SlotOriginal, SlotEdited, SlotThumbnail} {
		if !h.refUnsaved[s] {
			continue
		}
		ref := h.ref(s)
		switch s {
		case SlotOriginal:
			u.OriginalRef = ref
		case SlotEdited:
			u.EditedRef = ref
		default:
			u.ThumbnailRef = ref
		}
	}
	if h.filterEdited {
		t := h.rec.Transform
		u.Transform = &t
	}
	return u
}
