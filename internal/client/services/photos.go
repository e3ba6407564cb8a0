package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/dmitrijs2005/snapkeeper/internal/client/media"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

var ErrUnknownVariant = errors.New("unknown variant")

// PhotoStore is the part of the record store the photo service uses
// directly; media handles go through the Library.
type PhotoStore interface {
	ListRecords(ctx context.Context) ([]*models.Record, error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	DeleteRecord(ctx context.Context, id int64, refs []string) error
}

type PhotoService interface {
	Import(ctx context.Context, data []byte) (int64, error)
	ImportFile(ctx context.Context, path string) (int64, error)
	List(ctx context.Context) ([]*models.Record, error)
	Show(ctx context.Context, id int64) (*models.Record, error)
	Edit(ctx context.Context, id int64, assignments []string) (*models.Record, error)
	Randomize(ctx context.Context, id int64, seed uint64) (*models.Record, error)
	Variant(ctx context.Context, id int64, variant string) ([]byte, error)
	Export(ctx context.Context, id int64, variant, path string) error
	Delete(ctx context.Context, id int64) error
}

type photoService struct {
	store PhotoStore
	lib   *media.Library
	pub   notify.Publisher
	log   logging.Logger
}

func NewPhotoService(store PhotoStore, lib *media.Library, pub notify.Publisher, log logging.Logger) PhotoService {
	return &photoService{store: store, lib: lib, pub: pub, log: log.With("component", "photos")}
}

// Import stores data as the original of a new record and renders its
// variants. Data the renderer cannot decode is rejected before anything
// is written.
func (s *photoService) Import(ctx context.Context, data []byte) (int64, error) {
	h := s.lib.New()
	h.SetOriginal(data)
	if err := s.lib.Save(ctx, h); err != nil {
		return 0, fmt.Errorf("failed to import photo: %w", err)
	}
	id := h.ID()
	s.log.Info(ctx, "photo imported", "id", id, "size", len(data))
	s.pub.Publish(ctx, notify.SyncMessage(models.ChangeAdd, id))
	return id, nil
}

func (s *photoService) ImportFile(ctx context.Context, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.Import(ctx, data)
}

func (s *photoService) List(ctx context.Context) ([]*models.Record, error) {
	return s.store.ListRecords(ctx)
}

func (s *photoService) Show(ctx context.Context, id int64) (*models.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// Edit applies name=value assignments to the record's transform.
func (s *photoService) Edit(ctx context.Context, id int64, assignments []string) (*models.Record, error) {
	return s.updateTransform(ctx, id, func(t *models.Transform) error {
		return t.ApplyAssignments(assignments)
	})
}

func (s *photoService) Randomize(ctx context.Context, id int64, seed uint64) (*models.Record, error) {
	return s.updateTransform(ctx, id, func(t *models.Transform) error {
		t.Randomize(rand.New(rand.NewPCG(seed, seed>>1|1)))
		return nil
	})
}

func (s *photoService) updateTransform(ctx context.Context, id int64, fn func(t *models.Transform) error) (*models.Record, error) {
	h, err := s.lib.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	t := h.Snapshot().Transform
	if err := fn(&t); err != nil {
		return nil, err
	}
	h.SetTransform(t)
	if err := s.lib.Save(ctx, h); err != nil {
		s.lib.Evict(id)
		return nil, fmt.Errorf("failed to save record %d: %w", id, err)
	}
	s.pub.Publish(ctx, notify.SyncMessage(models.ChangeUpdate, id))
	return h.Snapshot(), nil
}

// Variant returns the bytes of "original", "edited" or "thumbnail".
func (s *photoService) Variant(ctx context.Context, id int64, variant string) ([]byte, error) {
	h, err := s.lib.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	switch variant {
	case media.SlotOriginal.String():
		return h.Original(ctx)
	case media.SlotEdited.String():
		return h.EditedOrOriginal(ctx)
	case media.SlotThumbnail.String():
		return h.Thumbnail(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

func (s *photoService) Export(ctx context.Context, id int64, variant, path string) error {
	data, err := s.Variant(ctx, id, variant)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Delete removes the record and releases its content. The remote copy is
// left alone.
func (s *photoService) Delete(ctx context.Context, id int64) error {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, id, rec.Refs()); err != nil {
		return err
	}
	s.lib.Evict(id)
	s.pub.Publish(ctx, notify.SyncMessage(models.ChangeRemove, id))
	return nil
}
