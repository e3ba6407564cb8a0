package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/cryptox"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// errDrop marks an intent that can never succeed; it is removed from the
// queue without being applied.
var errDrop = errors.New("intent dropped")

const (
	outcomeDone    = "done"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

// DrainResult counts what one Drain did with the queue.
type DrainResult struct {
	Done    int
	Dropped int
	Failed  int
}

type Executor struct {
	store  Store
	remote client.Remote
	auth   AuthSource
	folder *Folder
	pub    notify.Publisher
	now    func() time.Time
	log    logging.Logger
}

func NewExecutor(store Store, remote client.Remote, auth AuthSource, folder *Folder, pub notify.Publisher, log logging.Logger) *Executor {
	return &Executor{
		store:  store,
		remote: remote,
		auth:   auth,
		folder: folder,
		pub:    pub,
		now:    time.Now,
		log:    log.With("component", "executor"),
	}
}

// Drain applies every queued intent in queue order. An auth failure stops
// the drain with the intent still queued; any other failure leaves that
// intent queued and moves on. Canceling ctx stops the drain between
// intents, never in the middle of one.
func (e *Executor) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	auth := e.auth.Current()
	if !auth.Valid(e.now()) {
		return res, client.ErrUnauthorized
	}

	queue, err := e.store.ListIntents(ctx)
	if err != nil {
		return res, err
	}

	for _, in := range queue {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := e.apply(context.WithoutCancel(ctx), auth, &in)
		switch {
		case err == nil:
			res.Done++
			executorIntents.WithLabelValues(string(in.Direction), outcomeDone).Inc()
		case errors.Is(err, errDrop):
			e.log.Info(ctx, "dropping intent", "record", in.RecordID, "guid", in.GUID, "direction", in.Direction, "reason", err)
			if rerr := e.store.RemoveIntent(ctx, in.IntentKey); rerr != nil {
				return res, rerr
			}
			res.Dropped++
			executorIntents.WithLabelValues(string(in.Direction), outcomeDropped).Inc()
		case errors.Is(err, client.ErrUnauthorized), errors.Is(err, common.ErrStorageUnavailable):
			executorIntents.WithLabelValues(string(in.Direction), outcomeFailed).Inc()
			return res, err
		default:
			e.log.Warn(ctx, "intent failed, left queued", "record", in.RecordID, "guid", in.GUID, "direction", in.Direction, "err", err)
			res.Failed++
			executorIntents.WithLabelValues(string(in.Direction), outcomeFailed).Inc()
		}
	}

	if res.Done+res.Dropped+res.Failed > 0 {
		e.log.Info(ctx, "drain done", "done", res.Done, "dropped", res.Dropped, "failed", res.Failed)
	}
	return res, nil
}

func (e *Executor) apply(ctx context.Context, auth client.AuthContext, in *models.Intent) error {
	var (
		change models.ChangeType
		id     int64
		err    error
	)
	switch in.Direction {
	case models.DirectionUpload:
		change, id, err = e.upload(ctx, auth, in)
	case models.DirectionDownload:
		change, id, err = e.download(ctx, auth, in)
	default:
		err = fmt.Errorf("%w: unknown direction %q", errDrop, in.Direction)
	}
	if err != nil {
		return err
	}

	if err := e.store.RemoveIntent(ctx, in.IntentKey); err != nil {
		return err
	}
	e.pub.Publish(ctx, notify.SyncMessage(change, id))
	return nil
}

// upload pushes the transform, and the original when IncludeMedia is set.
// An intent without a GUID creates a new remote file; once created the
// intent is re-keyed to the new GUID so a retry updates that file instead
// of creating another one.
func (e *Executor) upload(ctx context.Context, auth client.AuthContext, in *models.Intent) (models.ChangeType, int64, error) {
	rec, err := e.store.GetRecord(ctx, in.RecordID)
	if err != nil {
		return "", 0, dropIfNotFound(err, "record is gone")
	}
	if !rec.HasOriginal() {
		return "", 0, fmt.Errorf("%w: record %d has no original", errDrop, rec.ID)
	}
	original, err := e.store.GetContent(ctx, *rec.OriginalRef)
	if err != nil {
		return "", 0, dropIfNotFound(err, "original is gone")
	}

	sent := rec.Transform
	attrs := sent.Attributes()
	version := rec.LastSyncVersion
	guid := in.GUID

	if guid == "" {
		folderID, err := e.folder.ID(ctx, auth)
		if err != nil {
			return "", 0, err
		}
		created, err := e.remote.CreateFile(ctx, auth, models.RemoteFile{
			Name:       fmt.Sprintf("%d_%d", rec.ID, e.now().UnixMilli()),
			MimeType:   http.DetectContentType(original),
			Parents:    []string{folderID},
			Attributes: attrs,
		})
		if err != nil {
			return "", 0, err
		}
		guid = created.ID
		version = created.Version

		if err := e.store.SetRecordGUID(ctx, rec.ID, guid); err != nil {
			return "", 0, dropIfNotFound(err, "record deleted during upload")
		}
		if err := e.rekey(ctx, in, guid); err != nil {
			return "", 0, err
		}
	} else {
		updated, err := e.remote.UpdateMetadata(ctx, auth, models.RemoteFile{ID: guid, Attributes: attrs})
		if err != nil {
			return "", 0, dropIfNotFound(err, "remote file is gone")
		}
		version = updated.Version
	}

	if in.IncludeMedia {
		updated, err := e.remote.UpdateContent(ctx, auth, guid, original)
		if err != nil {
			return "", 0, err
		}
		version = updated.Version
	}

	// the record may have been edited while the request was in flight
	imageSynced := false
	if in.IncludeMedia {
		if imageSynced, err = e.originalUnchanged(ctx, rec.ID, original); err != nil {
			return "", 0, dropIfNotFound(err, "record deleted during upload")
		}
	}
	if err := e.store.MarkRecordSynced(ctx, rec.ID, guid, version, sent, imageSynced); err != nil {
		return "", 0, dropIfNotFound(err, "record deleted during upload")
	}

	e.log.Debug(ctx, "uploaded", "id", rec.ID, "guid", guid, "version", version, "media", in.IncludeMedia)
	return models.ChangeUpdate, rec.ID, nil
}

// originalUnchanged reports whether the stored original still has the
// bytes that were uploaded. Save reuses refs, so the content is compared.
func (e *Executor) originalUnchanged(ctx context.Context, id int64, uploaded []byte) (bool, error) {
	cur, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return false, err
	}
	if !cur.HasOriginal() {
		return false, nil
	}
	data, err := e.store.GetContent(ctx, *cur.OriginalRef)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cryptox.Checksum(data) == cryptox.Checksum(uploaded), nil
}

func (e *Executor) rekey(ctx context.Context, in *models.Intent, guid string) error {
	next := models.UploadIntent(in.RecordID, guid, in.IncludeMedia)
	if err := e.store.PutIntent(ctx, next); err != nil {
		return err
	}
	if err := e.store.RemoveIntent(ctx, in.IntentKey); err != nil {
		return err
	}
	*in = next
	return nil
}

// download replaces the local original with the remote content and takes
// the transform from the remote attributes. The old original and derived
// variants are released; variants render again on next use. A record with
// local changes is left alone, also when it is edited mid-download; the
// next pass uploads it instead.
func (e *Executor) download(ctx context.Context, auth client.AuthContext, in *models.Intent) (models.ChangeType, int64, error) {
	rec, err := e.linkedRecord(ctx, in)
	if err != nil {
		return "", 0, err
	}
	if rec != nil && rec.Dirty() {
		return "", 0, fmt.Errorf("%w: record %d has local changes", errDrop, rec.ID)
	}

	file, err := e.remote.GetFile(ctx, auth, in.GUID)
	if err != nil {
		return "", 0, dropIfNotFound(err, "remote file is gone")
	}
	if file.Trashed {
		return "", 0, fmt.Errorf("%w: remote file %s is trashed", errDrop, in.GUID)
	}
	data, err := e.remote.GetContent(ctx, auth, in.GUID)
	if err != nil {
		return "", 0, dropIfNotFound(err, "remote file is gone")
	}

	change := models.ChangeUpdate
	if rec == nil {
		rec = models.NewRecord()
		change = models.ChangeAdd
	}

	ref := content.NewRef()
	if err := e.store.PutContent(ctx, ref, data); err != nil {
		return "", 0, err
	}

	stale := rec.Refs()
	rec.OriginalRef = models.Ref(ref)
	rec.EditedRef = nil
	rec.ThumbnailRef = nil
	rec.GUID = file.ID
	rec.Transform = models.TransformFromAttributes(file.Attributes, rec.Transform)
	rec.LocalImageChanges = false
	rec.LocalFilterChanges = false
	rec.LastSyncVersion = file.Version

	id := rec.ID
	if change == models.ChangeAdd {
		id, err = e.store.PutRecord(ctx, rec)
	} else {
		err = e.store.ApplyRemoteRecord(ctx, rec)
	}
	if err != nil {
		if derr := e.store.DeleteContent(ctx, ref); derr != nil {
			e.log.Warn(ctx, "failed to release downloaded original", "guid", file.ID, "err", derr)
		}
		return "", 0, dropIfNotFound(err, "record changed during download")
	}
	if len(stale) > 0 {
		if err := e.store.DeleteContent(ctx, stale...); err != nil {
			e.log.Warn(ctx, "failed to release replaced content", "id", id, "err", err)
		}
	}

	e.log.Debug(ctx, "downloaded", "id", id, "guid", file.ID, "version", file.Version)
	return change, id, nil
}

// linkedRecord finds the record a download applies to: by id when the
// intent has one, else by GUID. nil means a new record.
func (e *Executor) linkedRecord(ctx context.Context, in *models.Intent) (*models.Record, error) {
	if in.RecordID != 0 {
		rec, err := e.store.GetRecord(ctx, in.RecordID)
		if err != nil {
			return nil, dropIfNotFound(err, "record is gone")
		}
		return rec, nil
	}
	rec, err := e.store.GetRecordByGUID(ctx, in.GUID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return rec, err
}

func dropIfNotFound(err error, reason string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %s", errDrop, reason)
	}
	return err
}
