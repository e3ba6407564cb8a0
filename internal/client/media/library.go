package media

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapkeeper_media_cache_hits_total",
		Help: "Record handles served from the in-memory cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapkeeper_media_cache_misses_total",
		Help: "Record handles loaded from the record store.",
	})
)

// RecordReader loads stored records for Open.
type RecordReader interface {
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
}

type LibraryStorage interface {
	Storage
	RecordReader
}

type Options struct {
	ThumbnailHeight int
	CacheSize       int
	CacheTTL        time.Duration
}

func DefaultOptions() Options {
	return Options{ThumbnailHeight: 300, CacheSize: 128, CacheTTL: 10 * time.Minute}
}

// Library hands out record handles and keeps recently used ones in memory
// so rendered variants survive between calls.
type Library struct {
	st       LibraryStorage
	renderer Renderer
	opts     Options
	cache    *expirable.LRU[int64, *Record]
	log      logging.Logger
}

func NewLibrary(st LibraryStorage, renderer Renderer, opts Options, log logging.Logger) *Library {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if opts.ThumbnailHeight <= 0 {
		opts.ThumbnailHeight = DefaultOptions().ThumbnailHeight
	}
	return &Library{
		st:       st,
		renderer: renderer,
		opts:     opts,
		cache:    expirable.NewLRU[int64, *Record](opts.CacheSize, nil, opts.CacheTTL),
		log:      log,
	}
}

// New returns a handle for a record that is not stored yet.
func (l *Library) New() *Record {
	return newHandle(models.NewRecord(), l.st, l.renderer, l.opts.ThumbnailHeight)
}

// Open returns the handle for a stored record.
func (l *Library) Open(ctx context.Context, id int64) (*Record, error) {
	if h, ok := l.cache.Get(id); ok {
		cacheHits.Inc()
		return h, nil
	}
	cacheMisses.Inc()

	rec, err := l.st.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	h := newHandle(rec, l.st, l.renderer, l.opts.ThumbnailHeight)
	l.cache.Add(id, h)
	return h, nil
}

// Save persists the handle and keeps it cached under its id. A handle
// whose record is gone is dropped from the cache.
func (l *Library) Save(ctx context.Context, h *Record) error {
	if err := h.Save(ctx); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			l.cache.Remove(h.ID())
		}
		return err
	}
	l.cache.Add(h.ID(), h)
	return nil
}

func (l *Library) Evict(id int64) {
	l.cache.Remove(id)
}

func (l *Library) Len() int {
	return l.cache.Len()
}

// Watch drops cached handles for records that changed underneath them.
func (l *Library) Watch(bus *notify.Bus) notify.SubscriptionID {
	return bus.Subscribe(notify.ChannelSync, func(ctx context.Context, msg notify.Message) {
		if msg.Type == models.ChangeAdd {
			return
		}
		if l.cache.Remove(msg.ID) {
			l.log.Debug(ctx, "evicted cached record", "id", msg.ID, "change", string(msg.Type))
		}
	})
}
