package sink

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/engine"
)

// DefaultDedupSize is how many recent payload hashes Dedup remembers.
const DefaultDedupSize = 1000

// Dedup drops payloads whose data was already seen among the last size
// payloads and passes the rest to next. Only the data object is hashed, so
// the same screen captured at two instants is one payload.
type Dedup struct {
	mu     sync.Mutex
	next   Sink
	seen   *roaring.Bitmap
	order  []uint32 // ring of hashes in insertion order
	head   int
	size   int
	logger *slog.Logger
}

func NewDedup(size int, next Sink, logger *slog.Logger) *Dedup {
	if size <= 0 {
		size = DefaultDedupSize
	}
	return &Dedup{
		next:   next,
		seen:   roaring.New(),
		order:  make([]uint32, 0, size),
		size:   size,
		logger: logger,
	}
}

// Push forwards p unless its hash is among the remembered ones.
func (d *Dedup) Push(ctx context.Context, p *engine.Payload) {
	h, err := payloadHash(p)
	if err != nil {
		d.logger.Error("hash payload", "error", err)
		return
	}
	if !d.remember(h) {
		d.logger.Debug("duplicate payload dropped", "hash", h, "package", p.PackageName)
		return
	}
	d.logger.Debug("new payload", "hash", h, "package", p.PackageName)
	d.next.Push(ctx, p)
}

// remember records h and reports whether it was new. The oldest hash is
// evicted once size hashes are held.
func (d *Dedup) remember(h uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(h) {
		return false
	}
	if len(d.order) < d.size {
		d.order = append(d.order, h)
	} else {
		d.seen.Remove(d.order[d.head])
		d.order[d.head] = h
		d.head = (d.head + 1) % d.size
	}
	d.seen.Add(h)
	return true
}

// Len returns the number of remembered hashes.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.seen.GetCardinality())
}

func payloadHash(p *engine.Payload) (uint32, error) {
	var (
		raw []byte
		err error
	)
	if p.Data != nil {
		raw, err = document.Marshal(p.Data)
	} else {
		raw, err = p.Marshal()
	}
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write(raw)
	return h.Sum32(), nil
}
