package compose

import (
	"cmp"
	"errors"
	stdimage "image"
	"log/slog"
	"slices"

	"github.com/gogpu/compose/internal/image"
	"github.com/gogpu/compose/internal/texture"
)

// Registry owns one RenderObject per live node id.
//
// Registry is not safe for concurrent use; it belongs to the render
// goroutine. Only the texture cache underneath it is shared with decode
// goroutines.
type Registry struct {
	cache   *texture.Cache
	pool    *image.Pool
	log     func() *slog.Logger
	metrics *metrics

	objects    map[NodeID]*RenderObject
	ordered    []*RenderObject
	orderDirty bool

	// While a batch is applied, shared releases are held in released so a
	// symbol removed and re-added by the same batch keeps its texture.
	syncing  bool
	released []string
}

func newRegistry(cache *texture.Cache, pool *image.Pool, log func() *slog.Logger, m *metrics) *Registry {
	return &Registry{
		cache:   cache,
		pool:    pool,
		log:     log,
		metrics: m,
		objects: make(map[NodeID]*RenderObject),
	}
}

// Sync applies one change batch: removals first, then additions, then
// updates. Shared texture references dropped by the batch are released
// after it is applied.
//
// A duplicate addition is applied as an update and an update of an unknown
// id as an addition. Nodes that fail validation still get an object when
// they carry an id; it stays non-renderable until a valid update arrives.
// The returned error joins one *NodeError per invalid node; valid nodes of
// the same batch are applied regardless.
func (r *Registry) Sync(b Batch) error {
	r.syncing = true
	defer r.flushReleases()

	var errs []error
	for _, id := range b.Removed {
		r.remove(id)
	}
	for i := range b.Added {
		if err := r.upsert(&b.Added[i]); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range b.Updated {
		if err := r.upsert(&b.Updated[i]); err != nil {
			errs = append(errs, err)
		}
	}
	r.metrics.syncBatches.Inc()
	return errors.Join(errs...)
}

// upsert creates or updates the object for n.
func (r *Registry) upsert(n *SceneNode) error {
	verr := n.Validate()
	if n.ID == "" {
		return &NodeError{Err: verr}
	}

	obj, ok := r.objects[n.ID]
	if !ok {
		obj = &RenderObject{state: StatePending}
		r.objects[n.ID] = obj
		r.orderDirty = true
	} else if obj.node.ZOrder != n.ZOrder {
		r.orderDirty = true
	}

	obj.node = *n
	if n.Grading != nil {
		g := *n.Grading
		obj.node.Grading = &g
	}

	if verr != nil {
		obj.invalid = verr
		obj.state = StatePending
		r.log().Debug("compose: invalid node", "id", n.ID, "err", verr)
		return &NodeError{ID: n.ID, Err: verr}
	}
	obj.invalid = nil
	obj.maskReported = false
	obj.rebuildFilters()
	r.bind(obj)
	if n.Kind != KindAdjustment && obj.adjustment != nil {
		obj.adjustment.free(r.pool)
		obj.adjustment = nil
	}
	return nil
}

// remove destroys the object for id, if any.
func (r *Registry) remove(id NodeID) {
	obj, ok := r.objects[id]
	if !ok {
		r.log().Debug("compose: remove of unknown node", "id", id)
		return
	}
	r.destroy(obj)
	delete(r.objects, id)
	r.orderDirty = true
}

// destroy releases every resource held by obj.
func (r *Registry) destroy(obj *RenderObject) {
	r.unbind(obj)
	if obj.adjustment != nil {
		obj.adjustment.free(r.pool)
		obj.adjustment = nil
	}
	obj.state = StateDestroyed
}

// bind points obj at the texture its node asks for, releasing the previous
// one when the source identity changed.
func (r *Registry) bind(obj *RenderObject) {
	want := desiredBinding(&obj.node)
	if want == obj.binding {
		return
	}
	r.unbind(obj)
	obj.binding = want
	switch {
	case want.none():
		return
	case want.shared():
		obj.future = r.cache.Acquire(want.symbolID, want.source)
	default:
		obj.future = r.cache.Load(want.source)
	}
	obj.state = StatePending
	r.attach(obj)
}

// unbind drops obj's texture reference.
func (r *Registry) unbind(obj *RenderObject) {
	if obj.future != nil {
		switch {
		case obj.binding.shared() && r.syncing:
			r.released = append(r.released, obj.binding.symbolID)
		case obj.binding.shared():
			r.cache.Release(obj.binding.symbolID)
		default:
			obj.future.Discard()
		}
	}
	obj.binding = textureBinding{}
	obj.future = nil
	obj.tex = nil
	obj.decodeErr = nil
}

// flushReleases ends a batch and drops the references it released.
func (r *Registry) flushReleases() {
	r.syncing = false
	for _, symbolID := range r.released {
		r.cache.Release(symbolID)
	}
	r.released = r.released[:0]
}

// attach checks obj's future without blocking.
func (r *Registry) attach(obj *RenderObject) {
	if obj.future == nil || obj.tex != nil || obj.decodeErr != nil {
		return
	}
	tex, err := obj.future.Result()
	switch {
	case errors.Is(err, texture.ErrPending):
		return
	case err != nil:
		obj.decodeErr = err
		r.metrics.nodeFailures.Inc()
		r.log().Warn("compose: texture decode failed", "id", obj.node.ID, "source", obj.binding.source, "err", err)
	default:
		obj.tex = tex
		r.log().Debug("compose: texture attached", "id", obj.node.ID,
			"width", tex.Width(), "height", tex.Height())
	}
}

// Poll attaches every texture whose decode finished since the last call.
// It never blocks.
func (r *Registry) Poll() {
	for _, obj := range r.objects {
		r.attach(obj)
	}
}

// Object returns the object for id.
func (r *Registry) Object(id NodeID) (*RenderObject, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

// Len returns the number of live objects.
func (r *Registry) Len() int {
	return len(r.objects)
}

// Ordered returns the live objects in ascending z-order, ties broken by id.
// The slice is shared; callers must not modify it.
func (r *Registry) Ordered() []*RenderObject {
	if r.orderDirty || len(r.ordered) != len(r.objects) {
		r.ordered = r.ordered[:0]
		for _, obj := range r.objects {
			r.ordered = append(r.ordered, obj)
		}
		slices.SortFunc(r.ordered, func(a, b *RenderObject) int {
			if c := cmp.Compare(a.node.ZOrder, b.node.ZOrder); c != 0 {
				return c
			}
			return cmp.Compare(a.node.ID, b.node.ID)
		})
		r.orderDirty = false
	}
	return r.ordered
}

// Teardown destroys every object. Used on context loss and Close.
func (r *Registry) Teardown() {
	for id, obj := range r.objects {
		r.destroy(obj)
		delete(r.objects, id)
	}
	r.ordered = r.ordered[:0]
	r.orderDirty = false
}

// maskSource is the alpha source of a clipping parent for one frame.
type maskSource struct {
	rect stdimage.Rectangle
	buf  *image.Buf
}

// maskFor resolves obj's clipping parent. It returns nil when the node is
// unmasked, including when the parent is missing or not ready.
func (r *Registry) maskFor(obj *RenderObject) *maskSource {
	pid := obj.node.ClippingParentID
	if pid == "" {
		return nil
	}
	parent, ok := r.objects[pid]
	if !ok || !parent.drawable() {
		if !obj.maskReported {
			obj.maskReported = true
			r.log().Debug("compose: drawing unmasked", "id", obj.node.ID, "parent", pid,
				"err", ErrMissingMaskParent)
		}
		return nil
	}
	m := &maskSource{rect: parent.transform.Rect}
	if parent.tex != nil && parent.node.Kind != KindAdjustment {
		m.buf = parent.tex.Buf()
	}
	return m
}
