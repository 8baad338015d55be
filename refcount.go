package compositor

import "sync/atomic"

// refSerial hands out identities for ref-counted objects. Identities are
// never reused, so they give a stable ordering for handle comparison.
var refSerial atomic.Uint64

// Counted is implemented by every object whose lifetime is governed by
// reference counting: display nodes, textures, and animations.
type Counted interface {
	AddRef()
	Release()
	RefID() uint64
}

// RefCounted is embedded by ref-counted types. Objects start with a count of
// zero and are owned once the first handle is taken with NewRef. The destroy
// hook runs synchronously, exactly once, when the count drops back to zero.
type RefCounted struct {
	refs      atomic.Int64
	id        uint64
	destroyed atomic.Bool
	destroy   func()
}

// initRef assigns the object's identity and destroy hook. Called by the
// embedding type's constructor.
func (r *RefCounted) initRef(destroy func()) {
	r.id = refSerial.Add(1)
	r.destroy = destroy
}

// AddRef increments the reference count. Safe from any goroutine that holds
// a valid handle.
func (r *RefCounted) AddRef() {
	if r.destroyed.Load() {
		panic("compositor: AddRef on destroyed object")
	}
	r.refs.Add(1)
}

// Release decrements the reference count and destroys the object when it
// reaches zero.
func (r *RefCounted) Release() {
	n := r.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("compositor: release of destroyed object")
	}
	if r.destroyed.CompareAndSwap(false, true) && r.destroy != nil {
		r.destroy()
	}
}

// RefID returns the object's identity.
func (r *RefCounted) RefID() uint64 {
	return r.id
}

// RefCount returns the current reference count. Intended for diagnostics.
func (r *RefCounted) RefCount() int64 {
	return r.refs.Load()
}

// IsDestroyed reports whether the destroy hook has run.
func (r *RefCounted) IsDestroyed() bool {
	return r.destroyed.Load()
}

// refTarget constrains Ref to comparable Counted types (pointers or
// interfaces), so handles can compare identity and detect emptiness.
type refTarget interface {
	comparable
	Counted
}

// Ref is an owning handle. Copying a Ref by assignment does NOT add a
// reference; use Clone for that. The zero Ref is empty.
//
// Calling through an empty handle is a caller error: check IsEmpty first.
type Ref[T refTarget] struct {
	ptr T
}

// NewRef takes a new reference on p. A zero p yields an empty handle.
func NewRef[T refTarget](p T) Ref[T] {
	var zero T
	if p != zero {
		p.AddRef()
	}
	return Ref[T]{ptr: p}
}

// Get returns the referenced object, or the zero value for an empty handle.
func (r Ref[T]) Get() T {
	return r.ptr
}

// IsEmpty reports whether the handle references nothing.
func (r Ref[T]) IsEmpty() bool {
	var zero T
	return r.ptr == zero
}

// Clone returns a second owning handle to the same object.
func (r Ref[T]) Clone() Ref[T] {
	return NewRef(r.ptr)
}

// Reset drops the handle's reference and leaves it empty.
func (r *Ref[T]) Reset() {
	var zero T
	if r.ptr == zero {
		return
	}
	p := r.ptr
	r.ptr = zero
	p.Release()
}

// Set makes r reference the same object as o. The new reference is taken
// before the old one is dropped, so assigning a handle to itself is safe.
func (r *Ref[T]) Set(o Ref[T]) {
	if r.ptr == o.ptr {
		return
	}
	var zero T
	old := r.ptr
	r.ptr = o.ptr
	if r.ptr != zero {
		r.ptr.AddRef()
	}
	if old != zero {
		old.Release()
	}
}

// Equal reports whether both handles reference the same object.
func (r Ref[T]) Equal(o Ref[T]) bool {
	return r.ptr == o.ptr
}

// Less orders handles by object identity. Empty handles sort first.
func (r Ref[T]) Less(o Ref[T]) bool {
	return r.id() < o.id()
}

func (r Ref[T]) id() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return r.ptr.RefID()
}
