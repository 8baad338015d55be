package compositor

import (
	"sort"
	"sync"
	"testing"
)

// counted is a minimal ref-counted object that counts its destructions.
type counted struct {
	RefCounted
	destroyed *int
}

func newCounted(destroyed *int) *counted {
	c := &counted{destroyed: destroyed}
	c.initRef(func() { *c.destroyed++ })
	return c
}

// --- Counting ---

func TestNewRefTakesReference(t *testing.T) {
	var n int
	obj := newCounted(&n)
	if obj.RefCount() != 0 {
		t.Fatalf("initial RefCount = %d, want 0", obj.RefCount())
	}
	r := NewRef(obj)
	if obj.RefCount() != 1 {
		t.Errorf("RefCount = %d, want 1", obj.RefCount())
	}
	r.Reset()
	if n != 1 {
		t.Errorf("destroy calls = %d, want 1", n)
	}
	if !obj.IsDestroyed() {
		t.Error("IsDestroyed = false after last Reset")
	}
}

func TestCloneKeepsObjectAlive(t *testing.T) {
	var n int
	a := NewRef(newCounted(&n))
	b := a.Clone()
	a.Reset()
	if n != 0 {
		t.Fatalf("destroyed with a clone outstanding")
	}
	if !a.IsEmpty() {
		t.Error("Reset handle should be empty")
	}
	b.Reset()
	if n != 1 {
		t.Errorf("destroy calls = %d, want 1", n)
	}
}

func TestResetEmptyNoOp(t *testing.T) {
	var r Ref[*counted]
	r.Reset()
	if !r.IsEmpty() {
		t.Error("zero Ref should be empty")
	}
}

func TestNewRefNilIsEmpty(t *testing.T) {
	r := NewRef[*counted](nil)
	if !r.IsEmpty() {
		t.Error("NewRef(nil) should be empty")
	}
}

func TestReleaseDestroyedPanics(t *testing.T) {
	var n int
	obj := newCounted(&n)
	r := NewRef(obj)
	r.Reset()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on release of destroyed object")
		}
	}()
	obj.Release()
}

func TestAddRefDestroyedPanics(t *testing.T) {
	var n int
	obj := newCounted(&n)
	r := NewRef(obj)
	r.Reset()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on AddRef of destroyed object")
		}
	}()
	obj.AddRef()
}

// --- Set ---

func TestSetSelfAssignment(t *testing.T) {
	var n int
	r := NewRef(newCounted(&n))
	r.Set(r)
	if n != 0 {
		t.Fatal("self-assignment destroyed the object")
	}
	if got := r.Get().RefCount(); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
}

func TestSetReplacesAndReleasesOld(t *testing.T) {
	var na, nb int
	a := NewRef(newCounted(&na))
	b := NewRef(newCounted(&nb))
	a.Set(b)
	if na != 1 {
		t.Errorf("old object destroy calls = %d, want 1", na)
	}
	if !a.Equal(b) {
		t.Error("a should reference b's object")
	}
	if got := b.Get().RefCount(); got != 2 {
		t.Errorf("RefCount = %d, want 2", got)
	}
	a.Reset()
	b.Reset()
	if nb != 1 {
		t.Errorf("destroy calls = %d, want 1", nb)
	}
}

func TestSetEmpty(t *testing.T) {
	var n int
	r := NewRef(newCounted(&n))
	r.Set(Ref[*counted]{})
	if !r.IsEmpty() || n != 1 {
		t.Errorf("IsEmpty = %v, destroy calls = %d; want true, 1", r.IsEmpty(), n)
	}
}

// --- Identity ---

func TestLessOrdersByCreation(t *testing.T) {
	var n int
	refs := []Ref[*counted]{}
	for i := 0; i < 5; i++ {
		refs = append(refs, NewRef(newCounted(&n)))
	}
	shuffled := []Ref[*counted]{refs[3], {}, refs[0], refs[4], refs[1], refs[2]}
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].Less(shuffled[j]) })

	if !shuffled[0].IsEmpty() {
		t.Error("empty handle should sort first")
	}
	for i, r := range shuffled[1:] {
		if !r.Equal(refs[i]) {
			t.Errorf("sorted[%d] = id %d, want id %d", i+1, r.Get().RefID(), refs[i].Get().RefID())
		}
	}
}

func TestRefUsableAsMapKey(t *testing.T) {
	var n int
	a := NewRef(newCounted(&n))
	b := a.Clone()
	m := map[Ref[*counted]]int{a: 1}
	m[b]++
	if m[a] != 2 {
		t.Errorf("m[a] = %d, want 2", m[a])
	}
}

// --- Concurrency ---

func TestConcurrentCloneAndReset(t *testing.T) {
	var n int
	base := NewRef(newCounted(&n))

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r := base.Clone()
				r.Reset()
			}
		}()
	}
	wg.Wait()

	if got := base.Get().RefCount(); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
	base.Reset()
	if n != 1 {
		t.Errorf("destroy calls = %d, want 1", n)
	}
}
