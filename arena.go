package triangle

import "unsafe"

// DefaultAlignment suits any ordinary struct: two pointer widths, matching
// the strictest alignment a C allocator guarantees.
const DefaultAlignment = 2 * unsafe.Sizeof(uintptr(0))

// Arena is a fixed-capacity bump allocator backing the transient buffers of
// the setup path (device lists, format lists, queue-family scans). It only
// grows forward; memory is reclaimed in bulk with Reset or rewound with a
// Checkpoint. The backing buffer is never reallocated: exhaustion means the
// buffer was sized too small for the peak transient load, not a condition to
// recover from at runtime.
type Arena struct {
	buf  []byte
	prev uintptr // start of the most recent allocation
	cur  uintptr // next free byte
}

// Checkpoint is a saved allocation position. Restoring it invalidates every
// allocation made after it was taken. Checkpoints must be restored in strict
// reverse order of creation.
type Checkpoint struct {
	arena *Arena
	prev  uintptr
	cur   uintptr
}

// NewArena wraps buf in an arena. The arena owns buf for its lifetime.
func NewArena(buf []byte) *Arena {
	return &Arena{buf: buf}
}

// AllocAlign returns a zeroed region of size bytes whose address satisfies
// alignment, or nil if the aligned region would exceed capacity. alignment
// must be a power of two.
func (a *Arena) AllocAlign(size int, alignment uintptr) []byte {
	if size <= 0 {
		return nil
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		panic("arena: alignment must be a power of two")
	}

	// Align the absolute address of the next free byte, not the offset: the
	// backing buffer itself carries no alignment guarantee.
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
	p := base + a.cur
	if m := p & (alignment - 1); m != 0 {
		p += alignment - m
	}
	offset := p - base

	if offset+uintptr(size) > uintptr(len(a.buf)) {
		return nil
	}

	a.prev = offset
	a.cur = offset + uintptr(size)

	region := a.buf[offset:a.cur]
	clear(region)
	return region
}

// Alloc returns a zeroed region of size bytes at DefaultAlignment.
func (a *Arena) Alloc(size int) []byte {
	return a.AllocAlign(size, DefaultAlignment)
}

// Checkpoint captures the current allocation position.
func (a *Arena) Checkpoint() Checkpoint {
	return Checkpoint{arena: a, prev: a.prev, cur: a.cur}
}

// Restore rewinds the arena to the captured position. The memory is not
// zeroed; pointers obtained after the checkpoint was taken must not be
// dereferenced once restored.
func (c Checkpoint) Restore() {
	c.arena.prev = c.prev
	c.arena.cur = c.cur
}

// Reset rewinds the arena to empty. Used at teardown, never in the render
// loop, which performs no arena allocation at all.
func (a *Arena) Reset() {
	a.prev = 0
	a.cur = 0
}

// Remaining reports how many bytes are left before exhaustion, ignoring
// alignment padding a future allocation may need.
func (a *Arena) Remaining() int {
	return len(a.buf) - int(a.cur)
}

// Slice allocates a zeroed slice of n values of type T from the arena,
// aligned for T. It returns nil when the arena cannot satisfy the request.
func Slice[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	b := a.AllocAlign(int(unsafe.Sizeof(zero))*n, unsafe.Alignof(zero))
	if b == nil {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}
