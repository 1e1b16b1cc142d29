package cbuf

import (
	"unsafe"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Buffer owns one Produce allocation. It can only be built by Take, and it
// gives the allocation up exactly once: through Release, or through Detach
// when a C caller takes over.
//
//	buf := cbuf.Take(tokens)
//	defer buf.Release()
type Buffer struct {
	ptr unsafe.Pointer
	n   int
}

// Take copies tokens to the C heap and returns the owning Buffer.
func Take(tokens []token.Token) *Buffer {
	ptr, n := Produce(tokens)
	return &Buffer{ptr: ptr, n: n}
}

// Len returns the number of records held.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return b.n
}

// Tokens views the C memory. Do not keep the slice past Release.
func (b *Buffer) Tokens() []token.Token {
	if b == nil {
		return nil
	}
	return View(b.ptr, b.n)
}

// Release frees the allocation. Later calls are no-ops.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	Release(b.ptr, b.n)
	b.ptr, b.n = nil, 0
}

// Detach hands the allocation to the caller, who must pass it back to
// Release. The Buffer is empty afterwards.
func (b *Buffer) Detach() (unsafe.Pointer, int) {
	if b == nil {
		return nil, 0
	}
	ptr, n := b.ptr, b.n
	b.ptr, b.n = nil, 0
	return ptr, n
}
