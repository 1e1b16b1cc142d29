// Package cbuf moves token lists and strings onto the C heap for callers on
// the other side of the shared-library boundary.
//
// Every Produce is paired with exactly one Release, and every CString with
// exactly one FreeString. The producer keeps no reference to what it hands
// out. Releasing twice, or with a length other than the one produced, is
// undefined.
package cbuf

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/corey/tsgateway/internal/domain/token"
)

// The Go record must match the C ts_token layout byte for byte.
var (
	_ [token.RecordSize - unsafe.Sizeof(token.Token{})]struct{}
	_ [unsafe.Sizeof(token.Token{}) - token.RecordSize]struct{}
)

// outstanding counts live C allocations made by this package.
var outstanding atomic.Int64

// Outstanding returns the number of allocations not yet released.
func Outstanding() int64 {
	return outstanding.Load()
}

// Produce copies tokens into one fresh C allocation and returns it with its
// length. An empty list allocates nothing and returns (nil, 0).
func Produce(tokens []token.Token) (unsafe.Pointer, int) {
	n := len(tokens)
	if n == 0 {
		return nil, 0
	}
	ptr := C.malloc(C.size_t(n) * C.size_t(token.RecordSize))
	if ptr == nil {
		return nil, 0
	}
	outstanding.Add(1)
	C.memcpy(ptr, unsafe.Pointer(&tokens[0]), C.size_t(n)*C.size_t(token.RecordSize))
	return ptr, n
}

// Release frees a buffer returned by Produce. nil is a no-op.
func Release(ptr unsafe.Pointer, n int) {
	if ptr == nil {
		return
	}
	C.free(ptr)
	outstanding.Add(-1)
}

// View exposes n records at ptr as a slice without copying. The slice is
// valid until the buffer is released.
func View(ptr unsafe.Pointer, n int) []token.Token {
	if ptr == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*token.Token)(ptr), n)
}

// CString copies s into a NUL-terminated C string.
func CString(s string) unsafe.Pointer {
	p := unsafe.Pointer(C.CString(s))
	outstanding.Add(1)
	return p
}

// FreeString frees a string returned by CString. nil is a no-op.
func FreeString(p unsafe.Pointer) {
	if p == nil {
		return
	}
	C.free(p)
	outstanding.Add(-1)
}

// GoString copies a NUL-terminated C string into Go memory. nil yields ok=false.
func GoString(p unsafe.Pointer) (s string, ok bool) {
	if p == nil {
		return "", false
	}
	return C.GoString((*C.char)(p)), true
}

// GoBytes copies a NUL-terminated C string into a byte slice. nil yields nil,
// which the tokenizers treat as invalid input; "" yields an empty, non-nil slice.
func GoBytes(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	n := C.strlen((*C.char)(p))
	return C.GoBytes(p, C.int(n))
}
