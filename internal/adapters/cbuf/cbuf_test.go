package cbuf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/tsgateway/internal/domain/token"
)

func sample(n int) []token.Token {
	out := make([]token.Token, n)
	for i := range out {
		out[i] = token.Span(uint(i*3), uint(i*3+2), uint(n*3), uint16(i%20+1))
	}
	return out
}

func TestProduce_CopiesRecords(t *testing.T) {
	base := Outstanding()
	src := sample(5)

	ptr, n := Produce(src)
	require.NotNil(t, ptr)
	require.Equal(t, 5, n)
	assert.Equal(t, base+1, Outstanding())

	assert.Equal(t, src, View(ptr, n))

	// The copy is independent of the input slice.
	src[0].Kind = 999
	assert.NotEqual(t, uint16(999), View(ptr, n)[0].Kind)

	Release(ptr, n)
	assert.Equal(t, base, Outstanding())
}

func TestProduce_RawLayout(t *testing.T) {
	ptr, n := Produce([]token.Token{{Start: 1, End: 0x0102_0304, Kind: 0xBEEF}})
	defer Release(ptr, n)

	raw := unsafe.Slice((*byte)(ptr), token.RecordSize)
	assert.Equal(t, token.Encode([]token.Token{{Start: 1, End: 0x0102_0304, Kind: 0xBEEF}}), append([]byte(nil), raw...))
}

func TestProduce_Empty(t *testing.T) {
	base := Outstanding()
	for _, in := range [][]token.Token{nil, {}} {
		ptr, n := Produce(in)
		assert.Nil(t, ptr)
		assert.Zero(t, n)
	}
	assert.Equal(t, base, Outstanding(), "empty lists must not allocate")
}

func TestRelease_NilIsNoop(t *testing.T) {
	base := Outstanding()
	assert.NotPanics(t, func() { Release(nil, 0) })
	assert.NotPanics(t, func() { Release(nil, 17) })
	assert.Equal(t, base, Outstanding())
}

func TestProduceRelease_Balanced(t *testing.T) {
	base := Outstanding()
	type alloc struct {
		ptr unsafe.Pointer
		n   int
	}
	var live []alloc
	for i := 1; i <= 100; i++ {
		ptr, n := Produce(sample(i))
		live = append(live, alloc{ptr, n})
	}
	assert.Equal(t, base+100, Outstanding())
	for _, a := range live {
		Release(a.ptr, a.n)
	}
	assert.Equal(t, base, Outstanding())
}

func TestBuffer_TakeRelease(t *testing.T) {
	base := Outstanding()
	buf := Take(sample(3))
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, sample(3), buf.Tokens())
	assert.Equal(t, base+1, Outstanding())

	buf.Release()
	assert.Equal(t, base, Outstanding())
	assert.Zero(t, buf.Len())
	assert.Nil(t, buf.Tokens())

	buf.Release()
	assert.Equal(t, base, Outstanding(), "second release is a no-op")
}

func TestBuffer_Detach(t *testing.T) {
	base := Outstanding()
	buf := Take(sample(4))

	ptr, n := buf.Detach()
	require.NotNil(t, ptr)
	assert.Equal(t, 4, n)
	assert.Zero(t, buf.Len())

	buf.Release()
	assert.Equal(t, base+1, Outstanding(), "detached memory is no longer the buffer's")

	Release(ptr, n)
	assert.Equal(t, base, Outstanding())
}

func TestBuffer_Empty(t *testing.T) {
	base := Outstanding()
	buf := Take(nil)
	assert.Zero(t, buf.Len())
	ptr, n := buf.Detach()
	assert.Nil(t, ptr)
	assert.Zero(t, n)
	buf.Release()
	assert.Equal(t, base, Outstanding())

	var nilBuf *Buffer
	assert.NotPanics(t, nilBuf.Release)
	assert.Zero(t, nilBuf.Len())
}

func TestCString(t *testing.T) {
	base := Outstanding()
	p := CString("(source_file)")
	assert.Equal(t, base+1, Outstanding())

	s, ok := GoString(p)
	assert.True(t, ok)
	assert.Equal(t, "(source_file)", s)
	assert.Equal(t, []byte("(source_file)"), GoBytes(p))

	FreeString(p)
	FreeString(nil)
	assert.Equal(t, base, Outstanding())
}

func TestGoBytes_NilVersusEmpty(t *testing.T) {
	assert.Nil(t, GoBytes(nil))

	p := CString("")
	defer FreeString(p)
	b := GoBytes(p)
	assert.NotNil(t, b)
	assert.Empty(t, b)

	_, ok := GoString(nil)
	assert.False(t, ok)
}
