// Command libtsgateway builds the tokenizer as a C shared library:
//
//	go build -buildmode=c-shared -o libtsgateway.so ./cmd/libtsgateway
//
// Every ts_token buffer returned by ts_get_tokens or ts_get_highlight_tokens
// must be released exactly once with ts_free_tokens and its original length.
// Every ts_result from ts_parse must be released with ts_free_result.
package main

/*
#include <stddef.h>
#include <stdint.h>

typedef struct {
	uint32_t start;
	uint32_t end;
	uint16_t kind_id;
	uint16_t _pad;
} ts_token;

typedef struct {
	char*     sexpr;
	uintptr_t tree;
} ts_result;
*/
import "C"

import (
	"unsafe"

	"github.com/corey/tsgateway/internal/adapters/cbuf"
	"github.com/corey/tsgateway/internal/domain/token"
)

//export ts_get_tokens
func ts_get_tokens(source *C.char, langID C.int, outTokens **C.ts_token) C.size_t {
	return exportTokens(source, langID, outTokens, false)
}

//export ts_get_highlight_tokens
func ts_get_highlight_tokens(source *C.char, langID C.int, outTokens **C.ts_token) C.size_t {
	return exportTokens(source, langID, outTokens, true)
}

func exportTokens(source *C.char, langID C.int, outTokens **C.ts_token, highlight bool) C.size_t {
	if outTokens == nil {
		return 0
	}
	*outTokens = nil
	ptr, n := tokenBuffer(unsafe.Pointer(source), int(langID), highlight)
	*outTokens = (*C.ts_token)(ptr)
	return C.size_t(n)
}

//export ts_free_tokens
func ts_free_tokens(ptr *C.ts_token, length C.size_t) {
	cbuf.Release(unsafe.Pointer(ptr), int(length))
}

//export ts_parse
func ts_parse(source *C.char, langID C.int) C.ts_result {
	tree, sexpr := parseHandle(unsafe.Pointer(source), int(langID))
	return C.ts_result{sexpr: (*C.char)(sexpr), tree: C.uintptr_t(tree)}
}

//export ts_free_result
func ts_free_result(res C.ts_result) {
	freeResult(uintptr(res.tree), unsafe.Pointer(res.sexpr))
}

//export ts_classify
func ts_classify(name *C.char) C.uint16_t {
	s, ok := cbuf.GoString(unsafe.Pointer(name))
	if !ok {
		return 0
	}
	return C.uint16_t(token.Classify(s))
}

func main() {}
