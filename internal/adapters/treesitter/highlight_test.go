//go:build !lean

package treesitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/domain/token"
)

// hasToken reports whether tokens contain kind exactly over src[start:end].
func hasToken(tokens []token.Token, start, end int, kind uint16) bool {
	for _, tok := range tokens {
		if int(tok.Start) == start && int(tok.End) == end && tok.Kind == kind {
			return true
		}
	}
	return false
}

func TestHighlight_DefinitionAndCall(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		lang string
		id   int
		src  string
		fn   string
		def  string // text just before the definition's name
	}{
		{"rust", LangRust, "fn double(x: i32) -> i32 { x * 2 }\nfn main() { double(4); }\n", "double", "fn "},
		{"c", LangC, "int twice(int x) { return x * 2; }\nint main(void) { return twice(3); }\n", "twice", "int "},
		{"python", LangPython, "def triple(x):\n    return x * 3\n\nprint(triple(2))\n", "triple", "def "},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			src := []byte(tt.src)
			tokens, err := reg.Highlight(src, tt.id)
			require.NoError(t, err)
			assertWellFormed(t, tokens, src)

			name := tt.fn
			defStart := strings.Index(tt.src, tt.def+name) + len(tt.def)
			callStart := strings.LastIndex(tt.src, name+"(")
			require.NotEqual(t, defStart, callStart)

			assert.True(t, hasToken(tokens, defStart, defStart+len(name), token.KindFunction),
				"no function token over %q", tt.src[defStart:defStart+len(name)])
			assert.True(t, hasToken(tokens, callStart, callStart+len(name), token.KindFunctionCall),
				"no function.call token over %q", tt.src[callStart:callStart+len(name)])
		})
	}
}

func TestHighlight_OverlapsKept(t *testing.T) {
	reg := NewRegistry()
	src := []byte("fn double(x: i32) -> i32 { x * 2 }")

	tokens, err := reg.Highlight(src, LangRust)
	require.NoError(t, err)

	// "double" is caught by the function rule and by the catch-all identifier rule.
	assert.True(t, hasToken(tokens, 3, 9, token.KindFunction))
	assert.True(t, hasToken(tokens, 3, 9, token.KindVariable))
}

func TestHighlight_Classification(t *testing.T) {
	reg := NewRegistry()
	src := "// note\nstruct Point { x: f64 }\nfn main() { let s = \"hi\"; let c = 'c'; let n = 42; let b = true; }\n"
	tokens, err := reg.Highlight([]byte(src), LangRust)
	require.NoError(t, err)

	at := func(text string) (int, int) {
		i := strings.Index(src, text)
		require.GreaterOrEqual(t, i, 0, text)
		return i, i + len(text)
	}
	cases := []struct {
		text string
		kind uint16
	}{
		{"// note\n", token.KindComment},
		{"struct", token.KindKeyword},
		{"Point", token.KindType},
		{"f64", token.KindTypeBuiltin},
		{"\"hi\"", token.KindString},
		{"'c'", token.KindCharacter},
		{"42", token.KindNumber},
		{"true", token.KindBoolean},
	}
	for _, c := range cases {
		s, e := at(c.text)
		if c.kind == token.KindComment && !hasToken(tokens, s, e, c.kind) {
			// Line comments may or may not include the newline depending on grammar version.
			e--
		}
		assert.True(t, hasToken(tokens, s, e, c.kind), "%q should be kind %d", c.text, c.kind)
	}
}

func TestHighlight_PythonDecorator(t *testing.T) {
	reg := NewRegistry()
	src := "@cache\ndef f():\n    pass\n"
	tokens, err := reg.Highlight([]byte(src), LangPython)
	require.NoError(t, err)
	assert.True(t, hasToken(tokens, 1, 6, token.KindDecorator))
	assert.True(t, hasToken(tokens, 11, 12, token.KindFunction))
}

func TestHighlight_CDirective(t *testing.T) {
	reg := NewRegistry()
	src := "#include <stdio.h>\n#define N 4\n"
	tokens, err := reg.Highlight([]byte(src), LangC)
	require.NoError(t, err)
	assert.True(t, hasToken(tokens, 0, 8, token.KindDirective))
	assert.True(t, hasToken(tokens, 9, 18, token.KindString))
	assert.True(t, hasToken(tokens, 27, 28, token.KindMacro))
}

func TestHighlight_JSON(t *testing.T) {
	reg := NewRegistry(WithExtended())
	src := `{"k": 1}`
	tokens, err := reg.Highlight([]byte(src), LangJSON)
	require.NoError(t, err)
	assert.True(t, hasToken(tokens, 1, 4, token.KindField))
	assert.True(t, hasToken(tokens, 6, 7, token.KindNumber))
}

func TestHighlight_Odin(t *testing.T) {
	reg := NewRegistry()
	src := []byte("package main\n\nmain :: proc() {\n\tx := 1\n}\n")

	// The odin query is best-effort; it must never break the call.
	tokens, err := reg.Highlight(src, LangOdin)
	if err != nil {
		assert.True(t, errors.Is(err, ErrQuery))
		return
	}
	assertWellFormed(t, tokens, src)
}

func TestHighlight_Deterministic(t *testing.T) {
	reg := NewRegistry()
	src := []byte("class A:\n    def m(self, x=1):\n        return self.m(x)\n")

	first, err := reg.Highlight(src, LangPython)
	require.NoError(t, err)
	again, err := reg.Highlight(src, LangPython)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestHighlight_EmptySource(t *testing.T) {
	tokens, err := NewRegistry().Highlight([]byte{}, LangRust)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestHighlight_Failures(t *testing.T) {
	reg := NewRegistry()
	rust, _ := reg.Resolve(LangRust)
	require.NoError(t, reg.Register(Grammar{ID: 50, Name: "broken", Language: rust.Language, Query: "(function_item name: (nope) @function)"}))
	require.NoError(t, reg.Register(Grammar{ID: 51, Name: "bare", Language: rust.Language}))

	tokens, err := reg.Highlight([]byte("fn main() {}"), 999)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	assert.Empty(t, tokens)

	tokens, err = reg.Highlight([]byte("fn main() {}"), 50)
	assert.True(t, errors.Is(err, ErrQuery))
	assert.Empty(t, tokens)

	tokens, err = reg.Highlight([]byte("fn main() {}"), 51)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = reg.Highlight(nil, LangRust)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = reg.Highlight([]byte{0xc3, 0x28}, LangRust)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
