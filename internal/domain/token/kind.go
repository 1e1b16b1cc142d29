package token

// Canonical kind codes. These values cross the C boundary and are hardcoded by
// renderers; never renumber them. New codes go above KindMacro.
const (
	KindFunction     uint16 = 1
	KindFunctionCall uint16 = 2
	KindDecorator    uint16 = 3
	KindType         uint16 = 4
	KindTypeBuiltin  uint16 = 5
	KindTrait        uint16 = 6
	KindKeyword      uint16 = 7
	KindDirective    uint16 = 8
	KindString       uint16 = 9
	KindCharacter    uint16 = 10
	KindNumber       uint16 = 11
	KindBoolean      uint16 = 12
	KindConstant     uint16 = 13
	KindComment      uint16 = 14
	KindOperator     uint16 = 15
	KindPunctuation  uint16 = 16
	KindVariable     uint16 = 17
	KindParameter    uint16 = 18
	KindField        uint16 = 19
	KindMacro        uint16 = 20
)

// canonical maps capture names to their fixed codes.
var canonical = map[string]uint16{
	"function":           KindFunction,
	"function.call":      KindFunctionCall,
	"function.decorator": KindDecorator,
	"type":               KindType,
	"type.builtin":       KindTypeBuiltin,
	"trait":              KindTrait,
	"keyword":            KindKeyword,
	"keyword.directive":  KindDirective,
	"string":             KindString,
	"character":          KindCharacter,
	"number":             KindNumber,
	"boolean":            KindBoolean,
	"constant":           KindConstant,
	"constant.builtin":   KindConstant,
	"comment":            KindComment,
	"operator":           KindOperator,
	"punctuation":        KindPunctuation,
	"variable":           KindVariable,
	"parameter":          KindParameter,
	"field":              KindField,
	"macro":              KindMacro,
}

// kindNames is the display name for each canonical code.
var kindNames = [...]string{
	KindFunction:     "function",
	KindFunctionCall: "function.call",
	KindDecorator:    "decorator",
	KindType:         "type",
	KindTypeBuiltin:  "type.builtin",
	KindTrait:        "trait",
	KindKeyword:      "keyword",
	KindDirective:    "directive",
	KindString:       "string",
	KindCharacter:    "character",
	KindNumber:       "number",
	KindBoolean:      "boolean",
	KindConstant:     "constant",
	KindComment:      "comment",
	KindOperator:     "operator",
	KindPunctuation:  "punctuation",
	KindVariable:     "variable",
	KindParameter:    "parameter",
	KindField:        "field",
	KindMacro:        "macro",
}

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Classify maps a capture name or node kind name to a kind code.
// Names in the canonical table get their fixed code; anything else falls back
// to HashKind.
func Classify(name string) uint16 {
	if code, ok := canonical[name]; ok {
		return code
	}
	return HashKind(name)
}

// HashKind is 32-bit FNV-1a over the UTF-8 bytes of name, truncated to the low
// 16 bits. Collisions are possible; the exact constants are part of the
// external contract.
func HashKind(name string) uint16 {
	h := fnvOffset32
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= fnvPrime32
	}
	return uint16(h & 0xFFFF)
}

// KindName returns the display name of a canonical code.
func KindName(code uint16) (string, bool) {
	if !IsCanonical(code) {
		return "", false
	}
	return kindNames[code], true
}

// IsCanonical reports whether code belongs to the canonical table.
// A hashed code can coincide with a canonical one; callers that need to tell
// them apart must track which path produced the token.
func IsCanonical(code uint16) bool {
	return code >= KindFunction && code <= KindMacro
}
