package render

import (
	"sort"
	"strings"

	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/domain/token"
)

// DefaultTheme is used when no theme name is given.
const DefaultTheme = "monokai"

// chromaTypes maps each canonical kind to chroma token types, most specific
// first. The first type the theme colours is used.
var chromaTypes = map[uint16][]chroma.TokenType{
	token.KindFunction:     {chroma.NameFunction, chroma.Name},
	token.KindFunctionCall: {chroma.NameFunction, chroma.Name},
	token.KindDecorator:    {chroma.NameDecorator, chroma.NameFunction},
	token.KindType:         {chroma.NameClass, chroma.KeywordType},
	token.KindTypeBuiltin:  {chroma.KeywordType, chroma.NameBuiltin},
	token.KindTrait:        {chroma.NameClass, chroma.KeywordType},
	token.KindKeyword:      {chroma.Keyword},
	token.KindDirective:    {chroma.CommentPreproc, chroma.Keyword},
	token.KindString:       {chroma.LiteralString},
	token.KindCharacter:    {chroma.LiteralStringChar, chroma.LiteralString},
	token.KindNumber:       {chroma.LiteralNumber},
	token.KindBoolean:      {chroma.KeywordConstant, chroma.NameConstant},
	token.KindConstant:     {chroma.NameConstant, chroma.KeywordConstant},
	token.KindComment:      {chroma.Comment},
	token.KindOperator:     {chroma.Operator},
	token.KindPunctuation:  {chroma.Punctuation},
	token.KindVariable:     {chroma.NameVariable},
	token.KindParameter:    {chroma.NameVariable, chroma.Name},
	token.KindField:        {chroma.NameAttribute, chroma.NameProperty},
	token.KindMacro:        {chroma.NameFunctionMagic, chroma.CommentPreproc},
}

// Theme is a chroma style resolved to one lipgloss style per canonical kind.
type Theme struct {
	Name   string
	styles map[uint16]lipgloss.Style
}

// LoadTheme builds a theme from a chroma style name, rendering through r.
func LoadTheme(r *lipgloss.Renderer, name string) (*Theme, error) {
	lookup := strings.ToLower(strings.TrimSpace(name))
	if lookup == "" {
		lookup = DefaultTheme
	}
	if _, ok := styles.Registry[lookup]; !ok {
		names := styles.Names()
		sort.Strings(names)
		return nil, errors.Errorf("unknown theme %q, try one of: %s", name, strings.Join(names[:min(8, len(names))], ", "))
	}
	style := styles.Get(lookup)

	t := &Theme{Name: lookup, styles: make(map[uint16]lipgloss.Style, len(chromaTypes))}
	for kind, types := range chromaTypes {
		if s, ok := styleFor(r, style, types...); ok {
			t.styles[kind] = s
		}
	}
	return t, nil
}

// styleFor picks the first chroma entry with a foreground colour.
func styleFor(r *lipgloss.Renderer, style *chroma.Style, types ...chroma.TokenType) (lipgloss.Style, bool) {
	for _, tt := range types {
		entry := style.Get(tt)
		if !entry.Colour.IsSet() {
			continue
		}
		s := r.NewStyle().
			Foreground(lipgloss.Color(entry.Colour.String())).
			TabWidth(lipgloss.NoTabConversion)
		if entry.Bold == chroma.Yes {
			s = s.Bold(true)
		}
		if entry.Italic == chroma.Yes {
			s = s.Italic(true)
		}
		if entry.Underline == chroma.Yes {
			s = s.Underline(true)
		}
		return s, true
	}
	return lipgloss.Style{}, false
}

// Style returns the style for a kind, or false when the theme leaves it plain.
func (t *Theme) Style(kind uint16) (lipgloss.Style, bool) {
	s, ok := t.styles[kind]
	return s, ok
}
