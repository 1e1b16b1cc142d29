package render

import (
	"strings"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Paint returns src with every resolved segment styled by theme.
// Unstyled bytes are copied through unchanged.
func Paint(src []byte, tokens []token.Token, theme *Theme) string {
	var b strings.Builder
	b.Grow(len(src) * 2)

	for _, seg := range Resolve(src, tokens) {
		text := string(src[seg.Start:seg.End])
		style, ok := theme.Style(seg.Kind)
		if !ok {
			b.WriteString(text)
			continue
		}
		// Style lines one at a time; lipgloss pads multi-line blocks to a common width.
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}
