package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gitlab.com/tozd/go/errors"

	"github.com/corey/tsgateway/internal/domain/token"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatBin   = "bin"
)

func parseFormat(s string) (string, error) {
	switch s {
	case formatTable, formatJSON, formatBin:
		return s, nil
	}
	return "", errors.Errorf("unknown format %q (want table, json or bin)", s)
}

// kindLabel names a canonical kind, or shows a hashed kind as #NNNNN.
func kindLabel(kind uint16) string {
	if name, ok := token.KindName(kind); ok {
		return name
	}
	return fmt.Sprintf("#%d", kind)
}

// jsonToken is the JSON form of one token.
type jsonToken struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Kind  uint16 `json:"kind"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text"`
}

type jsonFile struct {
	File   string      `json:"file"`
	Tokens []jsonToken `json:"tokens"`
}

// tokenWriter renders token lists for one or more files.
type tokenWriter struct {
	w      io.Writer
	format string
	files  []jsonFile
}

func newTokenWriter(w io.Writer, format string) *tokenWriter {
	return &tokenWriter{w: w, format: format}
}

// Write renders one file's tokens. JSON is buffered until Flush.
func (tw *tokenWriter) Write(path string, src []byte, tokens []token.Token) error {
	switch tw.format {
	case formatBin:
		_, err := tw.w.Write(token.Encode(tokens))
		return err

	case formatJSON:
		f := jsonFile{File: path, Tokens: make([]jsonToken, 0, len(tokens))}
		for _, tok := range tokens {
			name, _ := token.KindName(tok.Kind)
			f.Tokens = append(f.Tokens, jsonToken{
				Start: tok.Start, End: tok.End, Kind: tok.Kind, Name: name, Text: string(tok.Text(src)),
			})
		}
		tw.files = append(tw.files, f)
		return nil

	default:
		fmt.Fprintf(tw.w, "%s (%d tokens)\n", path, len(tokens))
		tab := tabwriter.NewWriter(tw.w, 0, 4, 2, ' ', 0)
		for _, tok := range tokens {
			fmt.Fprintf(tab, "  %d\t%d\t%s\t%s\n", tok.Start, tok.End, kindLabel(tok.Kind), preview(string(tok.Text(src))))
		}
		return tab.Flush()
	}
}

// Flush writes buffered output.
func (tw *tokenWriter) Flush() error {
	if tw.format != formatJSON {
		return nil
	}
	enc := json.NewEncoder(tw.w)
	enc.SetIndent("", "  ")
	return enc.Encode(tw.files)
}

// preview quotes token text for a single table row, shortening long spans.
func preview(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) > max {
		s = string(r[:max]) + "…"
	}
	return fmt.Sprintf("%q", s)
}
