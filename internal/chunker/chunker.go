// Package chunker splits documents into overlapping windows sized for embedding.
package chunker

import (
	"errors"
	"fmt"

	"trackqa/internal/document"
)

// Defaults used by the pipeline.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// ErrOptions is returned for window settings that cannot make progress.
var ErrOptions = errors.New("invalid chunk options")

// Options controls window size and overlap, both measured in runes.
type Options struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// DefaultOptions returns Size 1000, Overlap 100.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate checks that Size is positive and larger than Overlap.
func (o Options) Validate() error {
	switch {
	case o.Size <= 0:
		return fmt.Errorf("%w: size %d must be positive", ErrOptions, o.Size)
	case o.Overlap < 0:
		return fmt.Errorf("%w: overlap %d must not be negative", ErrOptions, o.Overlap)
	case o.Overlap >= o.Size:
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrOptions, o.Overlap, o.Size)
	}
	return nil
}

// Split cuts every document into windows and returns them in input order.
// Each output carries a copy of its parent's metadata plus a zero-based
// sub_chunk index; keys already present are left alone.
func Split(docs []document.Document, opts Options) ([]document.Document, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var out []document.Document
	for _, d := range docs {
		for i, text := range Windows(d.Text, opts) {
			c := d.Clone()
			c.Text = text
			if _, ok := c.Metadata[document.KeySubChunk]; !ok {
				c.Metadata[document.KeySubChunk] = i
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// Windows returns the overlapping windows of text. Options must be valid.
//
// A window ends just after the last newline it contains, provided the cut
// leaves more than Overlap runes in the window; otherwise it ends at Size.
// The next window starts exactly Overlap runes before the previous end, so
// joining the first window with every later window minus its first Overlap
// runes gives back text.
func Windows(text string, opts Options) []string {
	r := []rune(text)
	if len(r) <= opts.Size {
		return []string{text}
	}

	var out []string
	start := 0
	for {
		end := min(start+opts.Size, len(r))
		if end < len(r) {
			for i := end - 1; i >= start+opts.Overlap; i-- {
				if r[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, string(r[start:end]))
		if end == len(r) {
			return out
		}
		start = end - opts.Overlap
	}
}

// Join reverses Windows for the given overlap.
func Join(windows []string, overlap int) string {
	if len(windows) == 0 {
		return ""
	}
	out := []rune(windows[0])
	for _, w := range windows[1:] {
		out = append(out, []rune(w)[overlap:]...)
	}
	return string(out)
}
