package framing

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder converts notification buffers to text.
//
// Invalid bytes become U+FFFD. Notifications have no message boundaries, so a
// multi-byte sequence may be split between two of them; an incomplete
// sequence at the end of a buffer is held back and prepended to the next one.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

// NewDecoder creates a UTF-8 decoder.
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text carried by buf plus any bytes held from the
// previous call. It may return an empty string when everything is held.
func (d *Decoder) Decode(buf []byte) string {
	src := buf
	if len(d.pending) > 0 {
		src = append(d.pending, buf...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	// Each invalid byte expands to a three byte replacement character.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	nDst, nSrc, err := d.t.Transform(dst, src, false)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// Unreachable with a large enough dst; fall back to a lossy copy.
		d.t.Reset()
		return string([]rune(string(src)))
	}
	if nSrc < len(src) {
		d.pending = append([]byte(nil), src[nSrc:]...)
	}
	return string(dst[:nDst])
}

// Pending returns the number of bytes held for the next call.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Reset drops any held bytes.
func (d *Decoder) Reset() {
	d.pending = nil
	d.t.Reset()
}
