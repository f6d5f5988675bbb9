package core

// streaming.go cleans the byte stream in front of encoding/csv without
// buffering the whole file:
//
//   - the UTF-8 BOM that spreadsheet exports prepend is dropped
//   - invalid UTF-8 bytes are replaced with '?'
//   - raw bytes read are counted for progress logging
//
// Use WrapForStreaming to apply all three in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces every byte that does not start a valid UTF-8
// sequence with '?'. Multi-byte runes split across reads are held back
// until the rest arrives.
type UTF8Sanitizer struct {
	src     io.Reader
	buf     []byte
	pending []byte
	err     error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{src: r}
}

// Read implements io.Reader. A multi-byte rune is never split, so p
// should hold at least utf8.UTFMax bytes.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if n := s.drain(p); n > 0 {
			return n, nil
		}
		if s.err != nil {
			return 0, s.err
		}

		if len(s.buf) < len(p) {
			s.buf = make([]byte, max(len(p), utf8.UTFMax))
		}
		n, err := s.src.Read(s.buf[:len(p)])
		s.pending = append(s.pending, s.buf[:n]...)
		s.err = err
	}
}

// drain moves complete, sanitized runes from pending into p.
func (s *UTF8Sanitizer) drain(p []byte) int {
	written, read := 0, 0
	for read < len(s.pending) && written < len(p) {
		b := s.pending[read]
		if b < utf8.RuneSelf {
			p[written] = b
			written++
			read++
			continue
		}

		rest := s.pending[read:]
		if !utf8.FullRune(rest) && s.err == nil {
			break // wait for the remaining bytes
		}

		r, size := utf8.DecodeRune(rest)
		if r == utf8.RuneError && size <= 1 {
			p[written] = '?'
			written++
			read++
			continue
		}
		if written+size > len(p) {
			break
		}
		copy(p[written:], rest[:size])
		written += size
		read += size
	}

	s.pending = s.pending[read:]
	return written
}

// ProgressReader is the cleaned stream the CSV reader consumes. BytesRead
// counts raw file bytes so it can be compared with Total.
type ProgressReader struct {
	out       io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

type countingReader struct {
	src io.Reader
	n   *int64
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	*c.n += int64(n)
	return n, err
}

// Read implements io.Reader.
func (r *ProgressReader) Read(p []byte) (int, error) {
	return r.out.Read(p)
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *ProgressReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	pct := int(r.BytesRead * 100 / r.Total)
	return min(pct, 100)
}

// WrapForStreaming wraps r with byte counting, BOM skipping and UTF-8
// sanitization.
//
// The order matters: counting sees the raw bytes, the BOM check must see
// the first bytes of the file, and sanitization runs last.
func WrapForStreaming(r io.Reader, totalSize int64) *ProgressReader {
	pr := &ProgressReader{Total: totalSize}
	counted := countingReader{src: r, n: &pr.BytesRead}
	pr.out = NewUTF8Sanitizer(skipBOM(counted))
	return pr
}
