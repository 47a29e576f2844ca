// Package spkio implements SPFS's canonical binary encoding (,
// "Object encoding (bit-exact)"): little-endian u64 integers,
// length-prefixed UTF-8 strings, raw 32-byte digests, and u32 integer
// fields. Decoding is total for well-formed input; malformed input
// produces a typed error naming the offending field.
package spkio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spkdev/spk/pkg/digest"
)

// ErrMalformed names the field that failed to decode.
type ErrMalformed struct {
	Field string
	Cause error
}

func (e ErrMalformed) Error() string {
	return fmt.Sprintf("malformed encoding at field %q: %v", e.Field, e.Cause)
}

func (e ErrMalformed) Unwrap() error { return e.Cause }

// Writer accumulates a canonical binary encoding.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w for canonical encoding writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered by any Write* call.
func (w *Writer) Err() error { return w.err }

func (w *Writer) raw(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

// WriteUint64 writes v as 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.raw(buf[:])
}

// WriteUint32 writes v as 4 little-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.raw(buf[:])
}

// WriteString writes an 8-byte little-endian length prefix followed by
// the UTF-8 bytes of s, with no NUL terminator.
func (w *Writer) WriteString(s string) {
	w.WriteUint64(uint64(len(s)))
	w.raw([]byte(s))
}

// WriteDigest writes the 32 raw bytes of d.
func (w *Writer) WriteDigest(d digest.Digest) {
	w.raw(d[:])
}

// Reader decodes a canonical binary encoding.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader wraps r for canonical encoding reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first decode error, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) raw(field string, p []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		r.err = ErrMalformed{Field: field, Cause: err}
	}
}

// ReadUint64 reads a little-endian 8-byte integer.
func (r *Reader) ReadUint64(field string) uint64 {
	var buf [8]byte
	r.raw(field, buf[:])
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// ReadUint32 reads a little-endian 4-byte integer.
func (r *Reader) ReadUint32(field string) uint32 {
	var buf [4]byte
	r.raw(field, buf[:])
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// maxStringLen guards against a corrupt length prefix causing an
// unbounded allocation while decoding untrusted input.
const maxStringLen = 64 << 20

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString(field string) string {
	n := r.ReadUint64(field)
	if r.err != nil {
		return ""
	}
	if n > maxStringLen {
		r.err = ErrMalformed{Field: field, Cause: fmt.Errorf("string length %d exceeds maximum", n)}
		return ""
	}
	buf := make([]byte, n)
	r.raw(field, buf)
	return string(buf)
}

// ReadBytes reads n raw bytes, guarded by the same maxStringLen bound
// as ReadString.
func (r *Reader) ReadBytes(field string, n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > maxStringLen {
		r.err = ErrMalformed{Field: field, Cause: fmt.Errorf("byte length %d exceeds maximum", n)}
		return nil
	}
	buf := make([]byte, n)
	r.raw(field, buf)
	return buf
}

// ReadDigest reads 32 raw bytes into a Digest.
func (r *Reader) ReadDigest(field string) digest.Digest {
	var d digest.Digest
	r.raw(field, d[:])
	return d
}
