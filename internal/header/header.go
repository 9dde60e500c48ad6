// Package header implements an ordered, case-insensitive HTTP header
// multimap. Unlike net/http it never canonicalizes names and never reorders
// entries: values come back in insertion order and serialization emits the
// exact sequence of lines that was added, using the spelling of the first
// occurrence of each name.
package header

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var ErrInvalidField = errors.New("header: invalid field")

type kv struct {
	key   string // lowercased name
	value string
}

type Header struct {
	kvs []kv
	// display maps lowercased names to the spelling of their first
	// occurrence, which is what serialization uses.
	display map[string]string
}

func New() *Header {
	return &Header{display: map[string]string{}}
}

// Add appends a name/value pair. The name must be a valid field name and the
// value must be free of CR and LF; anything else is rejected rather than
// silently mangled on the wire.
func (h *Header) Add(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return ErrInvalidField
	}
	value = strings.TrimSpace(value)
	if !httpguts.ValidHeaderFieldValue(value) {
		return ErrInvalidField
	}
	h.add(name, value)
	return nil
}

// Append stores a pair without field validation. Meant for values already
// parsed off the wire, which cannot contain CR or LF since those terminate
// the field line; Add is the validating entry point for everything else.
func (h *Header) Append(name, value string) {
	h.add(name, value)
}

func (h *Header) add(name, value string) {
	if h.display == nil {
		h.display = map[string]string{}
	}
	key := strings.ToLower(name)
	if _, ok := h.display[key]; !ok {
		h.display[key] = name
	}
	h.kvs = append(h.kvs, kv{key, value})
}

// Get returns the first value for name, or "" and false if absent.
func (h *Header) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	key := strings.ToLower(name)
	for _, kv := range h.kvs {
		if kv.key == key {
			return kv.value, true
		}
	}
	return "", false
}

// Values returns all values for name in insertion order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	key := strings.ToLower(name)
	var vv []string
	for _, kv := range h.kvs {
		if kv.key == key {
			vv = append(vv, kv.value)
		}
	}
	return vv
}

// Del removes every entry for name.
func (h *Header) Del(name string) {
	key := strings.ToLower(name)
	kept := h.kvs[:0]
	for _, kv := range h.kvs {
		if kv.key != key {
			kept = append(kept, kv)
		}
	}
	h.kvs = kept
	delete(h.display, key)
}

func (h *Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.kvs)
}

// Fold appends every entry of other after the existing entries. The receiver
// keeps its own first-occurrence spellings for names both collections share.
func (h *Header) Fold(other *Header) {
	if other == nil {
		return
	}
	for _, kv := range other.kvs {
		h.add(other.display[kv.key], kv.value)
	}
}

// Clone returns a deep copy. A nil receiver yields an empty collection.
func (h *Header) Clone() *Header {
	c := New()
	if h == nil {
		return c
	}
	c.kvs = append(c.kvs, h.kvs...)
	for k, v := range h.display {
		c.display[k] = v
	}
	return c
}

// Range calls f for each entry in insertion order with the display spelling
// of the name. Iteration stops if f returns false.
func (h *Header) Range(f func(name, value string) bool) {
	if h == nil {
		return
	}
	for _, kv := range h.kvs {
		if !f(h.display[kv.key], kv.value) {
			return
		}
	}
}

// Write serializes the collection as CRLF-terminated field lines, without the
// terminating blank line.
func (h *Header) Write(w io.Writer) error {
	if h == nil {
		return nil
	}
	var sb strings.Builder
	for _, kv := range h.kvs {
		sb.WriteString(h.display[kv.key])
		sb.WriteString(": ")
		sb.WriteString(kv.value)
		sb.WriteString("\r\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
