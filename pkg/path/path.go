// Package path builds structural paths such as "Observation.code.coding[0]"
// that address a node inside a resource document.
package path

import (
	"strconv"
	"sync"
)

// Builder appends path segments into a reusable byte buffer.
type Builder struct {
	buf []byte
}

var builderPool = sync.Pool{
	New: func() any {
		return &Builder{buf: make([]byte, 0, 128)}
	},
}

// Acquire gets a Builder from the pool. Call Release when done.
func Acquire() *Builder {
	b := builderPool.Get().(*Builder)
	b.buf = b.buf[:0]
	return b
}

// Release returns the Builder to the pool.
func (b *Builder) Release() {
	if b == nil {
		return
	}
	if cap(b.buf) <= 4096 {
		builderPool.Put(b)
	}
}

// WriteString appends raw text.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// Field appends a member name, preceded by '.' unless the path is empty.
func (b *Builder) Field(name string) {
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, name...)
}

// Index appends an array index in brackets.
func (b *Builder) Index(i int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(i), 10)
	b.buf = append(b.buf, ']')
}

// String returns the built path.
func (b *Builder) String() string {
	return string(b.buf)
}

// Child returns base extended with a member name.
func Child(base, name string) string {
	b := Acquire()
	defer b.Release()
	b.WriteString(base)
	b.Field(name)
	return b.String()
}

// Item returns base extended with an array index.
func Item(base string, i int) string {
	b := Acquire()
	defer b.Release()
	b.WriteString(base)
	b.Index(i)
	return b.String()
}

// Last returns the final segment of a path: everything after the last '.'.
func Last(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '.' {
			return p[i+1:]
		}
	}
	return p
}
