package membuf

import (
	"fmt"
	"io"
)

const (
	// PageSize is the flash page size of the target AVR.
	PageSize = 256
	// FillByte is the erased state of flash, so padding is a no-op on write.
	FillByte = 0xFF
)

// PageBuffer accumulates bytes in write order and pads them out to a
// whole number of pages.
type PageBuffer struct {
	pageSize int
	fill     byte
	buf      []byte
}

func NewPageBuffer(pageSize int, fill byte) *PageBuffer {
	if pageSize <= 0 {
		panic(fmt.Errorf("invalid page size %d", pageSize))
	}
	return &PageBuffer{
		pageSize: pageSize,
		fill:     fill,
	}
}

func (m *PageBuffer) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

// Pad appends fill bytes up to the next page boundary and returns how many
// were added. An aligned buffer, including an empty one, is left alone.
func (m *PageBuffer) Pad() int {
	n := (m.pageSize - len(m.buf)%m.pageSize) % m.pageSize
	for i := 0; i < n; i++ {
		m.buf = append(m.buf, m.fill)
	}
	return n
}

func (m *PageBuffer) Len() int {
	return len(m.buf)
}

// Pages is the number of whole pages held. Call Pad first.
func (m *PageBuffer) Pages() int {
	return len(m.buf) / m.pageSize
}

func (m *PageBuffer) PageSize() int {
	return m.pageSize
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (m *PageBuffer) Bytes() []byte {
	return m.buf
}

// Page returns page i, or nil if out of range.
func (m *PageBuffer) Page(i int) []byte {
	start := i * m.pageSize
	if i < 0 || start+m.pageSize > len(m.buf) {
		return nil
	}
	return m.buf[start : start+m.pageSize]
}

var _ io.Writer = (*PageBuffer)(nil)
