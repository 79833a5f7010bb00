package intelhex

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// RecordType is the Intel HEX record type field.
type RecordType uint8

const (
	Data RecordType = iota
	EndOfFile
	ExtSegAddr
	StartSegAddr
	ExtLinAddr
	StartLinAddr
)

// Record is a single decoded line. Only data records carry a Body.
type Record struct {
	Line    uint
	Length  uint8
	Offset  uint16
	RecType RecordType
	Body    []byte
}

type field struct {
	name  string
	width int
}

// https://en.wikipedia.org/wiki/Intel_HEX#Format
var (
	markField    = field{"start code", 1}
	lengthField  = field{"byte count", 2}
	offsetField  = field{"address", 4}
	recTypeField = field{"record type", 2}
)

// Stats counts what the parser has seen so far.
type Stats struct {
	Lines        uint
	DataRecords  uint
	Skipped      uint
	PayloadBytes int
}

type Parser struct {
	s *bufio.Scanner
	w io.Writer

	hook  func(Record)
	stats Stats

	line    string
	pending bool
	err     error
	eof     bool
}

type ParserOptions struct {
	hook func(Record)
}

type ParserOption func(*ParserOptions)

// WithRecordHook registers fn to be called with every decoded record,
// data or not, before its payload is written.
func WithRecordHook(fn func(Record)) ParserOption {
	return func(o *ParserOptions) {
		o.hook = fn
	}
}

// NewParser reads Intel HEX text from r and writes the payload of every
// data record to w, in file order.
func NewParser(r io.Reader, w io.Writer, opts ...ParserOption) *Parser {
	po := &ParserOptions{}
	for _, opt := range opts {
		opt(po)
	}
	return &Parser{
		s:    bufio.NewScanner(r),
		w:    w,
		hook: po.hook,
	}
}

// HasNext reports whether another line is waiting to be read. A read error
// also reports true so that the next ReadRecord can return it.
func (p *Parser) HasNext() bool {
	if p.pending || p.err != nil {
		return true
	}
	if p.eof {
		return false
	}

	if !p.s.Scan() {
		if err := p.s.Err(); err != nil {
			p.err = errors.Wrap(err, "read hex input")
			return true
		}
		p.eof = true
		return false
	}

	p.line = p.s.Text()
	p.pending = true
	return true
}

// ReadRecord decodes the next line. Non-data records are counted and
// dropped; data record payloads go to the writer.
func (p *Parser) ReadRecord() error {
	if p.err != nil {
		return p.err
	}
	if !p.pending && !p.HasNext() {
		return io.EOF
	}
	if p.err != nil {
		return p.err
	}

	p.pending = false
	p.stats.Lines++

	rec, err := decodeLine(strings.TrimRight(p.line, "\r\n"), p.stats.Lines)
	if err != nil {
		p.err = err
		return err
	}

	if p.hook != nil {
		p.hook(rec)
	}

	if rec.RecType != Data {
		p.stats.Skipped++
		return nil
	}

	if _, err := p.w.Write(rec.Body); err != nil {
		p.err = errors.Wrapf(err, "write payload of line %d", rec.Line)
		return p.err
	}

	p.stats.DataRecords++
	p.stats.PayloadBytes += len(rec.Body)
	return nil
}

func (p *Parser) Stats() Stats {
	return p.stats
}

func decodeLine(s string, lineNum uint) (Record, error) {
	d := &fieldDecoder{s: s, line: lineNum}

	d.skip(markField)
	length := d.byteField(lengthField)
	offset := d.wordField(offsetField)
	recType := d.byteField(recTypeField)
	if d.err != nil {
		return Record{}, d.err
	}

	rec := Record{
		Line:    lineNum,
		Length:  length,
		Offset:  offset,
		RecType: RecordType(recType),
	}

	// Checksum and whatever follows it are never looked at.
	if rec.RecType == Data {
		rec.Body = d.bytes(field{"data", int(length) * 2})
		if d.err != nil {
			return Record{}, d.err
		}
	}

	return rec, nil
}

// fieldDecoder walks a record line left to right, one declared-width
// field at a time. The first failure sticks.
type fieldDecoder struct {
	s    string
	pos  int
	line uint
	err  error
}

func (d *fieldDecoder) take(f field) string {
	if d.err != nil {
		return ""
	}
	if len(d.s)-d.pos < f.width {
		d.err = &ParseError{
			Kind:   ErrShortLine,
			Line:   d.line,
			Field:  f.name,
			Column: d.pos + 1,
		}
		return ""
	}
	v := d.s[d.pos : d.pos+f.width]
	d.pos += f.width
	return v
}

func (d *fieldDecoder) skip(f field) {
	d.take(f)
}

func (d *fieldDecoder) bytes(f field) []byte {
	col := d.pos + 1
	v := d.take(f)
	if d.err != nil {
		return nil
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		d.err = &ParseError{
			Kind:   ErrInvalidHex,
			Line:   d.line,
			Field:  f.name,
			Column: col,
			err:    err,
		}
		return nil
	}
	return b
}

func (d *fieldDecoder) byteField(f field) uint8 {
	b := d.bytes(f)
	if d.err != nil {
		return 0
	}
	return b[0]
}

func (d *fieldDecoder) wordField(f field) uint16 {
	b := d.bytes(f)
	if d.err != nil {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}
