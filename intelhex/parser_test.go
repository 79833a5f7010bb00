package intelhex

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func parseAll(t *testing.T, input string, opts ...ParserOption) ([]byte, *Parser, error) {
	t.Helper()

	var out bytes.Buffer
	p := NewParser(strings.NewReader(input), &out, opts...)
	for p.HasNext() {
		if err := p.ReadRecord(); err != nil {
			return out.Bytes(), p, err
		}
	}
	return out.Bytes(), p, nil
}

func TestDataRecordsInFileOrder(t *testing.T) {
	input := ":03000000010203F7\n" +
		":02000300AABB94\n" +
		":00000001FF\n"

	got, p, err := parseAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x01, 0x02, 0x03, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Errorf("payload = % X, want % X", got, want)
	}

	stats := p.Stats()
	if stats.Lines != 3 || stats.DataRecords != 2 || stats.Skipped != 1 || stats.PayloadBytes != 5 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestNonDataRecordsContributeNothing(t *testing.T) {
	input := ":020000040001F9\n" +
		":0400000501020304ED\n" +
		":0100000042BD\n" +
		":00000001FF\n" +
		":0100000043BC\n"

	got, p, err := parseAll(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Records after the EOF record are still read.
	if want := []byte{0x42, 0x43}; !bytes.Equal(got, want) {
		t.Errorf("payload = % X, want % X", got, want)
	}
	if p.Stats().Skipped != 3 {
		t.Errorf("skipped = %d, want 3", p.Stats().Skipped)
	}
}

func TestChecksumIgnored(t *testing.T) {
	got, _, err := parseAll(t, ":0200000012340000\n:01000000FF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []byte{0x12, 0x34, 0xFF}; !bytes.Equal(got, want) {
		t.Errorf("payload = % X, want % X", got, want)
	}
}

func TestCRLFAndLowercase(t *testing.T) {
	got, _, err := parseAll(t, ":02000000abcd86\r\n:00000001FF\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []byte{0xAB, 0xCD}; !bytes.Equal(got, want) {
		t.Errorf("payload = % X, want % X", got, want)
	}
}

func TestEmptyInput(t *testing.T) {
	got, p, err := parseAll(t, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no payload, got % X", got)
	}
	if p.HasNext() {
		t.Errorf("HasNext after end of input")
	}
	if err := p.ReadRecord(); err != io.EOF {
		t.Errorf("ReadRecord after end = %v, want io.EOF", err)
	}
}

func TestMalformedLines(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		kind  error
		line  uint
		field string
	}{
		{"empty line", ":00000001FF\n\n", ErrShortLine, 2, "start code"},
		{"no record type", ":020000", ErrShortLine, 1, "record type"},
		{"short payload", ":04000000AABB", ErrShortLine, 1, "data"},
		{"odd payload", ":02000000AAB", ErrShortLine, 1, "data"},
		{"bad count", ":0G00000000", ErrInvalidHex, 1, "byte count"},
		{"bad address", ":0100X00000FF", ErrInvalidHex, 1, "address"},
		{"bad type", ":010000Z000FF", ErrInvalidHex, 1, "record type"},
		{"bad data", ":02000000AAZZ00", ErrInvalidHex, 1, "data"},
		{"bad skipped type", ":00000001FF\n:0100000Q00", ErrInvalidHex, 2, "record type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseAll(t, tc.input)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, tc.kind) {
				t.Errorf("error %v is not %v", err, tc.kind)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if perr.Line != tc.line {
				t.Errorf("line = %d, want %d", perr.Line, tc.line)
			}
			if perr.Field != tc.field {
				t.Errorf("field = %q, want %q", perr.Field, tc.field)
			}
		})
	}
}

func TestErrorSticks(t *testing.T) {
	var out bytes.Buffer
	p := NewParser(strings.NewReader(":zz\n:0100000042BD\n"), &out)

	first := p.ReadRecord()
	if first == nil {
		t.Fatalf("expected error")
	}
	if !p.HasNext() {
		t.Errorf("HasNext should stay true after an error")
	}
	if err := p.ReadRecord(); err != first {
		t.Errorf("second ReadRecord = %v, want %v", err, first)
	}
	if out.Len() != 0 {
		t.Errorf("payload written after error: % X", out.Bytes())
	}
}

func TestRecordHook(t *testing.T) {
	var seen []Record
	_, _, err := parseAll(t, ":0100100042AD\n:00000001FF\n", WithRecordHook(func(r Record) {
		seen = append(seen, r)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("hook saw %d records, want 2", len(seen))
	}
	if seen[0].RecType != Data || seen[0].Offset != 0x0010 || seen[0].Length != 1 || seen[0].Line != 1 {
		t.Errorf("unexpected first record %+v", seen[0])
	}
	if seen[1].RecType != EndOfFile || seen[1].Body != nil {
		t.Errorf("unexpected second record %+v", seen[1])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteFailure(t *testing.T) {
	p := NewParser(strings.NewReader(":0100000042BD\n"), failingWriter{})
	if !p.HasNext() {
		t.Fatalf("expected a line")
	}
	err := p.ReadRecord()
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}
