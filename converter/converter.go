package converter

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unstableunicorn/avrbootjack/cheader"
	"github.com/unstableunicorn/avrbootjack/intelhex"
	"github.com/unstableunicorn/avrbootjack/membuf"
)

// DefaultOutput is the header the bootjack updater includes.
const DefaultOutput = "new_boot.h"

var ErrTooManyPages = errors.New("image does not fit in the boot section")

// Result summarises a conversion.
type Result struct {
	Lines        uint
	DataRecords  uint
	Skipped      uint
	PayloadBytes int
	PaddingBytes int
	Pages        int
}

type Options struct {
	maxPages int
	verbose  bool
}

type Option func(*Options)

// WithMaxPages fails the conversion when the padded image needs more than
// n pages. Zero disables the check.
func WithMaxPages(n int) Option {
	return func(o *Options) {
		o.maxPages = n
	}
}

// WithVerbose logs every record as it is decoded.
func WithVerbose() Option {
	return func(o *Options) {
		o.verbose = true
	}
}

// Convert reads Intel HEX from r and writes the bootloader header to w.
func Convert(r io.Reader, w io.Writer, opts ...Option) (*Result, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	var parserOpts []intelhex.ParserOption
	if o.verbose {
		parserOpts = append(parserOpts, intelhex.WithRecordHook(logRecord))
	}

	buf := membuf.NewPageBuffer(membuf.PageSize, membuf.FillByte)
	parser := intelhex.NewParser(r, buf, parserOpts...)
	for parser.HasNext() {
		if err := parser.ReadRecord(); err != nil {
			return nil, err
		}
	}

	padding := buf.Pad()
	stats := parser.Stats()
	result := &Result{
		Lines:        stats.Lines,
		DataRecords:  stats.DataRecords,
		Skipped:      stats.Skipped,
		PayloadBytes: stats.PayloadBytes,
		PaddingBytes: padding,
		Pages:        buf.Pages(),
	}

	if o.maxPages > 0 && result.Pages > o.maxPages {
		return nil, errors.Wrapf(ErrTooManyPages, "%d pages, limit %d", result.Pages, o.maxPages)
	}

	encoder := cheader.NewEncoder(w, buf.PageSize())
	if err := encoder.Encode(buf.Bytes()); err != nil {
		return nil, err
	}

	return result, nil
}

// ConvertFile converts inPath into the header at outPath. The header is
// rendered in memory and replaced atomically, so a failed run leaves any
// previous header untouched.
func ConvertFile(inPath, outPath string, opts ...Option) (*Result, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out bytes.Buffer
	result, err := Convert(f, &out, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", inPath)
	}

	if err := atomicWriteFile(outPath, out.Bytes(), 0644); err != nil {
		return nil, errors.Wrapf(err, "write %s", outPath)
	}

	return result, nil
}

func logRecord(rec intelhex.Record) {
	if rec.RecType != intelhex.Data {
		log.Printf("line %d: skipping record type %02X", rec.Line, uint8(rec.RecType))
		return
	}
	log.Printf("line %d: %d data bytes at %04X", rec.Line, rec.Length, rec.Offset)
}

// atomicWriteFile writes data to a file atomically using a temp file in the same directory.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
