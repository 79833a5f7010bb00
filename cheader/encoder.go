package cheader

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	DefaultPagesMacro = "NUMBER_OF_PAGES"
	DefaultArrayName  = "newbootloader"
)

var ErrUnaligned = errors.New("buffer is not a whole number of pages")

// Encoder renders a page-aligned image as a C header:
//
//	#define NUMBER_OF_PAGES <pages>
//
//	uint8_t newbootloader[<len>] = {
//	0xHH,0xHH,...
//	};
type Encoder struct {
	w io.Writer

	pageSize     int
	pagesMacro   string
	arrayName    string
	bytesPerLine int
}

type EncoderOptions struct {
	pagesMacro   string
	arrayName    string
	bytesPerLine int
}

type EncoderOption func(*EncoderOptions)

func WithPagesMacro(name string) EncoderOption {
	return func(o *EncoderOptions) {
		o.pagesMacro = name
	}
}

func WithArrayName(name string) EncoderOption {
	return func(o *EncoderOptions) {
		o.arrayName = name
	}
}

// WithBytesPerLine overrides the body line width, which defaults to an
// eighth of a page.
func WithBytesPerLine(n int) EncoderOption {
	return func(o *EncoderOptions) {
		o.bytesPerLine = n
	}
}

func NewEncoder(w io.Writer, pageSize int, opts ...EncoderOption) *Encoder {
	eo := &EncoderOptions{
		pagesMacro:   DefaultPagesMacro,
		arrayName:    DefaultArrayName,
		bytesPerLine: pageSize / 8,
	}
	for _, opt := range opts {
		opt(eo)
	}
	if eo.bytesPerLine <= 0 {
		eo.bytesPerLine = 1
	}

	return &Encoder{
		w:            w,
		pageSize:     pageSize,
		pagesMacro:   eo.pagesMacro,
		arrayName:    eo.arrayName,
		bytesPerLine: eo.bytesPerLine,
	}
}

// Encode writes the header for image, which must already be padded.
func (e *Encoder) Encode(image []byte) error {
	if e.pageSize <= 0 || len(image)%e.pageSize != 0 {
		return errors.Wrapf(ErrUnaligned, "%d bytes with page size %d", len(image), e.pageSize)
	}

	bw := bufio.NewWriter(e.w)

	fmt.Fprintf(bw, "#define %s %d\n\n", e.pagesMacro, len(image)/e.pageSize)
	fmt.Fprintf(bw, "uint8_t %s[%d] = {\n", e.arrayName, len(image))

	for start := 0; start < len(image); start += e.bytesPerLine {
		end := start + e.bytesPerLine
		if end > len(image) {
			end = len(image)
		}
		if err := e.encodeLine(bw, image[start:end]); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString("};\n"); err != nil {
		return errors.Wrap(err, "write header")
	}

	return errors.Wrap(bw.Flush(), "write header")
}

const hexDigits = "0123456789ABCDEF"

func (e *Encoder) encodeLine(bw *bufio.Writer, chunk []byte) error {
	token := []byte("0x00,")
	for _, b := range chunk {
		token[2] = hexDigits[b>>4]
		token[3] = hexDigits[b&0x0F]
		if _, err := bw.Write(token); err != nil {
			return errors.Wrap(err, "write header")
		}
	}
	return bw.WriteByte('\n')
}
