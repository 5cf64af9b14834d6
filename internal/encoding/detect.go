package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the encoding a statement file was written in.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8 BOM"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	ISO88591    Charset = "ISO-8859-1"
	Windows1252 Charset = "windows-1252"
)

const sniffLen = 4096

var boms = []struct {
	prefix  []byte
	charset Charset
}{
	{[]byte{0xEF, 0xBB, 0xBF}, UTF8BOM},
	{[]byte{0xFF, 0xFE}, UTF16LE},
	{[]byte{0xFE, 0xFF}, UTF16BE},
}

// Detect guesses the charset of a statement from its first bytes. Brazilian
// internet banking exports are usually UTF-8 or ISO-8859-1; anything chardet
// cannot place is read as Windows-1252, a superset of ISO-8859-1 for printable text.
func Detect(sample []byte) Charset {
	for _, b := range boms {
		if bytes.HasPrefix(sample, b.prefix) {
			return b.charset
		}
	}

	if utf8.Valid(sample) {
		return UTF8
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return Windows1252
	}

	switch res.Charset {
	case "UTF-8":
		return UTF8
	case "ISO-8859-1":
		return ISO88591
	}

	return Windows1252
}

func decoder(cs Charset) encoding.Encoding {
	switch cs {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case ISO88591:
		return charmap.ISO8859_1
	case Windows1252:
		return charmap.Windows1252
	}

	return nil
}

// NewUTF8Reader wraps r so that it yields UTF-8 whatever the source charset.
// A UTF-8 byte order mark is dropped.
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	sample, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	cs := Detect(sample)

	if cs == UTF8BOM {
		if _, err := br.Discard(3); err != nil {
			return nil, "", fmt.Errorf("discard bom: %w", err)
		}

		return br, cs, nil
	}

	enc := decoder(cs)
	if enc == nil {
		return br, cs, nil
	}

	return transform.NewReader(br, enc.NewDecoder()), cs, nil
}
