package core

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

// utf8BOM is the byte order mark Windows spreadsheet exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewUploadReader wraps an uploaded CSV stream so the parser sees clean
// input: a UTF-8 BOM is skipped and invalid UTF-8 bytes are replaced
// with '?'. Memory use stays constant regardless of file size.
func NewUploadReader(r io.Reader) io.Reader {
	return &uploadReader{br: bufio.NewReader(r)}
}

type uploadReader struct {
	br         *bufio.Reader
	bomChecked bool
}

func (u *uploadReader) Read(p []byte) (int, error) {
	if !u.bomChecked {
		u.bomChecked = true
		if head, _ := u.br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			if _, err := u.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}

	n := 0
	for n < len(p) {
		r, size, err := u.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if r == utf8.RuneError && size == 1 {
			// Invalid byte. '?' keeps the replacement single-byte so the
			// output never grows past the input.
			p[n] = '?'
			n++
			continue
		}

		if n+size > len(p) {
			// Rune does not fit in the remaining buffer; put it back for
			// the next call.
			if err := u.br.UnreadRune(); err != nil {
				return n, err
			}
			break
		}
		n += utf8.EncodeRune(p[n:], r)
	}

	return n, nil
}
