package core

import (
	"io"
	"strings"
	"testing"
)

func TestUploadReaderStripsBOM(t *testing.T) {
	r := NewUploadReader(strings.NewReader("\xEF\xBB\xBFheader"))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "header" {
		t.Errorf("got %q, want %q", got, "header")
	}
}

func TestUploadReaderKeepsMidStreamBOMBytes(t *testing.T) {
	// Only a leading BOM is stripped.
	r := NewUploadReader(strings.NewReader("a\uFEFFb"))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "a\uFEFFb" {
		t.Errorf("got %q", got)
	}
}

func TestUploadReaderReplacesInvalidBytes(t *testing.T) {
	r := NewUploadReader(strings.NewReader("ok\xFF\xFEend"))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "ok??end" {
		t.Errorf("got %q, want %q", got, "ok??end")
	}
}

func TestUploadReaderValidUTF8Passthrough(t *testing.T) {
	input := "héader,Ünïcode\nrow,value\n"
	r := NewUploadReader(strings.NewReader(input))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestUploadReaderSmallBuffer(t *testing.T) {
	// Multi-byte runes must survive reads smaller than the rune width.
	input := "日本語テキスト"
	r := NewUploadReader(strings.NewReader(input))

	var out []byte
	buf := make([]byte, 4)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if string(out) != input {
		t.Errorf("got %q, want %q", out, input)
	}
}

func TestUploadReaderEmptyInput(t *testing.T) {
	r := NewUploadReader(strings.NewReader(""))
	buf := make([]byte, 8)
	n, err := r.Read(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("Read = (%d, %v), want (0, EOF)", n, err)
	}
}
