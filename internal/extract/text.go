// Package extract reads searchable text and file attributes for the local
// indexer.
package extract

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

const (
	sampleSize                   = 4096
	nonPrintableThresholdPercent = 30
)

// DefaultExcerptBytes is how much of a text file the indexer reads.
const DefaultExcerptBytes = 64 << 10

type bom int

const (
	bomNone bom = iota
	bomUTF8
	bomUTF16LE
	bomUTF16BE
)

// IsText reports whether content looks like text rather than binary data.
func IsText(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	sample := content
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	if detectBOM(sample) != bomNone {
		return true
	}
	if bytes.IndexByte(sample, 0x00) != -1 {
		return false
	}
	if utf8.Valid(trimPartialRune(sample)) {
		return true
	}

	printable := 0
	for _, b := range sample {
		if isCommonTextByte(b) {
			printable++
		}
	}
	if printable == 0 {
		return false
	}
	return (len(sample)-printable)*100/len(sample) < nonPrintableThresholdPercent
}

// Decode converts content to UTF-8. BOM-marked UTF-8 and UTF-16 are decoded
// by their mark; other invalid UTF-8 is tried as Shift_JIS and then EUC-JP.
func Decode(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	switch detectBOM(content) {
	case bomUTF8:
		return string(content[3:])
	case bomUTF16LE:
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), content)
	case bomUTF16BE:
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), content)
	}
	if utf8.Valid(trimPartialRune(content)) {
		return strings.ToValidUTF8(string(content), "")
	}
	for _, enc := range []encoding.Encoding{japanese.ShiftJIS, japanese.EUCJP} {
		if out, err := enc.NewDecoder().Bytes(content); err == nil && utf8.Valid(out) && !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(content), "")
}

// Excerpt returns up to limit bytes of path decoded as text with whitespace
// collapsed. Binary files yield "".
func Excerpt(path string, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultExcerptBytes
	}
	head, err := readHead(path, limit)
	if err != nil {
		return "", err
	}
	if !IsText(head) {
		return "", nil
	}
	return strings.Join(strings.Fields(Decode(head)), " "), nil
}

func readHead(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

func decodeWith(enc encoding.Encoding, content []byte) string {
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(out)
}

// trimPartialRune drops a multi-byte sequence cut off by a read limit.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

func isCommonTextByte(b byte) bool {
	switch {
	case b == 0x09 || b == 0x0A || b == 0x0D:
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	case b == 0x1B:
		return true
	case b >= 0x80:
		return true
	default:
		return false
	}
}

func detectBOM(sample []byte) bom {
	if len(sample) >= 3 && sample[0] == 0xEF && sample[1] == 0xBB && sample[2] == 0xBF {
		return bomUTF8
	}
	if len(sample) >= 2 {
		switch {
		case sample[0] == 0xFF && sample[1] == 0xFE:
			return bomUTF16LE
		case sample[0] == 0xFE && sample[1] == 0xFF:
			return bomUTF16BE
		}
	}
	return bomNone
}
