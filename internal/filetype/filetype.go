// Package filetype classifies search hits by document kind for display.
package filetype

import (
	"path"
	"strings"
)

// Kind is a coarse document class.
type Kind int

const (
	Unknown Kind = iota
	PDF
	Word
	Excel
	PowerPoint
	DocuWorks
	Image
	CAD
	Text
	Archive
)

var kindNames = [...]string{
	Unknown:    "file",
	PDF:        "pdf",
	Word:       "word",
	Excel:      "excel",
	PowerPoint: "powerpoint",
	DocuWorks:  "docuworks",
	Image:      "image",
	CAD:        "cad",
	Text:       "text",
	Archive:    "archive",
}

var kindBadges = [...]string{
	Unknown:    "FILE",
	PDF:        "PDF ",
	Word:       "DOC ",
	Excel:      "XLS ",
	PowerPoint: "PPT ",
	DocuWorks:  "XDW ",
	Image:      "IMG ",
	CAD:        "CAD ",
	Text:       "TXT ",
	Archive:    "ZIP ",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return kindNames[Unknown]
	}
	return kindNames[k]
}

// Badge is a fixed four-cell label for list rows.
func (k Kind) Badge() string {
	if int(k) < 0 || int(k) >= len(kindBadges) {
		return kindBadges[Unknown]
	}
	return kindBadges[k]
}

var extensions = map[string]Kind{
	"pdf":  PDF,
	"doc":  Word,
	"docx": Word,
	"docm": Word,
	"rtf":  Word,
	"xls":  Excel,
	"xlsx": Excel,
	"xlsm": Excel,
	"csv":  Excel,
	"ppt":  PowerPoint,
	"pptx": PowerPoint,
	"xdw":  DocuWorks,
	"xbd":  DocuWorks,
	"jpg":  Image,
	"jpeg": Image,
	"png":  Image,
	"gif":  Image,
	"bmp":  Image,
	"tif":  Image,
	"tiff": Image,
	"webp": Image,
	"dwg":  CAD,
	"dxf":  CAD,
	"jww":  CAD,
	"sfc":  CAD,
	"p21":  CAD,
	"txt":  Text,
	"md":   Text,
	"log":  Text,
	"json": Text,
	"xml":  Text,
	"html": Text,
	"zip":  Archive,
	"lzh":  Archive,
	"7z":   Archive,
	"rar":  Archive,
}

// Classify returns the kind for a hit. fileType is the backend's type field,
// either an extension ("pdf", ".PDF") or a MIME type ("application/pdf");
// when it is empty or unrecognised the extension of name is used.
func Classify(fileType, name string) Kind {
	if k, ok := fromType(fileType); ok {
		return k
	}
	if k, ok := fromType(Ext(name)); ok {
		return k
	}
	return Unknown
}

// Ext returns the lower-cased extension of name without the dot.
func Ext(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	ext := path.Ext(path.Base(name))
	if len(ext) <= 1 {
		return ""
	}
	return strings.ToLower(ext[1:])
}

func fromType(t string) (Kind, bool) {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.TrimPrefix(t, ".")
	if t == "" {
		return Unknown, false
	}
	if k, ok := extensions[t]; ok {
		return k, true
	}
	if i := strings.IndexByte(t, '/'); i >= 0 {
		return fromMIME(t[:i], t[i+1:])
	}
	return Unknown, false
}

func fromMIME(major, minor string) (Kind, bool) {
	switch {
	case major == "image":
		return Image, true
	case major == "text":
		return Text, true
	case minor == "pdf":
		return PDF, true
	case strings.Contains(minor, "wordprocessing"), minor == "msword":
		return Word, true
	case strings.Contains(minor, "spreadsheet"), minor == "vnd.ms-excel":
		return Excel, true
	case strings.Contains(minor, "presentation"), minor == "vnd.ms-powerpoint":
		return PowerPoint, true
	case strings.Contains(minor, "docuworks"):
		return DocuWorks, true
	case minor == "zip", minor == "x-7z-compressed", minor == "vnd.rar":
		return Archive, true
	}
	return Unknown, false
}

// IsTextLike reports whether files of this kind can have an excerpt read
// directly from disk.
func (k Kind) IsTextLike() bool { return k == Text }
