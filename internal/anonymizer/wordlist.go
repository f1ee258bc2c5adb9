// A replacement list is a plain-text file, one entry per line. An entry is
// either a bare word or "label→word", where only the text after the arrow is
// redacted. The file is located through an ordered list of candidate paths
// and decoded through an ordered list of text encodings; the first candidate
// that exists and the first encoding that decodes cleanly win.

package anonymizer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// listArrow separates a label from the word to redact.
const listArrow = "→"

// invisibleMarks are stripped from both ends of every list line: byte order
// marks and zero-width spaces left behind by editors.
const invisibleMarks = "\ufeff\u200b\ufffe"

// Decoder turns raw file bytes into text. Decode must fail rather than
// substitute replacement characters when the bytes are not valid for it.
type Decoder struct {
	Name   string
	Decode func([]byte) (string, error)
}

// errInvalid is returned by decoders for input they cannot represent.
var errInvalid = errors.New("invalid byte sequence")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultDecoders is the fixed preference order used by Load.
var DefaultDecoders = []Decoder{
	{Name: "UTF-8", Decode: decodeUTF8},
	{Name: "UTF-16", Decode: decodeUTF16},
	{Name: "Shift_JIS", Decode: strictDecoder(japanese.ShiftJIS)},
	{Name: "EUC-JP", Decode: strictDecoder(japanese.EUCJP)},
}

func decodeUTF8(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", errInvalid
	}
	return string(b), nil
}

// decodeUTF16 only accepts input carrying a UTF-16 byte order mark, so plain
// legacy encodings are not misread as UTF-16.
func decodeUTF16(b []byte) (string, error) {
	if len(b) < 2 || !(b[0] == 0xFF && b[1] == 0xFE || b[0] == 0xFE && b[1] == 0xFF) {
		return "", errInvalid
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	return decodeStrict(dec, b)
}

func strictDecoder(enc encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		return decodeStrict(enc.NewDecoder(), b)
	}
}

// decodeStrict runs a decoder and rejects output containing U+FFFD, which
// x/text decoders emit for undecodable input instead of failing. No list
// encoded in a legacy charset or UTF-16 carries a literal U+FFFD.
func decodeStrict(dec *encoding.Decoder, b []byte) (string, error) {
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errInvalid
	}
	return string(out), nil
}

// Decode tries each decoder in order and returns the text and the name of
// the first one that succeeds.
func Decode(b []byte, decoders []Decoder) (string, string, error) {
	for _, d := range decoders {
		text, err := d.Decode(b)
		if err == nil {
			return text, d.Name, nil
		}
	}
	return "", "", fmt.Errorf("no decoder accepted input (tried %d)", len(decoders))
}

// ParseWordList extracts the redaction words from list text. Duplicates are
// removed; order of first appearance is kept.
func ParseWordList(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, line := range strings.Split(text, "\n") {
		w := listEntry(line)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func listEntry(line string) string {
	line = strings.Trim(strings.TrimSpace(line), invisibleMarks)
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if _, after, found := strings.Cut(line, listArrow); found {
		word, _, _ := strings.Cut(after, listArrow)
		return strings.TrimSpace(word)
	}
	return line
}

// CandidatePaths returns the places a configured list path is looked for,
// in order. An absolute path is used as-is. A relative path is tried under
// each base directory, first as given and then as its bare filename.
func CandidatePaths(path string, bases []string) []string {
	if path == "" {
		return nil
	}
	if filepath.IsAbs(path) {
		return []string{path}
	}
	name := filepath.Base(path)
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, base := range bases {
		if base == "" {
			continue
		}
		add(filepath.Join(base, path))
		add(filepath.Join(base, name))
	}
	return out
}

// DefaultBases returns the executable directory, the working directory and
// the executable directory with symlinks resolved, skipping any that cannot
// be determined.
func DefaultBases() []string {
	var bases []string
	exe, exeErr := os.Executable()
	if exeErr == nil {
		bases = append(bases, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		bases = append(bases, wd)
	}
	if exeErr == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			bases = append(bases, filepath.Dir(real))
		}
	}
	return bases
}

// Loader locates and decodes a replacement list.
type Loader struct {
	Bases    []string  // nil = DefaultBases()
	Decoders []Decoder // nil = DefaultDecoders
}

// ListFile is a successfully read replacement list.
type ListFile struct {
	Path     string
	Encoding string
	Words    []string
}

// Read resolves path against the candidate list and decodes the first file
// found.
func (l *Loader) Read(path string) (*ListFile, error) {
	bases := l.Bases
	if bases == nil {
		bases = DefaultBases()
	}
	decoders := l.Decoders
	if decoders == nil {
		decoders = DefaultDecoders
	}

	candidates := CandidatePaths(path, bases)
	actual := ""
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			actual = c
			break
		}
	}
	if actual == "" {
		return nil, fmt.Errorf("replacement list %q not found in %d candidate paths", path, len(candidates))
	}

	data, err := os.ReadFile(actual) // #nosec G304 -- path from trusted config
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", actual, err)
	}
	text, enc, err := Decode(data, decoders)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", actual, err)
	}
	return &ListFile{Path: actual, Encoding: enc, Words: ParseWordList(text)}, nil
}
