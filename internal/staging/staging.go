// Package staging persists uploaded files to a local directory before they
// are registered in the document store and handed to the worker.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidFilename is returned when nothing usable remains after sanitizing.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrFileTooLarge is returned when content exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrPersist is returned when a file cannot be written to the staging directory.
	ErrPersist = errors.New("failed to persist file")
	// ErrDecode is returned when persisted content is not valid UTF-8 text.
	ErrDecode = errors.New("file is not valid UTF-8 text")
)

var (
	unsafeChars     = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	windowsReserved = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// SanitizeFilename reduces an uploaded name to a flat ASCII filename that is
// safe to join with the staging directory. "../../etc/passwd" becomes
// "etc_passwd" and "My cool movie.mov" becomes "My_cool_movie.mov".
func SanitizeFilename(name string) (string, error) {
	decomposed := norm.NFKD.String(name)
	ascii := make([]byte, 0, len(decomposed))
	for i := 0; i < len(decomposed); i++ {
		if c := decomposed[i]; c < utf8.RuneSelf {
			ascii = append(ascii, c)
		}
	}

	s := strings.NewReplacer("/", " ", "\\", " ").Replace(string(ascii))
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if s == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if _, reserved := windowsReserved[strings.ToUpper(strings.SplitN(s, ".", 2)[0])]; reserved {
		s = "_" + s
	}
	return s, nil
}

// Dir is a staging directory. Files are flat: one file per sanitized name,
// overwritten on re-upload. Concurrent uploads of the same name race.
type Dir struct {
	root         string
	maxFileBytes int64
}

// New creates the directory if needed. maxFileBytes <= 0 disables the size limit.
func New(root string, maxFileBytes int64) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Dir{root: abs, maxFileBytes: maxFileBytes}, nil
}

// Root returns the absolute staging directory.
func (d *Dir) Root() string { return d.root }

// Path returns where a sanitized name is stored.
func (d *Dir) Path(name string) string { return filepath.Join(d.root, name) }

// Save writes content under name atomically (temp file then rename) and
// returns the final path. name must already be sanitized.
func (d *Dir) Save(name string, content []byte) (string, error) {
	if d.maxFileBytes > 0 && int64(len(content)) > d.maxFileBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, name, len(content), d.maxFileBytes)
	}

	tmp, err := os.CreateTemp(d.root, ".upload-*.tmp")
	if err != nil {
		return "", persistError(name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", persistError(name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", persistError(name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", persistError(name, err)
	}

	path := d.Path(name)
	if err := os.Rename(tmpName, path); err != nil {
		return "", persistError(name, err)
	}
	return path, nil
}

// persistError reports a filesystem failure by file name only; the host
// staging path stays out of the message.
func persistError(name string, err error) error {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	switch {
	case errors.As(err, &pathErr):
		err = pathErr.Err
	case errors.As(err, &linkErr):
		err = linkErr.Err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersist, name, err)
}

// ReadText reads a persisted file back and checks it is valid UTF-8.
// A leading byte order mark is dropped.
func (d *Dir) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", persistError(filepath.Base(path), err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrDecode, filepath.Base(path))
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}
