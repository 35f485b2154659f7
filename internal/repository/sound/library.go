package sound

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	// ErrNotFound is returned when the sound file does not exist.
	ErrNotFound = errors.New("sound file not found")
	// ErrInvalidName is returned for empty names, directory components or traversal.
	ErrInvalidName = errors.New("invalid sound name")
	// ErrUnsupportedFormat is returned for extensions outside the audio whitelist.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// unsafeChars matches what the upload endpoint replaces with an underscore.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// Extensions returns the accepted audio extensions without the dot.
func Extensions() []string {
	return []string{"mp3", "wav", "ogg"}
}

// File describes a sound resource in the library.
type File struct {
	Name      string
	Path      string
	Size      int64
	Extension string
	Modified  time.Time
}

// Library resolves sound filenames inside one directory.
type Library struct {
	// fs is the filesystem holding the directory.
	fs afero.Fs
	// dir is the audio directory.
	dir string
}

// NewLibrary creates a library rooted at dir on the OS filesystem.
func NewLibrary(dir string) *Library {
	return NewLibraryFs(afero.NewOsFs(), dir)
}

// NewLibraryFs creates a library rooted at dir on fs.
func NewLibraryFs(fs afero.Fs, dir string) *Library {
	return &Library{
		fs:  fs,
		dir: filepath.Clean(dir),
	}
}

// Dir returns the audio directory.
func (l *Library) Dir() string {
	return l.dir
}

// Fs returns the filesystem the library reads from.
func (l *Library) Fs() afero.Fs {
	return l.fs
}

// SanitizeName mirrors the upload sanitisation: only the base name is kept and
// anything outside [a-zA-Z0-9_-.] becomes an underscore.
func SanitizeName(name string) string {
	name = path.Base(filepath.ToSlash(strings.TrimSpace(name)))

	return unsafeChars.ReplaceAllString(name, "_")
}

// Resolve returns the path of an existing sound file.
// Names with directory components are rejected rather than rewritten, since
// they can only come from a tampered database row.
func (l *Library) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	full := filepath.Join(l.dir, name)

	info, err := l.fs.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, full)
		}

		return "", fmt.Errorf("stat sound %s: %w", full, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidName, full)
	}

	return full, nil
}

// Validate resolves name and checks its extension against the whitelist.
func (l *Library) Validate(name string) (*File, error) {
	full, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}

	ext, ok := audioExtension(full)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	info, err := l.fs.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("stat sound %s: %w", full, err)
	}

	return &File{
		Name:      info.Name(),
		Path:      full,
		Size:      info.Size(),
		Extension: ext,
		Modified:  info.ModTime(),
	}, nil
}

// List returns the playable files of the directory sorted by name.
// A missing directory yields an empty list.
func (l *Library) List() ([]File, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read sound directory: %w", err)
	}

	files := make([]File, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext, ok := audioExtension(entry.Name())
		if !ok {
			continue
		}

		files = append(files, File{
			Name:      entry.Name(),
			Path:      filepath.Join(l.dir, entry.Name()),
			Size:      entry.Size(),
			Extension: ext,
			Modified:  entry.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// audioExtension returns the lower-case extension when it is whitelisted.
func audioExtension(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, allowed := range Extensions() {
		if ext == allowed {
			return ext, true
		}
	}

	return ext, false
}
