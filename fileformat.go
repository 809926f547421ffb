package colorio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FileFormat reads one LUT file format into a Transform.
//
// Example registration:
//
//	func init() {
//	    colorio.RegisterFileFormat(colorio.FileFormat{
//	        Name:       "iridas_cube",
//	        Extensions: []string{"cube"},
//	        Read:       read,
//	    })
//	}
type FileFormat struct {
	// Name is the unique identifier of the format.
	Name string

	// Extensions are matched case-insensitively, without the dot.
	Extensions []string

	// Read parses r. name is the resolved path, for error messages.
	Read func(r io.Reader, name string) (Transform, error)
}

// formatRegistry maps extensions to formats.
type formatRegistry struct {
	mu      sync.RWMutex
	formats map[string]FileFormat
}

var globalFormats = &formatRegistry{formats: map[string]FileFormat{}}

// RegisterFileFormat adds a format to the catalog. Registering a name that
// already exists replaces the previous entry.
func RegisterFileFormat(f FileFormat) {
	globalFormats.mu.Lock()
	defer globalFormats.mu.Unlock()
	globalFormats.formats[f.Name] = f
}

// FileFormats lists the registered formats sorted by name.
func FileFormats() []FileFormat {
	globalFormats.mu.RLock()
	defer globalFormats.mu.RUnlock()
	out := make([]FileFormat, 0, len(globalFormats.formats))
	for _, f := range globalFormats.formats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// formatForPath returns the format registered for the extension of path.
func formatForPath(path string) (FileFormat, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range FileFormats() {
		for _, e := range f.Extensions {
			if strings.ToLower(e) == ext {
				return f, true
			}
		}
	}
	return FileFormat{}, false
}

// readFile parses a resolved LUT path, caching the result (errors
// included) for the life of the config.
func (c *Config) readFile(path string) (Transform, error) {
	c.mu.Lock()
	e, ok := c.files[path]
	c.mu.Unlock()
	if ok {
		return e.t, e.err
	}

	t, err := parseFile(path)

	c.mu.Lock()
	c.files[path] = fileEntry{t: t, err: err}
	c.mu.Unlock()
	return t, err
}

func parseFile(path string) (Transform, error) {
	f, ok := formatForPath(path)
	if !ok {
		return nil, configErrorf(path, "no file format registered for extension %q", filepath.Ext(path))
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	defer fh.Close()
	t, err := f.Read(fh, path)
	if err != nil {
		return nil, fileError(path, fmt.Errorf("%s: %w", f.Name, err))
	}
	return t, nil
}

// selectCorrection picks one CDL of a multi-correction file by ID, or by
// index when id is a number.
func selectCorrection(t Transform, id, path string) (Transform, error) {
	g, ok := t.(*GroupTransform)
	if !ok {
		if cdl, ok := t.(*CDLTransform); ok && (cdl.ID == id || id == "0") {
			return cdl, nil
		}
		return nil, fileError(path, fmt.Errorf("no correction with id %q", id))
	}
	for _, c := range g.Children {
		if cdl, ok := c.(*CDLTransform); ok && cdl.ID == id {
			return cdl, nil
		}
	}
	if i, err := strconv.Atoi(id); err == nil && i >= 0 && i < len(g.Children) {
		return g.Children[i], nil
	}
	return nil, fileError(path, fmt.Errorf("no correction with id %q", id))
}
