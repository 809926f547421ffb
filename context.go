package colorio

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Context carries the variables, search paths and working directory used
// to resolve file names. A Context is not safe for concurrent mutation;
// Config.CurrentContext returns a fresh copy on every call.
type Context struct {
	vars        map[string]string
	searchPaths []string
	workingDir  string
	env         EnvProvider
}

// NewContext returns an empty context reading unset variables from env.
// A nil env disables environment lookups.
func NewContext(env EnvProvider) *Context {
	return &Context{vars: map[string]string{}, env: env}
}

// Clone returns an independent copy.
func (c *Context) Clone() *Context {
	return &Context{
		vars:        maps.Clone(c.vars),
		searchPaths: slices.Clone(c.searchPaths),
		workingDir:  c.workingDir,
		env:         c.env,
	}
}

// SetStringVar sets a context variable. Context variables take precedence
// over the environment.
func (c *Context) SetStringVar(name, value string) { c.vars[name] = value }

// StringVar returns a context variable, falling back to the environment.
func (c *Context) StringVar(name string) (string, bool) {
	if v, ok := c.vars[name]; ok {
		return v, true
	}
	if c.env != nil {
		return c.env.LookupEnv(name)
	}
	return "", false
}

// SetSearchPath replaces the search paths with the entries of a
// list-separated string (":" on Unix).
func (c *Context) SetSearchPath(path string) {
	c.searchPaths = c.searchPaths[:0]
	for _, p := range filepath.SplitList(path) {
		c.AddSearchPath(p)
	}
}

// AddSearchPath appends one search path.
func (c *Context) AddSearchPath(path string) {
	if path != "" {
		c.searchPaths = append(c.searchPaths, path)
	}
}

// SearchPaths returns the search paths in lookup order.
func (c *Context) SearchPaths() []string { return slices.Clone(c.searchPaths) }

// SetWorkingDir sets the directory relative search paths start from.
func (c *Context) SetWorkingDir(dir string) { c.workingDir = dir }

// WorkingDir returns the working directory.
func (c *Context) WorkingDir() string { return c.workingDir }

// ResolveStringVar expands $NAME and ${NAME} references. Unknown variables
// are left in place.
func (c *Context) ResolveStringVar(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return os.Expand(s, func(name string) string {
		if v, ok := c.StringVar(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

// ResolveFilePath expands variables in name and returns the path of the
// first existing file: name itself when absolute, otherwise name joined to
// each search path in order. Relative search paths start from the working
// directory.
func (c *Context) ResolveFilePath(name string) (string, error) {
	name = c.ResolveStringVar(name)
	if name == "" {
		return "", argErrorf("file", "empty file name")
	}
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		for _, sp := range c.searchPaths {
			sp = c.ResolveStringVar(sp)
			if !filepath.IsAbs(sp) && c.workingDir != "" {
				sp = filepath.Join(c.workingDir, sp)
			}
			candidates = append(candidates, filepath.Join(sp, name))
		}
		if len(candidates) == 0 {
			candidates = []string{filepath.Join(c.workingDir, name)}
		}
	}
	for _, p := range candidates {
		st, err := os.Stat(p)
		switch {
		case err == nil && !st.IsDir():
			return filepath.Clean(p), nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", fileError(name, err)
		}
	}
	return "", &Error{Kind: KindFile, Entity: name, Msg: "not found in search path " + strings.Join(c.searchPaths, string(filepath.ListSeparator))}
}

// CacheID fingerprints the variables, search paths and working directory.
func (c *Context) CacheID() string {
	h, _ := blake2b.New256(nil)
	for _, k := range slices.Sorted(maps.Keys(c.vars)) {
		h.Write([]byte(k + "=" + c.vars[k] + "\x00"))
	}
	for _, p := range c.searchPaths {
		h.Write([]byte("path=" + p + "\x00"))
	}
	h.Write([]byte("wd=" + c.workingDir))
	return hex.EncodeToString(h.Sum(nil))
}
