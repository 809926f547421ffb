package colorio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// readScaleList parses one "id scale" pair per line into CDL corrections.
func readScaleList(r io.Reader, name string) (Transform, error) {
	g := &GroupTransform{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) != 2 {
			return nil, fmt.Errorf("%s: malformed line %q", name, sc.Text())
		}
		s, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, err
		}
		cdl := NewCDLTransform()
		cdl.ID = f[0]
		cdl.Style = CDLNoClamp
		cdl.Slope = [3]float64{s, s, s}
		g.Children = append(g.Children, cdl)
	}
	return g, sc.Err()
}

func init() {
	RegisterFileFormat(FileFormat{Name: "test_scales", Extensions: []string{"scl"}, Read: readScaleList})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func fileConfig(t *testing.T, dir string) *Config {
	t.Helper()
	b := NewConfigBuilder(WithEnvProvider(MapEnv{}))
	b.AddColorSpace(&ColorSpace{Name: "lin"})
	b.SetSearchPath("missing:luts")
	b.SetWorkingDir(dir)
	b.SetEnvironmentVar("GRADE", "a")
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestFileFormatsSorted(t *testing.T) {
	names := make([]string, 0)
	for _, f := range FileFormats() {
		names = append(names, f.Name)
	}
	if !slices.IsSorted(names) {
		t.Errorf("FileFormats() not sorted: %v", names)
	}
	if !slices.Contains(names, "test_scales") {
		t.Errorf("FileFormats() = %v, missing test_scales", names)
	}
}

func TestFileTransform(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "luts"), 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "luts"), "grades.scl", "a 2\nb 0.25\n")
	cfg := fileConfig(t, dir)

	tests := []struct {
		name string
		ft   *FileTransform
		dir  Direction
		want float32
	}{
		{"by id", &FileTransform{Src: "grades.scl", CCCID: "b"}, Forward, 0.25},
		{"by variable", &FileTransform{Src: "grades.scl", CCCID: "$GRADE"}, Forward, 2},
		{"by index", &FileTransform{Src: "grades.scl", CCCID: "1"}, Forward, 0.25},
		{"inverse", &FileTransform{Src: "grades.scl", CCCID: "a"}, Inverse, 0.5},
		{"whole file", &FileTransform{Src: "grades.scl"}, Forward, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := cfg.Processor(nil, tt.ft, tt.dir)
			if err != nil {
				t.Fatal(err)
			}
			got := applyRGB(t, p, [3]float32{1, 1, 1})
			if !nearRel(got[0], tt.want, 1e-6) {
				t.Errorf("got %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestFileTransformErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.scl", "a\n")
	writeFile(t, dir, "grade.unknown", "")
	b := NewConfigBuilder(WithEnvProvider(MapEnv{}))
	b.AddColorSpace(&ColorSpace{Name: "lin"})
	b.SetWorkingDir(dir)
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ft   *FileTransform
		want error
	}{
		{"missing", &FileTransform{Src: "nope.scl"}, ErrFile},
		{"parse failure", &FileTransform{Src: "bad.scl"}, ErrFile},
		{"unknown extension", &FileTransform{Src: "grade.unknown"}, ErrConfiguration},
		{"empty name", &FileTransform{}, ErrArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cfg.Processor(nil, tt.ft, Forward)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFileReadIsCached(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.scl", "a 3\n")
	b := NewConfigBuilder(WithEnvProvider(MapEnv{}), WithProcessorCache(false))
	b.AddColorSpace(&ColorSpace{Name: "lin"})
	cfg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	ft := &FileTransform{Src: path}
	if _, err := cfg.Processor(nil, ft, Forward); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	// The path still resolves only if the file exists, so recreate it
	// with different contents and expect the cached parse.
	writeFile(t, dir, "one.scl", "a 5\n")
	p, err := cfg.Processor(nil, ft, Forward)
	if err != nil {
		t.Fatal(err)
	}
	if got := applyRGB(t, p, [3]float32{1, 1, 1}); got[0] != 3 {
		t.Errorf("got %v, want the cached scale 3", got[0])
	}
}
