package cube

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/colorio"
)

// swapRB is a 2³ lattice exchanging red and blue, in red-fastest order.
const swapRB = `TITLE "swap red and blue"
# comment
LUT_3D_SIZE 2

0 0 0
0 0 1
0 1 0
0 1 1
1 0 0
1 0 1
1 1 0
1 1 1
`

func apply(t *testing.T, src string, dir colorio.Direction, px [3]float32) [3]float32 {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lut.cube")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := colorio.RawConfig(colorio.WithEnvProvider(colorio.MapEnv{}))
	p, err := cfg.Processor(nil, &colorio.FileTransform{Src: path}, dir)
	if err != nil {
		t.Fatal(err)
	}
	c, err := p.DefaultCPUProcessor()
	if err != nil {
		t.Fatal(err)
	}
	buf := px[:]
	if err := c.ApplyRGB(buf); err != nil {
		t.Fatal(err)
	}
	return px
}

func near(a, b [3]float32) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestRegistered(t *testing.T) {
	for _, f := range colorio.FileFormats() {
		if f.Name == Name {
			if diff := cmp.Diff([]string{"cube"}, f.Extensions); diff != "" {
				t.Errorf("extensions mismatch (-want +got):\n%s", diff)
			}
			return
		}
	}
	t.Fatalf("%s not registered", Name)
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(swapRB), "swap.cube")
	if err != nil {
		t.Fatal(err)
	}
	if f.Title != "swap red and blue" || f.Size3D != 2 || len(f.Values) != 24 {
		t.Errorf("Parse() = %+v", f)
	}
	if f.DomainMax != [3]float64{1, 1, 1} {
		t.Errorf("default domain max = %v", f.DomainMax)
	}
}

func TestLut3D(t *testing.T) {
	got := apply(t, swapRB, colorio.Forward, [3]float32{1, 0.5, 0})
	if want := [3]float32{0, 0.5, 1}; !near(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLut1DWithDomain(t *testing.T) {
	src := "LUT_1D_SIZE 2\nDOMAIN_MIN 0 0 0\nDOMAIN_MAX 2 2 2\n0 0 0\n1 1 1\n"
	got := apply(t, src, colorio.Forward, [3]float32{1, 0.5, 2})
	if want := [3]float32{0.5, 0.25, 1}; !near(got, want) {
		t.Errorf("forward got %v, want %v", got, want)
	}
	got = apply(t, src, colorio.Inverse, [3]float32{0.5, 0.25, 1})
	if want := [3]float32{1, 0.5, 2}; !near(got, want) {
		t.Errorf("inverse got %v, want %v", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"no size", "0 0 0\n", "unspecified"},
		{"2d", "LUT_2D_SIZE 2\n", "LUT_2D_SIZE"},
		{"bad size", "LUT_3D_SIZE x\n", "invalid LUT_3D_SIZE"},
		{"short 1d", "LUT_1D_SIZE 3\n0 0 0\n1 1 1\n", "found 2 1D LUT entries, expected 3"},
		{"short 3d", "LUT_3D_SIZE 2\n0 0 0\n", "expected 8"},
		{"bad triple", "LUT_1D_SIZE 2\n0 0\n1 1 1\n", "lut.cube:2: malformed color triple"},
		{"bad domain", "DOMAIN_MIN 0 a 0\n", "DOMAIN_MIN"},
		{"both", "LUT_1D_SIZE 2\nLUT_3D_SIZE 2\n", "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src), "lut.cube")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBlueFastest(t *testing.T) {
	n := 2
	src := make([]float32, 3*n*n*n)
	for i := range src {
		src[i] = float32(i / 3)
	}
	got := blueFastest(src, n)
	// Entry (r=1, g=0, b=0) is index 1 in file order and 4 in lattice order.
	if got[3*4] != 1 {
		t.Errorf("lattice[4] = %v, want file entry 1", got[3*4])
	}
	if got[3*1] != 4 {
		t.Errorf("lattice[1] = %v, want file entry 4", got[3*1])
	}
}
