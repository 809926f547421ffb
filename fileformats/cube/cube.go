// Package cube reads Iridas/Resolve .cube LUT files.
//
// Importing the package registers the "iridas_cube" format for the "cube"
// extension:
//
//	import _ "github.com/gogpu/colorio/fileformats/cube"
//
// A file holds either a 1D or a 3D LUT. 3D entries are stored with red
// varying fastest. DOMAIN_MIN and DOMAIN_MAX rescale the input before the
// lookup.
package cube

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gogpu/colorio"
)

// Name is the registered format name.
const Name = "iridas_cube"

func init() {
	colorio.RegisterFileFormat(colorio.FileFormat{
		Name:       Name,
		Extensions: []string{"cube"},
		Read:       Read,
	})
}

// File is the parsed content of a .cube file.
type File struct {
	Title     string
	Size1D    int
	Size3D    int
	DomainMin [3]float64
	DomainMax [3]float64
	// Values holds RGB triplets in file order.
	Values []float32
}

// Parse reads a .cube file. name is used in error messages.
func Parse(r io.Reader, name string) (*File, error) {
	f := &File{DomainMax: [3]float64{1, 1, 1}}
	sc := bufio.NewScanner(r)
	line := 0
	fail := func(format string, args ...any) error {
		return fmt.Errorf("cube: %s:%d: %s", name, line, fmt.Sprintf(format, args...))
	}
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		key := strings.ToUpper(fields[0])
		switch {
		case key == "TITLE":
			f.Title = strings.Trim(strings.TrimSpace(text[len(fields[0]):]), `"`)
		case key == "LUT_1D_SIZE" || key == "LUT_3D_SIZE":
			if len(fields) != 2 {
				return nil, fail("malformed %s tag", key)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 2 {
				return nil, fail("invalid %s %q", key, fields[1])
			}
			if key == "LUT_1D_SIZE" {
				f.Size1D = n
			} else {
				f.Size3D = n
			}
		case key == "LUT_2D_SIZE":
			return nil, fail("unsupported tag LUT_2D_SIZE")
		case key == "DOMAIN_MIN" || key == "DOMAIN_MAX":
			v, err := triple(fields[1:])
			if err != nil {
				return nil, fail("%s: %v", key, err)
			}
			if key == "DOMAIN_MIN" {
				f.DomainMin = v
			} else {
				f.DomainMax = v
			}
		case key == "LUT_1D_INPUT_RANGE" || key == "LUT_3D_INPUT_RANGE":
			if len(fields) != 3 {
				return nil, fail("malformed %s tag", key)
			}
			lo, err1 := strconv.ParseFloat(fields[1], 64)
			hi, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil {
				return nil, fail("invalid %s", key)
			}
			f.DomainMin = [3]float64{lo, lo, lo}
			f.DomainMax = [3]float64{hi, hi, hi}
		default:
			v, err := triple(fields)
			if err != nil {
				return nil, fail("malformed color triple: %v", err)
			}
			f.Values = append(f.Values, float32(v[0]), float32(v[1]), float32(v[2]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cube: %s: %w", name, err)
	}

	switch {
	case f.Size1D > 0 && f.Size3D > 0:
		return nil, fmt.Errorf("cube: %s: file declares both a 1D and a 3D LUT", name)
	case f.Size1D > 0:
		if got := len(f.Values) / 3; got != f.Size1D {
			return nil, fmt.Errorf("cube: %s: found %d 1D LUT entries, expected %d", name, got, f.Size1D)
		}
	case f.Size3D > 0:
		if got, want := len(f.Values)/3, f.Size3D*f.Size3D*f.Size3D; got != want {
			return nil, fmt.Errorf("cube: %s: found %d 3D LUT entries, expected %d", name, got, want)
		}
	default:
		return nil, fmt.Errorf("cube: %s: LUT type (1D/3D) unspecified", name)
	}
	return f, nil
}

func triple(fields []string) ([3]float64, error) {
	var v [3]float64
	if len(fields) != 3 {
		return v, fmt.Errorf("expected 3 values, found %d", len(fields))
	}
	for i, s := range fields {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v, err
		}
		v[i] = x
	}
	return v, nil
}

// Read parses a .cube file into a transform. A non-unit domain adds a
// matrix fitting the domain onto [0, 1] ahead of the LUT.
func Read(r io.Reader, name string) (colorio.Transform, error) {
	f, err := Parse(r, name)
	if err != nil {
		return nil, err
	}
	return f.Transform()
}

// Transform returns the LUT as a transform.
func (f *File) Transform() (colorio.Transform, error) {
	g := &colorio.GroupTransform{}
	if f.DomainMin != [3]float64{} || f.DomainMax != [3]float64{1, 1, 1} {
		m, err := colorio.MatrixFit(
			[4]float64{f.DomainMin[0], f.DomainMin[1], f.DomainMin[2], 0},
			[4]float64{f.DomainMax[0], f.DomainMax[1], f.DomainMax[2], 1},
			[4]float64{0, 0, 0, 0},
			[4]float64{1, 1, 1, 1},
		)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, m)
	}
	if f.Size1D > 0 {
		g.Children = append(g.Children, &colorio.Lut1DTransform{Values: f.Values})
	} else {
		g.Children = append(g.Children, &colorio.Lut3DTransform{GridSize: f.Size3D, Values: blueFastest(f.Values, f.Size3D)})
	}
	return g, nil
}

// blueFastest reorders a red-fastest lattice of n³ RGB entries.
func blueFastest(src []float32, n int) []float32 {
	dst := make([]float32, len(src))
	for b := 0; b < n; b++ {
		for g := 0; g < n; g++ {
			for r := 0; r < n; r++ {
				i := 3 * (r + n*g + n*n*b)
				j := 3 * (b + n*g + n*n*r)
				copy(dst[j:j+3], src[i:i+3])
			}
		}
	}
	return dst
}
