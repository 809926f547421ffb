package main

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gogpu/colorio"
)

// conversion selects a processor by color spaces or by display and view.
type conversion struct {
	src, dst      string
	display, view string
	inverse       bool
}

func (c *conversion) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.src, "src", "", "source color space or role")
	fs.StringVar(&c.dst, "dst", "", "destination color space or role")
	fs.StringVar(&c.display, "display", "", "display, instead of --dst")
	fs.StringVar(&c.view, "view", "", "view of --display")
	fs.BoolVar(&c.inverse, "inverse", false, "apply the inverse conversion")
}

func (c *conversion) processor(cfg *colorio.Config) (*colorio.Processor, error) {
	if c.src == "" {
		return nil, fmt.Errorf("--src is required")
	}
	dir := colorio.Forward
	if c.inverse {
		dir = colorio.Inverse
	}
	switch {
	case c.display != "" || c.view != "":
		if c.dst != "" {
			return nil, fmt.Errorf("--dst cannot be combined with --display/--view")
		}
		if c.display == "" || c.view == "" {
			return nil, fmt.Errorf("--display and --view must be given together")
		}
		return cfg.ProcessorForDisplayView(c.src, c.display, c.view, colorio.WithDirection(dir))
	case c.dst != "":
		return cfg.ProcessorForSpaces(c.src, c.dst, colorio.WithDirection(dir))
	}
	return nil, fmt.Errorf("either --dst or --display and --view is required")
}

func (a *app) convertCmd() *cobra.Command {
	var conv conversion
	cmd := &cobra.Command{
		Use:   "convert [r g b [a]]",
		Short: "Convert one pixel, or one pixel per line of stdin",
		Args: func(_ *cobra.Command, args []string) error {
			if n := len(args); n != 0 && n != 3 && n != 4 {
				return fmt.Errorf("expected 3 or 4 channel values, got %d", n)
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			p, err := conv.processor(cfg)
			if err != nil {
				return err
			}
			cpu, err := p.DefaultCPUProcessor()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				px, err := parsePixel(args)
				if err != nil {
					return err
				}
				out := cpu.ApplyPixel(px)
				return writePixel(a.stdout, out, len(args))
			}
			return convertStream(cpu, a.stdin, a.stdout)
		},
	}
	conv.addFlags(cmd.Flags())
	return cmd
}

func parsePixel(fields []string) ([4]float32, error) {
	px := [4]float32{0, 0, 0, 1}
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return px, fmt.Errorf("invalid channel value %q", s)
		}
		px[i] = float32(v)
	}
	return px, nil
}

func writePixel(w io.Writer, px [4]float32, channels int) error {
	parts := make([]string, channels)
	for i := range parts {
		parts[i] = strconv.FormatFloat(float64(px[i]), 'g', 6, 32)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}

// streamChunk is the number of pixels handed to a worker at once.
const streamChunk = 1024

// convertStream reads "r g b [a]" lines, converts them in parallel and
// writes them back in input order.
func convertStream(cpu *colorio.CPUProcessor, r io.Reader, w io.Writer) error {
	var (
		buf      []float32
		channels []int
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 && len(fields) != 4 {
			return fmt.Errorf("line %d: expected 3 or 4 channel values", line)
		}
		px, err := parsePixel(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		buf = append(buf, px[:]...)
		channels = append(channels, len(fields))
	}
	if err := sc.Err(); err != nil {
		return err
	}

	pool := workerpool.New(runtime.GOMAXPROCS(0))
	defer pool.Close()
	var (
		mu       sync.Mutex
		applyErr error
	)
	pool.ParallelForAtomicBatched(len(channels), streamChunk, func(start, end int) {
		if err := cpu.ApplyRGBA(buf[4*start : 4*end]); err != nil {
			mu.Lock()
			if applyErr == nil {
				applyErr = err
			}
			mu.Unlock()
		}
	})
	if applyErr != nil {
		return applyErr
	}

	bw := bufio.NewWriter(w)
	for i, c := range channels {
		var px [4]float32
		copy(px[:], buf[4*i:4*i+4])
		if err := writePixel(bw, px, c); err != nil {
			return err
		}
	}
	return bw.Flush()
}
