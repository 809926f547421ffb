package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/colorio"
)

const testProfile = `ocio_profile_version: 2
roles:
  scene_linear: lin
  compositing_log: log
displays:
  sRGB:
    - !<View> {name: Raw, colorspace: lin}
    - !<View> {name: Log, colorspace: log}
colorspaces:
  - !<ColorSpace>
    name: lin
  - !<ColorSpace>
    name: log
    from_scene_reference: !<LogTransform> {base: 10}
  - !<ColorSpace>
    name: graded
    from_scene_reference: !<CDLTransform> {slope: [2, 2, 2], style: noclamp}
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ocio")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, colorio.MapEnv{}, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCheck(t *testing.T) {
	path := writeProfile(t, testProfile)
	code, out, errOut := runCLI(t, "", "--config", path, "check")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{"version", "2.0", "compositing_log", "graded", "sRGB / Log"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ERROR") {
		t.Errorf("unexpected failure:\n%s", out)
	}
}

func TestExitCodes(t *testing.T) {
	good := writeProfile(t, testProfile)
	bad := writeProfile(t, "ocio_profile_version: 9\n")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"invalid config", []string{"--config", bad, "check"}, exitConfigError},
		{"missing $OCIO", []string{"check"}, exitConfigError},
		{"unknown color space", []string{"--config", good, "convert", "--src", "lin", "--dst", "nope", "1", "1", "1"}, exitConfigError},
		{"missing file", []string{"--config", filepath.Join(t.TempDir(), "none.ocio"), "check"}, exitFailure},
		{"bad channel", []string{"--config", good, "convert", "--src", "lin", "--dst", "log", "1", "x", "1"}, exitFailure},
		{"channel count", []string{"--config", good, "convert", "--src", "lin", "--dst", "log", "1", "1"}, exitFailure},
		{"no destination", []string{"--config", good, "convert", "--src", "lin", "1", "1", "1"}, exitFailure},
		{"unknown language", []string{"--config", good, "shader", "--src", "lin", "--dst", "log", "--language", "glsl_9"}, exitFailure},
		{"unknown command", []string{"frobnicate"}, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tt.args...)
			if code != tt.want {
				t.Errorf("exit %d, want %d; stderr:\n%s", code, tt.want, errOut)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	path := writeProfile(t, testProfile)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"spaces", []string{"--src", "lin", "--dst", "log", "100", "10", "1"}, "2 1 0\n"},
		{"alpha kept", []string{"--src", "lin", "--dst", "graded", "0.25", "0.5", "1", "0.5"}, "0.5 1 2 0.5\n"},
		{"inverse", []string{"--src", "lin", "--dst", "log", "--inverse", "2", "1", "0"}, "100 10 1\n"},
		{"display view", []string{"--src", "lin", "--display", "sRGB", "--view", "Log", "1000", "1000", "1000"}, "3 3 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", path, "convert"}, tt.args...)
			code, out, errOut := runCLI(t, "", args...)
			if code != exitOK {
				t.Fatalf("exit %d, stderr:\n%s", code, errOut)
			}
			if out != tt.want {
				t.Errorf("output %q, want %q", out, tt.want)
			}
		})
	}
}

func TestConvertStream(t *testing.T) {
	path := writeProfile(t, testProfile)
	var in, want strings.Builder
	for i := 0; i < 3000; i++ {
		if i%2 == 0 {
			in.WriteString("0.5 1 2\n")
			want.WriteString("1 2 4\n")
		} else {
			in.WriteString("\n1 1 1 0.25\n")
			want.WriteString("2 2 2 0.25\n")
		}
	}
	code, out, errOut := runCLI(t, in.String(), "--config", path, "convert", "--src", "lin", "--dst", "graded")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, errOut)
	}
	if out != want.String() {
		t.Errorf("stream output differs; first line %q", strings.SplitN(out, "\n", 2)[0])
	}

	code, _, _ = runCLI(t, "1 1\n", "--config", path, "convert", "--src", "lin", "--dst", "graded")
	if code != exitFailure {
		t.Errorf("malformed line exit %d, want %d", code, exitFailure)
	}
}

func TestShader(t *testing.T) {
	path := writeProfile(t, testProfile)
	code, out, errOut := runCLI(t, "", "--config", path, "shader", "--src", "lin", "--dst", "log",
		"--language", "glsl_4.0", "--function", "toLog")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "vec4 toLog(vec4 inPixel)") {
		t.Errorf("shader output:\n%s", out)
	}
}

func TestFormats(t *testing.T) {
	code, out, _ := runCLI(t, "", "formats")
	if code != exitOK || !strings.Contains(out, "iridas_cube\tcube") {
		t.Errorf("exit %d, output:\n%s", code, out)
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	path := writeProfile(t, testProfile)
	code, _, errOut := runCLI(t, "", "--config", path, "-v", "convert", "--src", "lin", "--dst", "log", "1", "1", "1")
	if code != exitOK {
		t.Fatalf("exit %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(errOut, "level=DEBUG") {
		t.Errorf("no debug output:\n%s", errOut)
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "--version")
	if code != exitOK || !strings.Contains(out, colorio.Version) {
		t.Errorf("exit %d, output %q", code, out)
	}
}
