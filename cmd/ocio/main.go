// Command ocio inspects colorio configs, converts pixel values and emits
// GPU shaders.
//
// Usage:
//
//	ocio check [--config config.ocio]
//	ocio convert --src lin --dst log 0.18 0.18 0.18
//	ocio convert --src lin --display sRGB --view Film < pixels.txt
//	ocio shader --src lin --dst srgb --language glsl_4.0
//	ocio formats
//
// The config defaults to $OCIO. Exit status is 0 on success, 1 for
// configuration errors and 2 for any other failure.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/colorio"
	"github.com/gogpu/colorio/configyaml"
	_ "github.com/gogpu/colorio/fileformats/cube"
)

// Exit codes.
const (
	exitOK          = 0
	exitConfigError = 1
	exitFailure     = 2
)

func main() {
	os.Exit(run(os.Args[1:], colorio.OSEnv{}, os.Stdin, os.Stdout, os.Stderr))
}

// app holds the state shared by the subcommands.
type app struct {
	env        colorio.EnvProvider
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	verbose    bool
}

func run(args []string, env colorio.EnvProvider, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{env: env, stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	colorio.SetLogger(nil)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "ocio:", err)
	if errors.Is(err, colorio.ErrConfiguration) {
		return exitConfigError
	}
	return exitFailure
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ocio",
		Short:         "Inspect color configs and convert colors",
		Version:       colorio.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if a.verbose {
				colorio.SetLogger(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default $OCIO)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(a.checkCmd(), a.convertCmd(), a.shaderCmd(), a.formatsCmd())
	return root
}

func (a *app) loadConfig() (*colorio.Config, error) {
	if a.configPath == "" {
		return configyaml.LoadFromEnv(a.env)
	}
	return configyaml.LoadFile(a.configPath, colorio.WithEnvProvider(a.env))
}
