package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/colorio"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load a config and build a processor for every color space and view",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.check(cfg)
		},
	}
}

// check prints a summary of cfg and reports the first failing conversion
// after listing all of them.
func (a *app) check(cfg *colorio.Config) error {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	major, minor := cfg.Version()
	fmt.Fprintf(w, "version\t%d.%d\n", major, minor)
	if d := cfg.Description(); d != "" {
		fmt.Fprintf(w, "description\t%s\n", d)
	}
	fmt.Fprintf(w, "reference\t%s\n", cfg.ReferenceSpace())

	fmt.Fprintln(w, "\nroles:")
	for _, r := range cfg.RoleNames() {
		cs, _ := cfg.Role(r)
		fmt.Fprintf(w, "  %s\t%s\n", r, cs)
	}

	var first error
	report := func(what string, err error) {
		if err != nil {
			fmt.Fprintf(w, "  %s\tERROR: %v\n", what, err)
			if first == nil {
				first = err
			}
			return
		}
		fmt.Fprintf(w, "  %s\tok\n", what)
	}

	ref := cfg.ReferenceSpace()
	fmt.Fprintln(w, "\ncolor spaces:")
	for _, name := range cfg.ColorSpaceNames() {
		_, err := cfg.ProcessorForSpaces(ref, name)
		report(name, err)
	}

	fmt.Fprintln(w, "\ndisplays:")
	for _, d := range cfg.Displays() {
		for _, v := range cfg.Views(d) {
			_, err := cfg.ProcessorForDisplayView(ref, d, v)
			report(d+" / "+v, err)
		}
	}

	if names := cfg.LookNames(); len(names) > 0 {
		fmt.Fprintln(w, "\nlooks:")
		for _, l := range names {
			_, err := cfg.Processor(nil, &colorio.LookTransform{Src: ref, Dst: ref, Looks: l}, colorio.Forward)
			report(l, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return first
}
