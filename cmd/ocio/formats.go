package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/colorio"
)

func (a *app) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the registered LUT file formats",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, f := range colorio.FileFormats() {
				if _, err := fmt.Fprintf(a.stdout, "%s\t%s\n", f.Name, strings.Join(f.Extensions, ", ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
