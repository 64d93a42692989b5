package main

import (
	"fmt"

	"github.com/chazu/stemmount/pkg/assembly"
	"github.com/chazu/stemmount/pkg/kernel/sdfx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBuildCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the assembly and write it as binary STL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadParams()
			if err != nil {
				return err
			}
			if out == "" {
				out = p.Export.Path
			}
			pl := assembly.NewPipeline(sdfx.New(), p, assembly.WithLogger(opts.log))
			res, err := pl.Run(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := pl.Present(cmd.Context(), res, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "STL file to write (default from parameters)")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Build the assembly and print the validation report without exporting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadParams()
			if err != nil {
				return err
			}
			res, err := assembly.NewPipeline(sdfx.New(), p, assembly.WithLogger(opts.log)).Run(cmd.Context())
			if res != nil && res.Report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.Report.String())
			}
			if err != nil {
				opts.log.Error("check failed", zap.Error(err))
			}
			return err
		},
	}
}

func newParamsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the resolved parameters as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadParams()
			if err != nil {
				return err
			}
			out, err := p.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
