package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"workorder-engine/internal/config"
)

func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration document",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration document, creating the default if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewStore(rootOpts.configPath()).Load()
			if err != nil {
				return err
			}
			b, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.NewStore(rootOpts.configPath())
			cfg, err := s.Load()
			if err != nil {
				return err
			}
			vr := config.Validate(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config: %s\n", s.AbsPath())
			for _, e := range vr.Errors {
				fmt.Fprintf(out, "error:   %s\n", e)
			}
			for _, w := range vr.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if !vr.OK() {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	})

	return cmd
}
