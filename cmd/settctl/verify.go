package main

import (
	"encoding/json"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	var controller string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check controller wiring and strategy fees for the configured want",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr := a.target.Controller
			if controller != "" {
				parsed, err := helpers.ParseAddress(controller)
				if err != nil {
					return err
				}
				addr = parsed
			}
			backend, err := a.connect(ctx)
			if err != nil {
				return err
			}
			v, verr := deploy.Verify(ctx, chain.NewReader(backend), a.target, addr)
			if v != nil {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(v); err != nil {
					return err
				}
			}
			return verr
		},
	}
	cmd.Flags().StringVar(&controller, "controller", "", "controller address (default from settings)")
	return cmd
}
