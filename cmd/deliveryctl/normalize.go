package main

import (
	"delivery-fee-service/internal/domain"
	"fmt"

	"github.com/spf13/cobra"
)

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [cep...]",
		Short: "Normalize postal codes to 8 digits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, raw := range args {
				pc, err := domain.NormalizePostalCode(raw)
				if err != nil {
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "%q\tinvalid\n", raw)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%q\t%s\t%s\n", raw, pc, pc.Formatted())
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid postal code(s)", invalid)
			}
			return nil
		},
	}
}
