package main

import (
	"context"
	"delivery-fee-service/internal/app"
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/services"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// staticTenant serves one delivery config built from flags.
type staticTenant struct{ cfg domain.DeliveryConfig }

func (s staticTenant) GetDeliveryConfig(ctx context.Context, slug string) (domain.DeliveryConfig, error) {
	if slug != s.cfg.Slug {
		return domain.DeliveryConfig{}, fmt.Errorf("tenant %q: %w", slug, domain.ErrTenantNotFound)
	}
	return s.cfg, nil
}

func estimateCmd() *cobra.Command {
	var (
		origin   string
		perKm    string
		flatFee  string
		prepTime int
		policy   string
		fromDB   string
	)

	cmd := &cobra.Command{
		Use:   "estimate [cep]",
		Short: "Run the estimation pipeline locally against the live geocoding providers",
		Long: `Estimate the delivery fee for a destination postal code.

With --tenant the settings are read from the database (DATABASE_URL);
otherwise they come from the flags and no database is needed.

Examples:
  deliveryctl estimate 20040-002 --origin 01310-100 --per-km 2.50
  deliveryctl estimate 20040002 --tenant pizzaria-centro`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			if fromDB != "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				a, err := app.Build(cmd.Context(), cfg, logger, nil, false)
				if err != nil {
					return err
				}
				defer a.Close()

				est, err := a.Estimator.Estimate(cmd.Context(), fromDB, args[0])
				if err != nil {
					return err
				}
				printEstimate(cmd, est)
				return nil
			}

			cfg, err := config.LoadOffline()
			if err != nil {
				return err
			}

			tenant := domain.DeliveryConfig{
				Slug:                   "cli",
				OriginPostalCode:       origin,
				AveragePrepTimeMinutes: prepTime,
				DeliveryEnabled:        true,
				FallbackPolicy:         domain.ParseFallbackPolicy(policy),
			}
			if tenant.PerKilometerRate, err = parseDecimalFlag("per-km", perKm); err != nil {
				return err
			}
			if tenant.FlatFee, err = parseDecimalFlag("flat-fee", flatFee); err != nil {
				return err
			}

			resolver := services.NewConfigurationResolver(staticTenant{cfg: tenant}, 0)
			estimator := services.NewDeliveryEstimator(resolver, app.NewChain(cfg, logger, nil), logger, nil)

			est, err := estimator.Estimate(cmd.Context(), tenant.Slug, args[0])
			if err != nil {
				return err
			}
			printEstimate(cmd, est)
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "origin (business) postal code")
	cmd.Flags().StringVar(&perKm, "per-km", "", "fee per kilometer")
	cmd.Flags().StringVar(&flatFee, "flat-fee", "", "flat fee for the lenient fallback")
	cmd.Flags().IntVar(&prepTime, "prep-time", 0, "average prep time in minutes (default 30)")
	cmd.Flags().StringVar(&policy, "policy", string(domain.PolicyStrict), "fallback policy (strict, lenient)")
	cmd.Flags().StringVar(&fromDB, "tenant", "", "read settings of this tenant slug from the database")

	return cmd
}

func parseDecimalFlag(name, v string) (*decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

func printEstimate(cmd *cobra.Command, est domain.DeliveryEstimate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cep:        %s\n", est.PostalCode.Formatted())
	fmt.Fprintf(out, "fee:        %s\n", est.Fee.StringFixed(2))
	fmt.Fprintf(out, "minutes:    %d\n", est.EstimatedMinutes)
	if est.DistanceKilometers != nil {
		fmt.Fprintf(out, "distance:   %.2f km\n", *est.DistanceKilometers)
	}
	if est.PerKilometerRate != nil {
		fmt.Fprintf(out, "per km:     %s\n", est.PerKilometerRate.String())
	}
	if est.UsedFlatFee {
		fmt.Fprintln(out, "pricing:    flat fee")
	}
}
