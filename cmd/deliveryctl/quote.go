package main

import (
	"bufio"
	"delivery-fee-service/internal/client"
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/domain"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func quoteCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "quote [slug]",
		Short: "Read postal codes from stdin and print the quote for the latest one",
		Long: `Reads postal codes line by line, as a user typing into a checkout form
would produce them, and requests a quote for every complete code. Responses
to superseded codes are discarded; only the newest answer is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			slug := args[0]
			calc := client.NewCalculator(baseURL, &http.Client{Timeout: timeout})

			deliver := func(res client.Result) {
				out := cmd.OutOrStdout()
				var apiErr *client.APIError
				switch {
				case errors.As(res.Err, &apiErr):
					fmt.Fprintf(out, "%s\t%d\t%s\n", res.CEP, apiErr.Status, apiErr.Message)
					return
				case res.Err != nil:
					fmt.Fprintf(out, "%s\terror\t%v\n", res.CEP, res.Err)
					return
				}
				line := fmt.Sprintf("%s\tfee=%s\tminutes=%d", res.Quote.CEP, res.Quote.Fee.Decimal().StringFixed(2), res.Quote.EstimatedMinutes)
				if res.Quote.DistanceKm != nil {
					line += fmt.Sprintf("\tdistance=%.2fkm", *res.Quote.DistanceKm)
				}
				fmt.Fprintln(out, line)
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				raw := strings.TrimSpace(sc.Text())
				if raw == "" {
					continue
				}

				pc, err := domain.NormalizePostalCode(raw)
				if err != nil {
					logger.Debug("skipping incomplete postal code", slog.String("input", raw))
					continue
				}
				calc.CalculateLatest(cmd.Context(), "quote", slug, pc.String(), deliver)
			}

			calc.Wait()
			return sc.Err()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	cmd.Flags().StringVar(&baseURL, "url", config.Get("DELIVERY_API_URL", "http://localhost:8080"), "base URL of the delivery fee service")
	return cmd
}
