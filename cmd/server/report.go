package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rongwang/rentledger/internal/config"
	"github.com/rongwang/rentledger/internal/export"
	"github.com/rongwang/rentledger/internal/models"
	"github.com/spf13/cobra"
)

type periodFlags struct {
	month int
	year  int
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.month, "month", 0, "month (1-12)")
	cmd.Flags().IntVar(&p.year, "year", 0, "year")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
}

func newSummaryCmd(cfg *config.Config) *cobra.Command {
	var (
		period   periodFlags
		building int64
		format   string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a building or portfolio summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var out interface{}
			var rows []models.Summary
			if building > 0 {
				s, err := a.svc.BuildingSummary(cmd.Context(), building, period.month, period.year)
				if err != nil {
					return err
				}
				out = models.SummaryResponse{Status: "success", Summary: *s}
				rows = []models.Summary{*s}
			} else {
				resp, err := a.svc.PortfolioSummary(cmd.Context(), period.month, period.year)
				if err != nil {
					return err
				}
				out = resp
				rows = append(resp.Buildings, resp.Total)
			}

			if format == "text" {
				return printSummaries(cmd.OutOrStdout(), rows)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	period.register(cmd)
	cmd.Flags().Int64Var(&building, "building", 0, "building id; omit for the whole portfolio")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or text")
	return cmd
}

// printSummaries writes one aligned line per summary with formatted amounts
func printSummaries(w io.Writer, rows []models.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Building\tIncome\tExpense\tGross\tNet\t")
	for _, s := range rows {
		name := s.BuildingCode
		if name == "" {
			name = "Total"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			name,
			export.FormatMoney(s.TotalIncome),
			export.FormatMoney(s.TotalExpense),
			export.FormatMoney(s.GrossProfit),
			export.FormatMoney(s.NetProfit),
		)
	}
	return tw.Flush()
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		period periodFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the portfolio summary workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.svc.PortfolioSummary(cmd.Context(), period.month, period.year)
			if err != nil {
				return err
			}

			if output == "" {
				output = export.Filename(period.month, period.year)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.WritePortfolio(f, resp); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	period.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default portfolio_YYYY_MM.xlsx)")
	return cmd
}
