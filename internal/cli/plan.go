package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"tripsynth/internal/api/dto"
	"tripsynth/internal/app"
	"tripsynth/internal/domain"
	"tripsynth/internal/report"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type planFlags struct {
	destination   string
	start, end    string
	budget        string
	currency      string
	preferences   []string
	timeZone      string
	allowRevisits bool
	format        string
	out           string
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	f := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip from the local catalog",
		Long: `Plan a trip and print the itinerary as a text document, JSON or iCalendar.

When no fully feasible plan exists the command fails, printing the constraint
that could not be met and the partial itinerary in the requested format.`,
		Example: `  tripctl plan --destination Lisbon --start 2026-05-04 --end 2026-05-06 --budget 900 \
    --pref "Cultural Experiences" --pref "Food & Dining"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			budget, err := decimal.NewFromString(f.budget)
			if err != nil {
				return fmt.Errorf("--budget %q is not a number", f.budget)
			}
			req := dto.CreateItineraryRequest{
				Destination:   f.destination,
				StartDate:     f.start,
				EndDate:       f.end,
				Budget:        budget,
				Currency:      f.currency,
				Preferences:   f.preferences,
				AllowRevisits: f.allowRevisits,
				TimeZone:      f.timeZone,
			}
			trip, err := req.Trip()
			if err != nil {
				return err
			}

			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if f.out != "" {
				file, err := os.Create(f.out)
				if err != nil {
					return fmt.Errorf("create %s: %w", f.out, err)
				}
				defer file.Close()
				w = file
			}

			it, planErr := a.Planner.Plan(cmd.Context(), trip)
			var infeasible *domain.InfeasibleTripError
			if errors.As(planErr, &infeasible) && infeasible.Partial != nil {
				it = infeasible.Partial
			} else if planErr != nil {
				return planErr
			}

			if err := render(w, f.format, it); err != nil {
				return err
			}
			return planErr
		},
	}

	cmd.Flags().StringVarP(&f.destination, "destination", "d", "", "destination name")
	cmd.Flags().StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.budget, "budget", "", "total budget")
	cmd.Flags().StringVar(&f.currency, "currency", domain.DefaultCurrency, "ISO 4217 currency code")
	cmd.Flags().StringArrayVarP(&f.preferences, "pref", "p", nil, "preference tag (repeatable)")
	cmd.Flags().StringVar(&f.timeZone, "tz", "", "IANA time zone (default: resolved from the lodging)")
	cmd.Flags().BoolVar(&f.allowRevisits, "allow-revisits", false, "allow an activity on more than one day")
	cmd.Flags().StringVarP(&f.format, "format", "o", "text", "output format: text, json or ics")
	cmd.Flags().StringVar(&f.out, "out", "", "write output to a file instead of stdout")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func render(w io.Writer, format string, it *domain.Itinerary) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, report.Document(it))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.NewItineraryResponse(it))
	case "ics":
		if it.ID == "" {
			return errors.New("partial itineraries cannot be exported as a calendar")
		}
		b, err := report.Calendar(it)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unknown format %q (want text, json or ics)", format)
}
