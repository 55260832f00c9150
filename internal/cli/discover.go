package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/location"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
)

var (
	discoverPlace        string
	discoverLat          float64
	discoverLng          float64
	discoverRadius       int
	discoverFormat       string
	discoverGuide        bool
	discoverGuideTimeout time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find museums around a position or in a place",
	Long: `Run one museum search and print the results.

Examples:
  # Museums in a city
  museumradar discover --place Amsterdam

  # Museums around a position, with the live guide for a 20 km radius
  museumradar discover --lat 52.37 --lng 4.89 --guide --radius 20

  # JSON output for scripting
  museumradar discover --place "Porto" --format json`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverPlace, "place", "", "City or region to search")
	discoverCmd.Flags().Float64Var(&discoverLat, "lat", 0, "Latitude of the search origin")
	discoverCmd.Flags().Float64Var(&discoverLng, "lng", 0, "Longitude of the search origin")
	discoverCmd.Flags().IntVar(&discoverRadius, "radius", 0, "Guide radius in km (1-50, default from config)")
	discoverCmd.Flags().StringVar(&discoverFormat, "format", "text", "Output format: text or json")
	discoverCmd.Flags().BoolVar(&discoverGuide, "guide", false, "Wait for the activities guide of the area")
	discoverCmd.Flags().DurationVar(&discoverGuideTimeout, "guide-timeout", time.Minute, "Maximum wait for the guide")
	discoverCmd.Flags().StringVar(&apiKey, "key", "", "AI key to use instead of the configured one")
	discoverCmd.MarkFlagsRequiredTogether("lat", "lng")
	discoverCmd.MarkFlagsMutuallyExclusive("place", "lat")
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var intent search.Intent
	switch {
	case strings.TrimSpace(discoverPlace) != "":
		intent = search.ByPlace(discoverPlace)
	case cmd.Flags().Changed("lat"):
		intent = search.ByLocation(location.Static(discoverLat, discoverLng))
	default:
		return errors.New("either --place or --lat and --lng are required")
	}

	m, s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer m.Close(s.ID)

	if discoverRadius != 0 {
		s.Orchestrator.SetRadius(discoverRadius)
	}

	view, err := s.Orchestrator.BeginSearch(ctx, intent)
	if err != nil && !errors.Is(err, models.ErrNoResultsInArea) && !errors.Is(err, models.ErrNoResultsAfterDistanceFilter) {
		return fmt.Errorf("%s: %w", models.UserMessage(err), err)
	}

	var update *search.GuideUpdate
	if discoverGuide && view.State == search.StateReady && view.Context.ActiveArea != "" {
		u, err := waitForGuide(ctx, s, discoverGuideTimeout)
		if err != nil {
			log.Warn(err.Error())
		}
		update = &u
	}

	if discoverFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), discoverOutput{View: view, Guide: update})
	}
	printView(cmd.OutOrStdout(), view)
	if update != nil {
		printGuide(cmd.OutOrStdout(), *update)
	}
	return nil
}

// waitForGuide follows the session's guide updates until a stream finished
// or a notice replaced it.
func waitForGuide(ctx context.Context, s *session.Session, timeout time.Duration) (search.GuideUpdate, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := false
	for {
		select {
		case u := <-s.Updates():
			switch {
			case u.Loading:
				started = true
			case u.Notice != "", started && u.Key != "":
				return u, nil
			}
		case <-ctx.Done():
			return s.Orchestrator.Guide(), fmt.Errorf("guide did not finish: %w", ctx.Err())
		}
	}
}

type discoverOutput struct {
	View  search.View         `json:"view"`
	Guide *search.GuideUpdate `json:"guide,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printView(w io.Writer, view search.View) {
	fmt.Fprintf(w, "%s (%d museums)\n", view.Context.Label, len(view.Museums))
	if view.Message != "" {
		fmt.Fprintln(w, view.Message)
	}
	for i, m := range view.Museums {
		fmt.Fprintf(w, "%2d. %s", i+1, m.Name)
		if place := strings.Trim(m.City+", "+m.Country, ", "); place != "" {
			fmt.Fprintf(w, " (%s)", place)
		}
		if m.Distance != nil {
			fmt.Fprintf(w, "  %.1f km", *m.Distance)
		}
		fmt.Fprintln(w)
		if m.Description != "" {
			fmt.Fprintf(w, "    %s\n", m.Description)
		}
		if len(m.HighlightArtworks) > 0 {
			fmt.Fprintf(w, "    Highlights: %s\n", strings.Join(m.HighlightArtworks, "; "))
		}
		if m.Website != models.WebsiteUnknown {
			fmt.Fprintf(w, "    %s\n", m.Website)
		}
	}
}

func printGuide(w io.Writer, u search.GuideUpdate) {
	fmt.Fprintf(w, "\nGuide for %s (%d km)\n", u.Area, u.RadiusKm)
	if u.Notice != "" {
		fmt.Fprintln(w, u.Notice)
	}
	if u.Snapshot.FullText != "" {
		fmt.Fprintln(w, u.Snapshot.FullText)
	}
	printSources(w, u.Snapshot.Sources)
}

func printSources(w io.Writer, sources []models.GroundingSource) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, src := range sources {
		fmt.Fprintf(w, "  - %s %s\n", src.Title(), src.Key())
	}
}
