package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/persistence"
)

// ErrNoVillage is returned by report when the database holds no saved village.
var ErrNoVillage = errors.New("no saved village")

var reportEvents int

// reportCmd prints the saved village
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a report of the saved village",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportEvents, "events", 10, "recent events to list")
}

func runReport(cmd *cobra.Command, args []string) error {
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ok, err := db.HasState()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", dbPath, ErrNoVillage)
	}

	st, err := db.LoadState()
	if err != nil {
		return err
	}
	sim := engine.NewSimulation(engine.Options{})
	if err := sim.Restore(st); err != nil {
		return fmt.Errorf("restore village: %w", err)
	}

	events, err := db.RecentEvents(reportEvents)
	if err != nil {
		return err
	}
	writeReport(cmd.OutOrStdout(), sim, events)
	return nil
}

func writeReport(w io.Writer, sim *engine.Simulation, events []engine.Event) {
	st := sim.Status()
	fmt.Fprintf(w, "%s (the %s day)\n", st.Date, humanize.Ordinal(st.Day))
	fmt.Fprintf(w, "  villagers  %d (%d injured)\n", st.Population, st.Injured)
	fmt.Fprintf(w, "  food       %s\n", humanize.FtoaWithDigits(st.Food, 2))
	fmt.Fprintf(w, "  materials  %s\n", humanize.FtoaWithDigits(st.Materials, 2))
	fmt.Fprintf(w, "  happiness  %.0f%%\n", st.Happiness*100)
	fmt.Fprintf(w, "  projects   %d under way, %d buildings\n", st.Projects, len(st.Buildings))
	fmt.Fprintf(w, "  rumors     %d circulating\n", st.Gossip.Active)

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPERSONALITY\tHEALTH\tHUNGER\tINJURY\tMOST MEANINGFUL")
	for _, v := range sim.Roster() {
		p, _ := sim.Profile(v.Name)
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			v.Name, v.Personality, v.Health, v.Hunger, v.Injury, mostMeaningful(p.Inertia))
	}
	tw.Flush()

	if len(events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recent events:")
		for _, e := range events {
			fmt.Fprintf(w, "  day %-4d %-10s %s\n", e.Day, e.Category, e.Description)
		}
	}
}

// mostMeaningful names the activity with the highest inertia, or "-" when
// nothing has taken hold yet.
func mostMeaningful(inertia map[agents.Activity]float64) string {
	acts := make([]agents.Activity, 0, len(inertia))
	for a := range inertia {
		acts = append(acts, a)
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i] < acts[j] })

	best, top := "-", 0.0
	for _, a := range acts {
		if inertia[a] > top {
			best, top = string(a), inertia[a]
		}
	}
	if best == "-" {
		return best
	}
	return fmt.Sprintf("%s (%.2f)", best, top)
}
