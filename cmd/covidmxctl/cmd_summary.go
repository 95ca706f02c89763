package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"covidmx/internal/cli"
	"covidmx/internal/dashboard"
	"covidmx/internal/dataset"
	"covidmx/internal/render"
)

var printer = message.NewPrinter(language.MustParse("es-MX"))

var (
	summaryYear   int
	summaryRegion string
	summaryEntity string
	summaryPanels bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the headline figures of a year",
	Long: `Load a year through the configured backend and print the dashboard KPI
cards, optionally narrowed to a region and entity. --panels adds the detail
lines of every chart panel.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryYear, "year", 0, "year to summarise (default: first of COVID_YEARS)")
	summaryCmd.Flags().StringVar(&summaryRegion, "region", "", "restrict to a region")
	summaryCmd.Flags().StringVar(&summaryEntity, "entity", "", "restrict to an entity")
	summaryCmd.Flags().BoolVar(&summaryPanels, "panels", false, "also print panel details")
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	datasets, err := cli.NewDatasets(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer datasets.Close()

	year := summaryYear
	if year == 0 {
		year = datasets.Service.Catalog().Default()
	}
	snap, err := datasets.Service.Snapshot(ctx, year)
	if err != nil {
		return err
	}
	if snap.Failed() {
		return fmt.Errorf("%s: %w", snap.Warning, snap.Err)
	}

	requested := dataset.Filter{Region: summaryRegion, Entity: summaryEntity}
	f := requested.Normalize(snap.Table)
	if f != requested {
		logger.Warn("Selection not present in year, ignoring it", "requested", requested, "used", f)
	}

	catalog, err := render.LoadCatalog()
	if err != nil {
		return err
	}
	renderer, err := render.NewRenderer(catalog, language.MustParse("es-MX"))
	if err != nil {
		return err
	}

	board := dashboard.Build(f.Apply(snap.Table), dashboard.Options{})
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, kpiTable(summaryTitle(year, f, board.Rows), board.KPIs, renderer).View())
	if summaryPanels {
		fmt.Fprintln(out, panelTable(board.Panels, renderer).View())
	}
	return nil
}

func summaryTitle(year int, f dataset.Filter, rows int) string {
	scope := "Nacional"
	switch {
	case f.Entity != "":
		scope = f.Entity
	case f.Region != "":
		scope = "Región " + f.Region
	}
	return fmt.Sprintf("COVID-19 %d · %s · %s registros", year, scope, printer.Sprint(rows))
}

func kpiTable(title string, kpis []dashboard.Scalar, r *render.Renderer) *Table {
	t := NewTable(title, "Indicador", "Valor")
	for _, k := range kpis {
		t.AddRow(k.Label, r.Format(k))
	}
	return t
}

func panelTable(panels []dashboard.Panel, r *render.Renderer) *Table {
	t := NewTable("Paneles", "Panel", "Detalle", "Valor")
	for _, p := range panels {
		if p.Empty() {
			t.AddRow(p.Title, "", "sin datos")
			continue
		}
		for i, s := range p.Stats {
			title := ""
			if i == 0 {
				title = p.Title
			}
			t.AddRow(title, s.Label, r.Format(s))
		}
	}
	return t
}
