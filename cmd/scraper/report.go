package main

import (
	"fmt"
	"io"
	"time"

	"duapune-scraper/internal/app"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderReport(out io.Writer, res *app.Result) {
	summary := table.NewWriter()
	summary.SetOutputMirror(out)
	summary.SetTitle("Crawl run " + res.RunID.String())
	summary.AppendRows([]table.Row{
		{"Discovery cycles", res.Stats.Cycles},
		{"Pages", res.Stats.Pages},
		{"Links", res.Stats.Links},
		{"Skipped", res.Stats.Skipped},
		{"Records", res.Records.Len()},
		{"CSV", res.CSVPath},
		{"Saved to database", res.Saved},
		{"Elapsed", res.Elapsed.Round(time.Second)},
	})
	if res.CrawlErr != nil {
		summary.AppendRow(table.Row{"Error", res.CrawlErr.Error()})
	}
	summary.SetStyle(table.StyleRounded)
	summary.Render()

	if res.Records.Len() == 0 {
		return
	}

	coverage := table.NewWriter()
	coverage.SetOutputMirror(out)
	coverage.AppendHeader(table.Row{"Field", "Filled", "Coverage"})
	for _, c := range res.Records.Coverage() {
		coverage.AppendRow(table.Row{c.Field, fmt.Sprintf("%d/%d", c.Filled, c.Total), percent(c.Filled, c.Total)})
	}
	coverage.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	coverage.SetStyle(table.StyleRounded)
	coverage.Render()
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}
