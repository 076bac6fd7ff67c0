package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/franz/tutorial-bot/internal/library"
	"github.com/franz/tutorial-bot/internal/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, footer []string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	if len(footer) > 0 {
		f := make(table.Row, columns)
		for i := 0; i < columns && i < len(footer); i++ {
			f[i] = footer[i]
		}
		tw.AppendFooter(f)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// MoodSummary renders the per-mood track counts of a catalog.
func MoodSummary(c *library.Catalog) string {
	counts := c.Counts()
	rows := make([][]string, 0, len(counts))
	for _, mc := range counts {
		rows = append(rows, []string{string(mc.Mood), string(mc.Genre), strconv.Itoa(mc.Count)})
	}
	footer := []string{"total", fmt.Sprintf("%d skipped", c.Skipped()), strconv.Itoa(c.Len())}
	return renderTable(
		[]string{"Mood", "Genre", "Tracks"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
		footer,
	)
}

// RunsTable renders populate run history.
func RunsTable(runs []*store.PopulateRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.RunID),
			humanize.Time(r.StartedAt),
			r.Status,
			strconv.Itoa(r.Energetic),
			strconv.Itoa(r.Calm),
			strconv.Itoa(r.Dramatic),
			strconv.Itoa(r.Inspirational),
			strconv.Itoa(r.Skipped),
			optionalInt(r.TotalRows),
			runDuration(r.StartedAt, r.CompletedAt),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Energetic", "Calm", "Dramatic", "Inspirational", "Skipped", "Rows", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		nil,
	)
}

// RenderJobsTable renders video generation history.
func RenderJobsTable(jobs []*store.RenderJob) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			shortID(j.JobID),
			humanize.Time(j.CreatedAt),
			j.TestName,
			fmt.Sprintf("%ds", j.DurationSec),
			j.Status,
			orDash(j.RenderID),
			fmt.Sprintf("%.1fs", j.Elapsed.Seconds()),
			orDash(j.DownloadPath),
		})
	}
	return renderTable(
		[]string{"Job", "Created", "Test", "Length", "Status", "Render ID", "Took", "Download"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		nil,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optionalInt(v int) string {
	if v < 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runDuration(start, end time.Time) string {
	if end.IsZero() {
		return "-"
	}
	return end.Sub(start).Round(time.Second).String()
}
