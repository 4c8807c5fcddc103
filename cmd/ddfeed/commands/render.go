package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"ddfeed/internal/extract"
	"ddfeed/internal/flow"
	"ddfeed/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func formatRating(rating *float64) string {
	if rating == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*rating, 'f', -1, 64)
}

func formatLoose(value any) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprint(value)
}

// renderRecords prints at most limit records (all of them when limit <= 0).
func renderRecords(out io.Writer, records []extract.StoreRecord, limit int) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Name", "Rating", "Delivery time", "Delivery fee", "Store id"})

	shown := records
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for i, record := range shown {
		t.AppendRow(table.Row{
			i + 1,
			record.Name,
			formatRating(record.Rating),
			formatLoose(record.DeliveryTime),
			formatLoose(record.DeliveryFee),
			record.ExternalId,
		})
	}
	if len(records) > len(shown) {
		t.AppendFooter(table.Row{"", fmt.Sprintf("... and %d more", len(records)-len(shown))})
	}
	t.Render()
}

func renderSteps(out io.Writer, steps []flow.StepResult) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Step", "Outcome", "Duration", "Error"})
	for _, step := range steps {
		errText := ""
		if step.Err != nil {
			errText = step.Err.Error()
		}
		t.AppendRow(table.Row{
			step.Name,
			step.Outcome,
			step.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	t.Render()
}

func renderRuns(out io.Writer, runs []store.Run) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Id", "Started", "Address", "Label", "Status", "Records"})
	for _, run := range runs {
		status := run.Status
		if run.AbortedStep != "" {
			status = fmt.Sprintf("%s (%s)", run.Status, run.AbortedStep)
		}
		t.AppendRow(table.Row{
			run.Id,
			run.StartedAt.Format(time.DateTime),
			run.AddressQuery,
			run.Label,
			status,
			run.RecordCount,
		})
	}
	t.Render()
}
