// Package report renders analysis results as HTML charts, an HTML report and
// a plain-text summary.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"mcp-insight-service/pkg/stats"
)

// RenderHistogram writes a standalone HTML bar chart of h for column
func RenderHistogram(w io.Writer, column string, h stats.Histogram) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("Distribution of %s", column),
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Distribution of %s", column),
			Subtitle: fmt.Sprintf("%d bins", len(h.Bins)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: column}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency"}),
	)

	data := make([]opts.BarData, len(h.Bins))
	for i, c := range h.Counts() {
		data[i] = opts.BarData{Value: c}
	}
	bar.SetXAxis(h.Labels()).AddSeries("Frequency", data)

	return bar.Render(w)
}
