package report

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ChartPNG renders the monthly totals of year as a bar chart.
func (s *Service) ChartPNG(ctx context.Context, year int, w io.Writer) error {
	sum, err := s.Summary(ctx, year)
	if err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(sum.Months))
	top := 0.0
	for i, m := range sum.Months {
		v := m.Amount.InexactFloat64()
		top = math.Max(top, v)
		bars = append(bars, chart.Value{Value: v, Label: monthLabels[i]})
	}
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:  fmt.Sprintf("Spending %d: %s", year, s.FormatMoney(sum.Total)),
		Width:  1024,
		Height: 512,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth:   40,
		BarSpacing: 30,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return s.printer.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
