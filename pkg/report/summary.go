package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/gilchrisn/recall-network-sim/pkg/score"
)

// Moments are the mean and population standard deviation of one measure
type Moments struct {
	Mean float64
	Std  float64
}

// SummaryRow aggregates the simulations of one (method, ssnum) cell
type SummaryRow struct {
	Method           string
	SSNum            int
	Simulations      int
	Hit              Moments
	Miss             Moments
	FalseAlarm       Moments
	CorrectRejection Moments
	Cost             Moments
	MedianCost       float64
	HitRate          float64
	FalseAlarmRate   float64
}

type cellKey struct {
	method string
	ssnum  int
}

// Summarize groups records by (method, ssnum). Rows keep the order in which
// methods first appear, then ascending ssnum.
func Summarize(records []score.Record) ([]SummaryRow, error) {
	var methods []string
	cells := make(map[cellKey][]score.Record)
	maxSS := make(map[string]int)
	for _, rec := range records {
		if _, seen := maxSS[rec.Method]; !seen {
			methods = append(methods, rec.Method)
			maxSS[rec.Method] = rec.SSNum
		}
		maxSS[rec.Method] = max(maxSS[rec.Method], rec.SSNum)
		k := cellKey{rec.Method, rec.SSNum}
		cells[k] = append(cells[k], rec)
	}

	var rows []SummaryRow
	for _, method := range methods {
		for ss := 0; ss <= maxSS[method]; ss++ {
			cell, ok := cells[cellKey{method, ss}]
			if !ok {
				continue
			}
			row, err := summarizeCell(method, ss, cell)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func summarizeCell(method string, ssnum int, cell []score.Record) (SummaryRow, error) {
	n := len(cell)
	hit := make(stats.Float64Data, n)
	miss := make(stats.Float64Data, n)
	fa := make(stats.Float64Data, n)
	cr := make(stats.Float64Data, n)
	cost := make(stats.Float64Data, n)
	var hitRate, faRate stats.Float64Data
	for i, rec := range cell {
		hit[i] = float64(rec.SDT.Hit)
		miss[i] = float64(rec.SDT.Miss)
		fa[i] = float64(rec.SDT.FalseAlarm)
		cr[i] = float64(rec.SDT.CorrectRejection)
		cost[i] = rec.Cost
		if r := rec.SDT.HitRate(); !math.IsNaN(r) {
			hitRate = append(hitRate, r)
		}
		if r := rec.SDT.FalseAlarmRate(); !math.IsNaN(r) {
			faRate = append(faRate, r)
		}
	}

	row := SummaryRow{Method: method, SSNum: ssnum, Simulations: n}
	var err error
	for _, m := range []struct {
		dst  *Moments
		data stats.Float64Data
	}{
		{&row.Hit, hit}, {&row.Miss, miss}, {&row.FalseAlarm, fa}, {&row.CorrectRejection, cr}, {&row.Cost, cost},
	} {
		if *m.dst, err = moments(m.data); err != nil {
			return SummaryRow{}, fmt.Errorf("%s ssnum %d: %w", method, ssnum, err)
		}
	}
	if row.MedianCost, err = stats.Median(cost); err != nil {
		return SummaryRow{}, fmt.Errorf("%s ssnum %d: %w", method, ssnum, err)
	}
	row.HitRate = meanOrNaN(hitRate)
	row.FalseAlarmRate = meanOrNaN(faRate)
	return row, nil
}

func moments(data stats.Float64Data) (Moments, error) {
	mean, err := stats.Mean(data)
	if err != nil {
		return Moments{}, err
	}
	std, err := stats.StandardDeviation(data)
	if err != nil {
		return Moments{}, err
	}
	return Moments{Mean: mean, Std: std}, nil
}

func meanOrNaN(data stats.Float64Data) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	mean, _ := stats.Mean(data)
	return mean
}

var summaryHeader = []string{
	"method", "ssnum", "simulations",
	"hit_mean", "hit_std", "miss_mean", "miss_std",
	"falsealarms_mean", "falsealarms_std", "correctrejections_mean", "correctrejections_std",
	"cost_mean", "cost_std", "cost_median", "hit_rate", "falsealarm_rate",
}

// WriteSummary writes rows as CSV
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(summaryHeader); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, r := range rows {
		record := []string{
			r.Method, strconv.Itoa(r.SSNum), strconv.Itoa(r.Simulations),
			f(r.Hit.Mean), f(r.Hit.Std), f(r.Miss.Mean), f(r.Miss.Std),
			f(r.FalseAlarm.Mean), f(r.FalseAlarm.Std), f(r.CorrectRejection.Mean), f(r.CorrectRejection.Std),
			f(r.Cost.Mean), f(r.Cost.Std), f(r.MedianCost), f(r.HitRate), f(r.FalseAlarmRate),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
