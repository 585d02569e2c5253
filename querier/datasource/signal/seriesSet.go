package signal

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/janhoon/vizor/querier/model"
)

// Signature is the grouping key of a series: label pairs rendered as k=v,
// sorted by key, joined with |. Equal label sets always produce equal
// signatures regardless of map order.
func Signature(labels map[string]string) string {
	keys := maps.Keys(labels)
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, "|")
}

// SeriesSet accumulates points grouped by label signature and produces the
// deterministic matrix payload: series sorted by signature, points sorted
// ascending by timestamp. Rows with identical label sets always land in one
// series, so the output never contains duplicates.
type SeriesSet struct {
	bySig map[string]*seriesAcc
}

type seriesAcc struct {
	labels map[string]string
	points []model.MetricPoint
}

func NewSeriesSet() *SeriesSet {
	return &SeriesSet{bySig: map[string]*seriesAcc{}}
}

// Add appends one point to the series identified by labels. The label map is
// copied, callers may reuse it.
func (s *SeriesSet) Add(labels map[string]string, ts float64, value string) {
	sig := Signature(labels)
	acc, ok := s.bySig[sig]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		acc = &seriesAcc{labels: copied}
		s.bySig[sig] = acc
	}
	acc.points = append(acc.points, model.MetricPoint{Timestamp: ts, Value: value})
}

// Matrix renders the accumulated series.
func (s *SeriesSet) Matrix() []model.MetricResult {
	sigs := maps.Keys(s.bySig)
	slices.Sort(sigs)
	out := make([]model.MetricResult, 0, len(sigs))
	for _, sig := range sigs {
		acc := s.bySig[sig]
		sort.SliceStable(acc.points, func(i, j int) bool {
			return acc.points[i].Timestamp < acc.points[j].Timestamp
		})
		out = append(out, model.MetricResult{Metric: acc.labels, Values: acc.points})
	}
	return out
}
