package evaluation

import (
	"math"
	"sort"
)

// ClassStats is the per-identity part of the classification report.
type ClassStats struct {
	Label        string
	Name         string
	Precision    float64
	Recall       float64
	F1           float64
	Support      int     // queries whose ground truth is Label
	Accuracy     float64 // correct over support
	MeanDistance float64
}

// DistanceStats summarises best-match distances. Population standard
// deviation. Queries without a candidate are left out.
type DistanceStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
	Std   float64
}

// ConfusionMatrix counts ground truth (rows) against prediction (columns)
// over the sorted union of labels.
type ConfusionMatrix struct {
	Labels []string
	Counts [][]int
}

// At returns the count for a ground truth and predicted label pair.
func (m ConfusionMatrix) At(truth, predicted string) int {
	i := sort.SearchStrings(m.Labels, truth)
	j := sort.SearchStrings(m.Labels, predicted)
	if i >= len(m.Labels) || j >= len(m.Labels) || m.Labels[i] != truth || m.Labels[j] != predicted {
		return 0
	}
	return m.Counts[i][j]
}

func (r *Result) aggregate() {
	r.Confusion = confusion(r.Queries)
	r.Classes = classes(r.Queries)
	r.Distances = distanceStats(r.allDistances())

	correct := 0
	r.CorrectDistances = []float64{}
	r.IncorrectDistances = []float64{}
	for _, q := range r.Queries {
		if q.Correct() {
			correct++
		}
		if q.Predicted == NoPrediction {
			continue
		}
		if q.Correct() {
			r.CorrectDistances = append(r.CorrectDistances, q.Distance)
		} else {
			r.IncorrectDistances = append(r.IncorrectDistances, q.Distance)
		}
	}
	r.Accuracy = float64(correct) / float64(len(r.Queries))

	total := 0
	for _, c := range r.Classes {
		w := float64(c.Support)
		r.Precision += c.Precision * w
		r.Recall += c.Recall * w
		r.F1 += c.F1 * w
		total += c.Support
	}
	if total > 0 {
		r.Precision /= float64(total)
		r.Recall /= float64(total)
		r.F1 /= float64(total)
	}
}

func (r *Result) allDistances() []float64 {
	out := make([]float64, len(r.Queries))
	for i, q := range r.Queries {
		out[i] = q.Distance
	}
	return finite(out)
}

func confusion(queries []Query) ConfusionMatrix {
	set := make(map[string]struct{})
	for _, q := range queries {
		set[q.GroundTruth] = struct{}{}
		set[q.Predicted] = struct{}{}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for _, q := range queries {
		counts[index[q.GroundTruth]][index[q.Predicted]]++
	}
	return ConfusionMatrix{Labels: labels, Counts: counts}
}

// classes computes per-identity metrics for every ground truth label.
// Labels that only ever appear as predictions have no support and are
// reported only through the confusion matrix.
func classes(queries []Query) []ClassStats {
	support := make(map[string]int)
	predicted := make(map[string]int)
	truePos := make(map[string]int)
	names := make(map[string]string)
	distSum := make(map[string]float64)
	distCount := make(map[string]int)

	for _, q := range queries {
		support[q.GroundTruth]++
		predicted[q.Predicted]++
		if q.Correct() {
			truePos[q.GroundTruth]++
		}
		if _, ok := names[q.GroundTruth]; !ok {
			names[q.GroundTruth] = q.GroundTruthName
		}
		if !math.IsInf(q.Distance, 0) {
			distSum[q.GroundTruth] += q.Distance
			distCount[q.GroundTruth]++
		}
	}

	labels := make([]string, 0, len(support))
	for l := range support {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	out := make([]ClassStats, 0, len(labels))
	for _, l := range labels {
		c := ClassStats{
			Label:     l,
			Name:      names[l],
			Support:   support[l],
			Precision: ratio(truePos[l], predicted[l]),
			Recall:    ratio(truePos[l], support[l]),
		}
		c.Accuracy = c.Recall
		if c.Precision+c.Recall > 0 {
			c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		if distCount[l] > 0 {
			c.MeanDistance = distSum[l] / float64(distCount[l])
		}
		out = append(out, c)
	}
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func distanceStats(values []float64) DistanceStats {
	if len(values) == 0 {
		return DistanceStats{}
	}
	s := DistanceStats{Count: len(values), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	sq := 0.0
	for _, v := range values {
		d := v - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(values)))
	return s
}
