package taskcore

import "math"

// pSquareQuantile implements the P² algorithm for streaming quantile
// estimation: O(1) per-observation update and O(1) quantile retrieval,
// without storing observations.
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for
// Dynamic Calculation of Quantiles and Histograms Without Storing
// Observations". Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not safe for concurrent use; callers serialize access (see metrics.go).
type pSquareQuantile struct {
	p  float64
	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

func newPSquareQuantile(p float64) *pSquareQuantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &pSquareQuantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// update adds an observation. O(1).
func (ps *pSquareQuantile) update(x float64) {
	ps.count++

	if ps.count <= 5 {
		ps.initBuffer[ps.count-1] = x
		if ps.count == 5 {
			ps.initialize()
		}
		return
	}

	var k int
	if x < ps.q[0] {
		ps.q[0] = x
		k = 0
	} else if x >= ps.q[4] {
		ps.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if ps.q[k] <= x && x < ps.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.n[i]++
	}
	for i := 0; i < 5; i++ {
		ps.np[i] += ps.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.np[i] - float64(ps.n[i])
		if (d >= 1 && ps.n[i+1]-ps.n[i] > 1) || (d <= -1 && ps.n[i-1]-ps.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := ps.parabolic(i, sign)
			if ps.q[i-1] < qPrime && qPrime < ps.q[i+1] {
				ps.q[i] = qPrime
			} else {
				ps.q[i] = ps.linear(i, sign)
			}
			ps.n[i] += sign
		}
	}
}

func (ps *pSquareQuantile) initialize() {
	for i := 1; i < 5; i++ {
		key := ps.initBuffer[i]
		j := i - 1
		for j >= 0 && ps.initBuffer[j] > key {
			ps.initBuffer[j+1] = ps.initBuffer[j]
			j--
		}
		ps.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		ps.q[i] = ps.initBuffer[i]
		ps.n[i] = i
	}
	ps.np = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
	ps.initialized = true
}

func (ps *pSquareQuantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(ps.n[i])
	niPrev := float64(ps.n[i-1])
	niNext := float64(ps.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (ps.q[i+1] - ps.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (ps.q[i] - ps.q[i-1]) / (ni - niPrev)

	return ps.q[i] + term1*(term2+term3)
}

func (ps *pSquareQuantile) linear(i, d int) float64 {
	if d == 1 {
		return ps.q[i] + (ps.q[i+1]-ps.q[i])/float64(ps.n[i+1]-ps.n[i])
	}
	return ps.q[i] - (ps.q[i]-ps.q[i-1])/float64(ps.n[i]-ps.n[i-1])
}

// quantile returns the current estimate. O(1).
func (ps *pSquareQuantile) quantile() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		sorted := make([]float64, ps.count)
		copy(sorted, ps.initBuffer[:ps.count])
		for i := 1; i < ps.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(ps.count-1) * ps.p)
		if index >= ps.count {
			index = ps.count - 1
		}
		return sorted[index]
	}
	return ps.q[2]
}

// latencyEstimator tracks P50/P90/P99 plus count/sum/max for one stream
// of run() latency observations (milliseconds).
type latencyEstimator struct {
	p50, p90, p99 *pSquareQuantile
	count         int
	sum           float64
	max           float64
}

func newLatencyEstimator() *latencyEstimator {
	return &latencyEstimator{
		p50: newPSquareQuantile(0.50),
		p90: newPSquareQuantile(0.90),
		p99: newPSquareQuantile(0.99),
		max: -math.MaxFloat64,
	}
}

func (e *latencyEstimator) observe(ms float64) {
	e.count++
	e.sum += ms
	if ms > e.max {
		e.max = ms
	}
	e.p50.update(ms)
	e.p90.update(ms)
	e.p99.update(ms)
}

// LatencySnapshot is a point-in-time read of a latencyEstimator.
type LatencySnapshot struct {
	Count int
	Mean  float64
	P50   float64
	P90   float64
	P99   float64
	Max   float64
}

func (e *latencyEstimator) snapshot() LatencySnapshot {
	s := LatencySnapshot{Count: e.count, P50: e.p50.quantile(), P90: e.p90.quantile(), P99: e.p99.quantile()}
	if e.count > 0 {
		s.Mean = e.sum / float64(e.count)
		s.Max = e.max
	}
	return s
}
