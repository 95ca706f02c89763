package aggregate

// WeightedMidpointAverage estimates the mean of a bucketed variable as
// sum(count*midpoint)/sum(count). It returns 0 when there are no counts.
// Extra counts without a matching midpoint are ignored.
func WeightedMidpointAverage(counts []int, midpoints []float64) float64 {
	total := 0
	sum := 0.0
	for i, n := range counts {
		if i >= len(midpoints) {
			break
		}
		total += n
		sum += float64(n) * midpoints[i]
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

// MedianBucket returns the first bucket at which the cumulative count
// reaches half of the total. ok is false for an all-zero histogram.
func MedianBucket(counts []int) (int, bool) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0, false
	}
	half := float64(total) / 2
	acc := 0
	for i, n := range counts {
		acc += n
		if float64(acc) >= half {
			return i, true
		}
	}
	return len(counts) - 1, true
}

// Mean is the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Ratio divides a by b, reporting false when b is zero.
func Ratio(a, b int) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return float64(a) / float64(b), true
}
