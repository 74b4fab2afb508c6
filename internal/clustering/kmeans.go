// Package clustering buckets communities by size with a one-dimensional
// k-means over their home counts.
package clustering

import (
	"math"
	"slices"
)

// K is the fixed number of size buckets.
const K = 3

// Result holds the outcome of a k-means run.
type Result struct {
	// Assignments holds the bucket index of every input value, in input order.
	Assignments []int
	Centroids   [K]float64
	Iterations  int
}

// Members returns the values assigned to each bucket, in input order.
func (r Result) Members(values []float64) [K][]float64 {
	var members [K][]float64
	for i, bucket := range r.Assignments {
		members[bucket] = append(members[bucket], values[i])
	}
	return members
}

// KMeans runs Lloyd's algorithm with k=3. Centroids start at the minimum,
// the middle element of the sorted input and the maximum. Each pass assigns
// every value to its nearest centroid, ties going to the lowest bucket, and
// then moves each centroid to the mean of its members. A bucket that ends up
// empty keeps its previous centroid. The loop stops once a pass leaves every
// assignment unchanged.
func KMeans(values []float64) Result {
	if len(values) == 0 {
		return Result{Assignments: []int{}}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	centroids := [K]float64{sorted[0], sorted[len(sorted)/2], sorted[len(sorted)-1]}

	assignments := make([]int, len(values))
	for i := range assignments {
		assignments[i] = -1
	}

	iterations := 0
	for {
		iterations++
		changed := false

		for i, v := range values {
			bucket := nearest(v, centroids)
			if assignments[i] != bucket {
				assignments[i] = bucket
				changed = true
			}
		}

		if !changed {
			break
		}

		var sums [K]float64
		var counts [K]int
		for i, bucket := range assignments {
			sums[bucket] += values[i]
			counts[bucket]++
		}
		for b := range centroids {
			if counts[b] > 0 {
				centroids[b] = sums[b] / float64(counts[b])
			}
		}
	}

	return Result{
		Assignments: assignments,
		Centroids:   centroids,
		Iterations:  iterations,
	}
}

func nearest(v float64, centroids [K]float64) int {
	best := 0
	bestDist := math.Abs(v - centroids[0])
	for i := 1; i < K; i++ {
		if d := math.Abs(v - centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Sizes labels every value with the label of its bucket. Buckets are named
// by the order they were initialized in (min, middle, max), not by where
// their centroids finish.
func Sizes(values []float64, labels [K]string) []string {
	return KMeans(values).Labels(labels)
}

// Labels maps every assignment to the label of its bucket.
func (r Result) Labels(labels [K]string) []string {
	sizes := make([]string, len(r.Assignments))
	for i, bucket := range r.Assignments {
		sizes[i] = labels[bucket]
	}
	return sizes
}
