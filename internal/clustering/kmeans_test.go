package clustering

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var labels = [K]string{"Small", "Medium", "Large"}

func TestSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		expect []string
	}{
		{
			name:   "empty input",
			values: nil,
			expect: []string{},
		},
		{
			name:   "three clear ranges keep input order",
			values: []float64{520, 10, 105, 12, 500, 11, 100},
			expect: []string{"Large", "Small", "Medium", "Small", "Large", "Small", "Medium"},
		},
		{
			name:   "single distinct value collapses to the first bucket",
			values: []float64{250, 250, 250, 250},
			expect: []string{"Small", "Small", "Small", "Small"},
		},
		{
			name:   "single value",
			values: []float64{42},
			expect: []string{"Small"},
		},
		{
			// The middle element of a two-value input is the maximum, and
			// the tie goes to the lower bucket.
			name:   "two values",
			values: []float64{900, 100},
			expect: []string{"Medium", "Small"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Sizes(tt.values, labels)
			if diff := cmp.Diff(tt.expect, got); diff != "" {
				t.Fatalf("unexpected sizes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKMeansCentroidsConverge(t *testing.T) {
	t.Parallel()

	values := []float64{10, 11, 12, 100, 105, 500, 520}
	result := KMeans(values)

	want := [K]float64{11, 102.5, 510}
	if result.Centroids != want {
		t.Fatalf("expected centroids %v, got %v", want, result.Centroids)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected 2 passes, got %d", result.Iterations)
	}

	members := result.Members(values)
	if diff := cmp.Diff([]float64{100, 105}, members[1]); diff != "" {
		t.Fatalf("unexpected medium members (-want +got):\n%s", diff)
	}
}

func TestKMeansIsDeterministic(t *testing.T) {
	t.Parallel()

	values := []float64{830, 120, 4500, 2200, 640, 3100, 90, 1500, 7000}
	first := Sizes(values, labels)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Sizes(values, labels)); diff != "" {
			t.Fatalf("run %d differs (-first +run):\n%s", i, diff)
		}
	}
}

// Labels follow bucket initialization order. Here the empty middle bucket
// keeps its starting centroid, steals the smallest values on the next pass
// and ends up below the first bucket, so the smallest communities are
// labelled Medium. Pinned until product decides whether this is intended.
func TestSizesLabelByInitializationOrder(t *testing.T) {
	t.Parallel()

	values := []float64{1, 1, 1, 10, 100}
	got := Sizes(values, labels)

	want := []string{"Medium", "Medium", "Medium", "Small", "Large"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected sizes (-want +got):\n%s", diff)
	}

	result := KMeans(values)
	if !(result.Centroids[1] < result.Centroids[0]) {
		t.Fatalf("expected medium centroid below small centroid, got %v", result.Centroids)
	}
}
