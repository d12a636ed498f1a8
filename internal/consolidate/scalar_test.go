package consolidate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumeric(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		decimals bool
		want     float64
	}{
		{"empty", nil, false, 0},
		{"single value", []float64{7}, false, 7},
		{"all equal", []float64{4, 4, 4}, false, 4},
		{"mode beats outlier", []float64{3, 3, 3, 50}, false, 3},
		{"mean in list", []float64{1, 2, 3}, false, 2},
		{"mean in list after ties", []float64{3, 3, 5, 5, 9}, false, 5},
		{"modal values recurse", []float64{3, 3, 5, 5, 10}, false, 4},
		{"two decimals", []float64{1.5, 2.25}, true, 1.88},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Numeric(tt.values, tt.decimals), 1e-9)
		})
	}
}

func TestNumericWeightsTowardsCluster(t *testing.T) {
	got := Numeric([]float64{3, 4, 50}, true)
	assert.Less(t, math.Abs(got-3.5), math.Abs(got-50))
	assert.InDelta(t, 8.68, got, 0.01)
}

func TestNumericIsOrderInsensitive(t *testing.T) {
	a := Numeric([]float64{12, 4, 9.5, 30}, true)
	b := Numeric([]float64{30, 9.5, 12, 4}, true)
	assert.InDelta(t, a, b, 1e-9)
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 2.0, Round(2.5, false))
	assert.Equal(t, 4.0, Round(3.5, false))
	assert.Equal(t, 1.24, Round(1.235, true))
}

func TestInts(t *testing.T) {
	assert.Equal(t, 3, Ints([]int{3, 3, 3, 50}))
	assert.Equal(t, 0, Ints(nil))
	assert.Equal(t, 9, Ints([]int{3, 4, 50}))
}

func TestBoolean(t *testing.T) {
	assert.True(t, Boolean([]bool{true, true, false}))
	assert.False(t, Boolean([]bool{true, false}))
	assert.False(t, Boolean(nil))
	assert.True(t, Boolean([]bool{true}))
}

func TestCategorical(t *testing.T) {
	domain := []string{"none", "park", "shallow", "deep"}
	tests := []struct {
		name   string
		values []string
		domain []string
		want   string
	}{
		{"empty", nil, domain, ""},
		{"unique mode", []string{"deep", "deep", "park"}, domain, "deep"},
		{"average of positions", []string{"none", "shallow"}, domain, "park"},
		{"spread vote", []string{"none", "park", "deep"}, domain, "park"},
		{"half rounds to even", []string{"park", "shallow"}, domain, "shallow"},
		{"half rounds to even low", []string{"none", "park"}, domain, "none"},
		{"no domain takes first mode", []string{"Kim", "Sam"}, nil, "Kim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorical(tt.values, tt.domain))
		})
	}
}
