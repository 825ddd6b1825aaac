package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-operators/src/models"
)

func TestResampleIndices(t *testing.T) {
	ts := []int64{60, 61, 119, 180, 250}
	windows := ResampleIndices(ts, 60)

	require.Len(t, windows, 3)
	assert.Equal(t, Window{Indices: []int{0, 1, 2}, StartTime: 60, EndTime: 120}, windows[0])
	assert.Equal(t, Window{Indices: []int{3}, StartTime: 180, EndTime: 240}, windows[1])
	assert.Equal(t, Window{Indices: []int{4}, StartTime: 240, EndTime: 300}, windows[2])
}

func TestResampleIndicesEdgeCases(t *testing.T) {
	assert.Nil(t, ResampleIndices(nil, 60))
	assert.Nil(t, ResampleIndices([]int64{1, 2}, 0))

	windows := ResampleIndices([]int64{5}, 10)
	require.Len(t, windows, 1)
	assert.Equal(t, int64(0), windows[0].StartTime)
}

func TestSearchSorted(t *testing.T) {
	arr := []int64{1, 2, 2, 3}
	assert.Equal(t, 1, SearchSorted(arr, 2, "left"))
	assert.Equal(t, 3, SearchSorted(arr, 2, "right"))
	assert.Equal(t, 4, SearchSorted(arr, 9, "left"))
}

func TestCalculateWindowBoundaries(t *testing.T) {
	start, end := CalculateWindowBoundaries(125, 60)
	assert.Equal(t, int64(120), start)
	assert.Equal(t, int64(180), end)

	start, end = CalculateWindowBoundaries(-5, 60)
	assert.Equal(t, int64(-60), start)
	assert.Equal(t, int64(0), end)
}

func TestSummarizeEmissions(t *testing.T) {
	base := time.Unix(600, 0)
	at := func(sec int, price float64, passed bool) models.MEmission {
		return models.MEmission{
			Symbol:    "AAAA",
			Price:     price,
			Passed:    passed,
			Result:    price * 2,
			CreatedAt: base.Add(time.Duration(sec) * time.Second),
		}
	}
	// out of order on purpose
	emissions := []models.MEmission{
		at(70, 50, true),
		at(0, 40, true),
		at(30, 44, false),
		at(10, 36, true),
	}

	windows := SummarizeEmissions(emissions, 60)
	require.Len(t, windows, 2)

	first := windows[0]
	assert.Equal(t, int64(600), first.StartTime)
	assert.Equal(t, int64(660), first.EndTime)
	assert.Equal(t, 3, first.Count)
	assert.Equal(t, 2, first.Passed)
	assert.Equal(t, 40.0, first.Open)
	assert.Equal(t, 44.0, first.Close)
	assert.Equal(t, 44.0, first.High)
	assert.Equal(t, 36.0, first.Low)
	assert.InDelta(t, 40.0, first.MeanPrice, 1e-9)
	assert.InDelta(t, 3.265986, first.StdPrice, 1e-6)
	assert.InDelta(t, 1.224745, first.CloseZScore, 1e-6)
	assert.Equal(t, 88.0, first.LastResult)

	second := windows[1]
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, 50.0, second.Open)
	assert.Equal(t, 0.0, second.StdPrice)
	assert.Equal(t, 0.0, second.CloseZScore)

	assert.Nil(t, SummarizeEmissions(nil, 60))
}
