/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPlacement(t *testing.T) {
	tests := []struct {
		name      string
		candidate int
		prev      int
		next      int
		want      bool
	}{
		{"open on both sides", 2015, NoLowerBound, NoUpperBound, true},
		{"open low side below next", 1950, NoLowerBound, 1980, true},
		{"open low side equal to next", 1980, NoLowerBound, 1980, true},
		{"open low side above next", 1981, NoLowerBound, 1980, false},
		{"open high side above prev", 2030, 2000, NoUpperBound, true},
		{"open high side equal to prev", 2000, 2000, NoUpperBound, true},
		{"open high side below prev", 1999, 2000, NoUpperBound, false},
		{"strictly between", 1990, 1980, 2000, true},
		{"tie with prev", 1980, 1980, 2000, true},
		{"tie with next", 2000, 1980, 2000, true},
		{"tie with both", 1990, 1990, 1990, true},
		{"below interval", 1970, 1980, 2000, false},
		{"above interval", 2010, 1980, 2000, false},
		{"extreme low candidate", NoLowerBound, NoLowerBound, 0, true},
		{"extreme high candidate", NoUpperBound, 0, NoUpperBound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPlacement(tt.candidate, tt.prev, tt.next))
		})
	}
}

func TestNeighbors(t *testing.T) {
	years := []int{1980, 2000}

	tests := []struct {
		index    int
		wantPrev int
		wantNext int
	}{
		{0, NoLowerBound, 1980},
		{1, 1980, 2000},
		{2, 2000, NoUpperBound},
	}

	for _, tt := range tests {
		prev, next := Neighbors(years, tt.index)
		assert.Equal(t, tt.wantPrev, prev, "prev at index %d", tt.index)
		assert.Equal(t, tt.wantNext, next, "next at index %d", tt.index)
	}

	prev, next := Neighbors(nil, 0)
	assert.Equal(t, NoLowerBound, prev)
	assert.Equal(t, NoUpperBound, next)
}

func TestEmptyTimelineAcceptsAnyYear(t *testing.T) {
	prev, next := Neighbors(nil, 0)
	assert.True(t, IsValidPlacement(2015, prev, next))

	timeline := slices.Insert([]int(nil), 0, 2015)
	assert.Equal(t, []int{2015}, timeline)
}

// Inserting at index keeps the timeline sorted exactly when the placement is valid.
func TestPlacementMatchesSortedInsertion(t *testing.T) {
	r := rand.New(rand.NewPCG(1980, 2000))

	for range 500 {
		years := make([]int, r.IntN(8))
		for i := range years {
			years[i] = 1950 + r.IntN(15)
		}
		slices.Sort(years)

		candidate := 1948 + r.IntN(20)

		for index := 0; index <= len(years); index++ {
			inserted := slices.Insert(slices.Clone(years), index, candidate)

			prev, next := Neighbors(years, index)
			got := IsValidPlacement(candidate, prev, next)

			assert.Equal(t, slices.IsSorted(inserted), got,
				"years=%v candidate=%d index=%d", years, candidate, index)
		}
	}
}
