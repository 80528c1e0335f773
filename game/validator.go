/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math"

// Open bounds used when an insertion index has no neighbour on one side.
const (
	NoLowerBound = math.MinInt
	NoUpperBound = math.MaxInt
)

// IsValidPlacement reports whether candidate fits between prev and next.
// Both ends are inclusive, so a year equal to either neighbour is accepted.
func IsValidPlacement(candidate, prev, next int) bool {
	return prev <= candidate && candidate <= next
}

// Neighbors returns the years on either side of an insertion at index,
// substituting NoLowerBound and NoUpperBound at the edges.
func Neighbors(years []int, index int) (prev, next int) {
	prev, next = NoLowerBound, NoUpperBound

	if index > 0 && index-1 < len(years) {
		prev = years[index-1]
	}
	if index >= 0 && index < len(years) {
		next = years[index]
	}

	return prev, next
}
