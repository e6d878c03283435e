package stabforest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardScanMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 15; trial++ {
		lEvents := randomEvents(rng, 5+rng.Intn(60))
		rEvents := randomEvents(rng, 5+rng.Intn(60))
		l := buildForest(lEvents)
		r := buildForest(rEvents)

		var got []Pair
		ForwardScan(l, r, func(p Pair) { got = append(got, p) })

		require.Equal(t, canonicalPairs(bruteForceJoin(lEvents, rEvents)), canonicalPairs(got), "trial=%d", trial)
	}
}

func TestForwardSkipJoinMatchesForwardScan(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	policies := []JumpPolicy{ListPolicy{}, IndexPolicy{}, CheckPolicy{Threshold: 5}}

	for trial := 0; trial < 15; trial++ {
		lEvents := randomEvents(rng, 5+rng.Intn(80))
		rEvents := randomEvents(rng, 5+rng.Intn(80))

		var want []Pair
		{
			l := buildForest(lEvents)
			r := buildForest(rEvents)
			ForwardScan(l, r, func(p Pair) { want = append(want, p) })
		}
		want = canonicalPairs(want)

		for _, pl := range policies {
			for _, pr := range policies {
				l := buildForest(lEvents)
				r := buildForest(rEvents)
				var got []Pair
				ForwardSkipJoin(l, r, func(p Pair) { got = append(got, p) }, pl, pr)
				require.Equal(t, want, canonicalPairs(got), "trial=%d policyL=%T policyR=%T", trial, pl, pr)
			}
		}
	}
}

func TestForwardScanDisjointForestsEmitNothing(t *testing.T) {
	l := buildForest([]Event{{Start: 0, End: 5}, {Start: 6, End: 10}})
	r := buildForest([]Event{{Start: 20, End: 25}, {Start: 30, End: 40}})

	var got []Pair
	ForwardScan(l, r, func(p Pair) { got = append(got, p) })
	require.Empty(t, got)
}

func TestForwardScanFullOverlap(t *testing.T) {
	l := buildForest([]Event{{Start: 0, End: 100}})
	r := buildForest([]Event{{Start: 10, End: 20}, {Start: 30, End: 40}, {Start: 50, End: 60}})

	var got []Pair
	ForwardScan(l, r, func(p Pair) { got = append(got, p) })
	require.Len(t, got, 3)
}
