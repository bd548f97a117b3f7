package bal

// rng.go wraps the random number streams used when generating topologies

import (
	"errors"
	"fmt"

	"github.com/iti/rngstream"
)

// ErrBadSeed is returned for a seed the random number streams cannot start from
var ErrBadSeed = errors.New("bad random seed")

// MaxSeed is the largest seed SeedRandSrcs accepts. The six seed words are
// seed..seed+5, each of which must stay below 4294944443.
const MaxSeed = 4294944443 - 7

// RandSrc is the source of randomness used by graph and topology generation.
// *rngstream.RngStream satisfies it; tests substitute scripted sources.
type RandSrc interface {
	// RandInt returns an integer uniformly distributed in [lo, hi], inclusive
	RandInt(lo, hi int) int
}

// SeedRandSrcs sets the seed that the streams created from now on derive from.
// Without it every process draws the same streams.
func SeedRandSrcs(seed uint64) error {
	if seed > MaxSeed {
		return fmt.Errorf("%w: %d is larger than %d", ErrBadSeed, seed, uint64(MaxSeed))
	}
	rngstream.SetRngStreamMasterSeed(seed)
	return nil
}

// NewRandSrc creates a new named random number stream
func NewRandSrc(name string) RandSrc {
	return rngstream.New(name)
}

// ran returns a random integer between 0 and k-1 inclusive
func ran(rng RandSrc, k int) int {
	if k < 2 {
		return 0
	}
	return rng.RandInt(0, k-1)
}

// permute returns a random permutation of 0..n-1
func permute(rng RandSrc, n int) []int {
	perm := make([]int, n)
	for idx := 0; idx < n; idx++ {
		perm[idx] = idx
	}

	// Fisher-Yates, from the back
	for idx := n - 1; idx > 0; idx-- {
		jdx := rng.RandInt(0, idx)
		perm[idx], perm[jdx] = perm[jdx], perm[idx]
	}
	return perm
}
