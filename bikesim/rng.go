package bikesim

import (
	"hash/fnv"
	"math/rand"
)

// === ScenarioSeed ===

// ScenarioSeed identifies a reproducible scenario run. Two runs with the
// same seed and identical configuration draw identical random sequences.
type ScenarioSeed int64

// === Subsystem Constants ===

const (
	// SubsystemFlows is the RNG subsystem for dynamic-flow emission and
	// vehicle-mix draws. Uses the master seed directly so that a scenario
	// with a single flow reproduces runs keyed only by --seed.
	SubsystemFlows = "flows"

	// SubsystemRoutes is the RNG subsystem for departure-position draws.
	SubsystemRoutes = "routes"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, so adding a random draw to one subsystem never perturbs the
// sequence seen by another.
//
// Derivation formula:
//   - For SubsystemFlows: uses the master seed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	seed       ScenarioSeed
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed ScenarioSeed) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same subsystem name always returns the same *rand.Rand
// instance (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemFlows {
		derivedSeed = int64(p.seed)
	} else {
		derivedSeed = int64(p.seed) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() ScenarioSeed {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
