package kernel

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Subsystem names for the RNG streams one replication draws from.
// Separate streams keep the sampling concerns independent: adding a
// station never perturbs another station's service sequence.
const (
	subsystemRouting = "routing"
)

func subsystemStream(i int) string  { return fmt.Sprintf("stream_%d", i) }
func subsystemService(i int) string { return fmt.Sprintf("service_%d", i) }

// partitionedRNG provides deterministic, isolated RNG instances per
// subsystem within a single replication.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName). Hash-based
// derivation is order-independent: the seed of a subsystem does not depend
// on which subsystems were requested before it.
//
// Thread-safety: NOT thread-safe. Each replication owns its own instance.
type partitionedRNG struct {
	masterSeed int64
	subsystems map[string]*rand.Rand
}

func newPartitionedRNG(masterSeed int64) *partitionedRNG {
	return &partitionedRNG{
		masterSeed: masterSeed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// forSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same cached instance.
func (p *partitionedRNG) forSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	derived := p.masterSeed ^ int64(h.Sum64())
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}
