package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/qnetworks/qnet/sim/schema"
)

// DistKind enumerates the distribution forms the kernel boundary accepts.
type DistKind string

const (
	DistExponential   DistKind = "exponential"
	DistDeterministic DistKind = "deterministic"
	DistUniform       DistKind = "uniform"
	DistTriangular    DistKind = "triangular"
)

// Dist is the kernel-facing distribution form: a tagged variant with the
// parameter fields relevant to its kind populated and the rest zero.
type Dist struct {
	Kind  DistKind
	Rate  float64 // exponential
	Value float64 // deterministic
	Min   float64 // uniform, triangular
	Mode  float64 // triangular
	Max   float64 // uniform, triangular
}

// Mean returns the distribution's expected value. Used for logging and
// sanity checks, not by the kernel itself.
func (d Dist) Mean() float64 {
	switch d.Kind {
	case DistExponential:
		return 1.0 / d.Rate
	case DistDeterministic:
		return d.Value
	case DistUniform:
		return (d.Min + d.Max) / 2.0
	case DistTriangular:
		return (d.Min + d.Mode + d.Max) / 3.0
	}
	return 0
}

// UnsupportedDistributionError reports a distribution kind the compiler
// cannot translate to the kernel boundary. Compilation fails as a whole:
// no partial CompiledNetwork is ever returned.
type UnsupportedDistributionError struct {
	Kind string
	Path string // which model field carried the distribution, e.g. "nodes[1].service"
}

func (e *UnsupportedDistributionError) Error() string {
	return fmt.Sprintf("%s: unsupported distribution kind %q", e.Path, e.Kind)
}

// UnboundedCapacity is the kernel-boundary sentinel for stations with no
// queueing limit. Matches schema.UnboundedCapacity so capacities pass
// through unchanged.
const UnboundedCapacity = schema.UnboundedCapacity

// CompiledNode is one station in kernel construction form.
type CompiledNode struct {
	ID       string
	Servers  int
	Capacity int // UnboundedCapacity or a positive total-station limit
	Service  Dist
}

// CompiledArrival is one external arrival stream, target addressed by node
// index rather than identifier.
type CompiledArrival struct {
	Target int
	Class  string
	Dist   Dist
}

// CompiledNetwork is the simulation-ready form of a process model. Nodes
// are addressed positionally: index order is declaration order in the
// source model, so results always map back to identifiers unambiguously.
type CompiledNetwork struct {
	Nodes    []CompiledNode
	Arrivals []CompiledArrival

	// Routing[src][dst] is the transition probability between station
	// indices. Rows may sum to less than 1.0 when the model routes to
	// the reserved exit destination; the deficit is the probability of
	// departing the system. Terminal nodes have all-zero rows.
	Routing [][]float64
}

// NodeIDs returns the node identifiers in index order.
func (n *CompiledNetwork) NodeIDs() []string {
	ids := make([]string, len(n.Nodes))
	for i, node := range n.Nodes {
		ids[i] = node.ID
	}
	return ids
}

// Compile translates a validated process model into the kernel's
// index-addressed construction form. Compilation is deterministic: the same
// model always yields an identically-indexed network. The input model is
// never mutated.
func Compile(m *schema.ProcessModel) (*CompiledNetwork, error) {
	net := &CompiledNetwork{
		Nodes:    make([]CompiledNode, len(m.Nodes)),
		Arrivals: make([]CompiledArrival, len(m.Arrivals)),
		Routing:  make([][]float64, len(m.Nodes)),
	}

	for i, node := range m.Nodes {
		service, err := translateDist(node.Service, fmt.Sprintf("nodes[%d].service", i))
		if err != nil {
			return nil, err
		}
		net.Nodes[i] = CompiledNode{
			ID:       node.ID,
			Servers:  node.Servers,
			Capacity: node.Capacity,
			Service:  service,
		}
	}

	for i, arr := range m.Arrivals {
		dist, err := translateDist(arr.Dist, fmt.Sprintf("arrivals[%d].distribution", i))
		if err != nil {
			return nil, err
		}
		net.Arrivals[i] = CompiledArrival{
			Target: m.NodeIndex(arr.Target),
			Class:  arr.Class,
			Dist:   dist,
		}
	}

	for i, node := range m.Nodes {
		row := make([]float64, len(m.Nodes))
		for _, r := range m.RoutesFrom(node.ID) {
			if r.To == schema.ExitID {
				// Departure: omitted from the matrix, the row's
				// probability deficit encodes it.
				continue
			}
			row[m.NodeIndex(r.To)] = r.Probability
		}
		net.Routing[i] = row
	}

	logrus.Debugf("compiled network %q: %d nodes, %d arrival streams", m.Name, len(net.Nodes), len(net.Arrivals))
	return net, nil
}

// translateDist maps a schema distribution spec onto the kernel boundary
// form. Kinds the kernel cannot simulate are a compile-time error, never a
// silent fallback.
func translateDist(spec schema.DistSpec, path string) (Dist, error) {
	p := spec.Params
	switch spec.Kind {
	case "exponential":
		return Dist{Kind: DistExponential, Rate: p["rate"]}, nil
	case "deterministic":
		return Dist{Kind: DistDeterministic, Value: p["value"]}, nil
	case "uniform":
		return Dist{Kind: DistUniform, Min: p["min"], Max: p["max"]}, nil
	case "triangular":
		return Dist{Kind: DistTriangular, Min: p["min"], Mode: p["mode"], Max: p["max"]}, nil
	default:
		return Dist{}, &UnsupportedDistributionError{Kind: spec.Kind, Path: path}
	}
}
