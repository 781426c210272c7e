// Package schema parses and validates JSON process model documents.
//
// A process model describes a queueing network declaratively: service
// stations ("nodes"), external arrival streams, and probabilistic routing
// between stations. Validation happens exactly once, at this boundary;
// downstream consumers (the compiler, the diagram formatter) trust a
// *ProcessModel completely and perform no further checking.
package schema

// UnboundedCapacity is the sentinel for a node with no queueing limit.
// JSON documents spell it as the string "unbounded".
const UnboundedCapacity = -1

// ExitID is the reserved destination identifier for routing entries that
// send customers out of the system. It may never be declared as a node.
const ExitID = "exit"

// DefaultClass is the customer class label assigned to arrival streams
// that do not name one.
const DefaultClass = "customer"

// DistSpec parameterizes a service-time or inter-arrival distribution.
// Kind membership and parameter domains are checked during validation;
// the compiler translates specs into the kernel's distribution form.
type DistSpec struct {
	Kind   string
	Params map[string]float64
}

// Node is one service station: a bank of parallel servers fed by a FIFO
// queue. Capacity counts customers in the whole station (queued + in
// service); UnboundedCapacity means no limit.
type Node struct {
	ID       string
	Servers  int
	Capacity int
	Service  DistSpec
}

// Unbounded reports whether the node has no queueing limit.
func (n *Node) Unbounded() bool {
	return n.Capacity == UnboundedCapacity
}

// ArrivalProcess is one external stream of customers entering the network
// at Target with the given inter-arrival distribution.
type ArrivalProcess struct {
	Target string
	Dist   DistSpec
	Class  string
}

// Route is one probabilistic transition out of a source node. To may be
// ExitID, in which case the customer leaves the system.
type Route struct {
	To          string
	Probability float64
}

// ProcessModel is a fully validated queueing network description.
// Construct only via Validate or ParseModel; treat as immutable afterwards.
type ProcessModel struct {
	Name     string
	Nodes    []Node
	Arrivals []ArrivalProcess

	// Routing maps source node ID to its ordered outgoing routes.
	// A missing entry (or empty list) means the node is terminal: every
	// customer completing service there departs the system.
	Routing map[string][]Route

	index map[string]int
}

// NodeIndex returns the declaration-order index of the node with the given
// ID, or -1 if no such node exists. Indices are stable: diagrams and
// compiled networks always agree on them.
func (m *ProcessModel) NodeIndex(id string) int {
	if i, ok := m.index[id]; ok {
		return i
	}
	return -1
}

// RoutesFrom returns the outgoing routes of the given source node, or nil
// for terminal nodes.
func (m *ProcessModel) RoutesFrom(id string) []Route {
	return m.Routing[id]
}
