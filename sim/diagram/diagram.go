// Package diagram renders validated process models as Mermaid flowchart
// markup. Rendering is a pure formatting function: it assumes its input
// already passed schema validation and never fails on a valid model.
package diagram

import (
	"fmt"
	"strings"

	"github.com/qnetworks/qnet/sim/schema"
)

// Pseudo-node identifiers for the implicit system boundary.
const (
	sourceID = "__source"
	sinkID   = "__sink"
)

// Mermaid renders m as a "flowchart LR" document. Each node becomes a
// labeled box, each arrival stream an inbound edge from an implicit source
// pseudo-node, and each routing entry a directed probability-labeled edge.
// Routing rows whose probabilities leave a deficit (explicit exit routes or
// terminal nodes) get a departure edge to an implicit sink.
func Mermaid(m *schema.ProcessModel) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	sb.WriteString(fmt.Sprintf("    %s((source))\n", sourceID))
	for _, n := range m.Nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s (servers=%d%s)\"]\n", nodeRef(m, n.ID), n.ID, n.Servers, capacityLabel(&n)))
	}
	sb.WriteString(fmt.Sprintf("    %s((sink))\n", sinkID))

	for _, a := range m.Arrivals {
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", sourceID, a.Class, nodeRef(m, a.Target)))
	}

	for _, n := range m.Nodes {
		routes := m.RoutesFrom(n.ID)
		exitProb := 1.0
		for _, r := range routes {
			if r.To == schema.ExitID {
				continue
			}
			exitProb -= r.Probability
			sb.WriteString(fmt.Sprintf("    %s -->|%.2f| %s\n", nodeRef(m, n.ID), r.Probability, nodeRef(m, r.To)))
		}
		if len(routes) == 0 {
			// Terminal node: every completion departs.
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeRef(m, n.ID), sinkID))
		} else if exitProb > 1e-9 {
			sb.WriteString(fmt.Sprintf("    %s -->|%.2f| %s\n", nodeRef(m, n.ID), exitProb, sinkID))
		}
	}

	return sb.String()
}

// nodeRef returns the Mermaid-safe identifier for a node: its stable
// declaration index, so markup identifiers never clash with labels
// containing spaces or punctuation.
func nodeRef(m *schema.ProcessModel, id string) string {
	return fmt.Sprintf("n%d", m.NodeIndex(id))
}

func capacityLabel(n *schema.Node) string {
	if n.Unbounded() {
		return ""
	}
	return fmt.Sprintf(", cap=%d", n.Capacity)
}
