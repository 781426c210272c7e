package schema

import (
	"fmt"
	"math"
	"sort"
)

// DefaultProbTolerance is the default tolerance for routing probability
// sums. The check passes when |sum - 1.0| <= tolerance. Exposed as a
// configuration value (via Options) rather than hard-coded in the checks.
const DefaultProbTolerance = 1e-5

// Options tunes validation policy.
type Options struct {
	// ProbTolerance overrides DefaultProbTolerance when > 0.
	ProbTolerance float64
}

// Recognized key registries. Unknown keys are rejected (fail-closed),
// never silently ignored.
var (
	validTopLevelKeys = map[string]bool{
		"name": true, "nodes": true, "arrivals": true, "routing": true,
	}
	validNodeKeys = map[string]bool{
		"id": true, "servers": true, "capacity": true, "service": true,
	}
	validArrivalKeys = map[string]bool{
		"target": true, "distribution": true, "class": true,
	}
	validRouteKeys = map[string]bool{
		"to": true, "probability": true,
	}
)

// distParams maps each recognized distribution kind to its required
// parameter names. Membership here is the closed set of kinds the schema
// accepts; parameter domains are checked separately.
var distParams = map[string][]string{
	"exponential":   {"rate"},
	"deterministic": {"value"},
	"uniform":       {"min", "max"},
	"triangular":    {"min", "mode", "max"},
}

// Validate checks an already-decoded JSON document and, when it is a
// well-formed process model, returns the fully typed ProcessModel with all
// defaults resolved. On failure the returned error is a ValidationErrors
// collection holding every problem found, each with its field path.
//
// Checks run in two stages: structural checks over the whole document
// first; cross-reference and probability-sum checks only when the document
// is structurally sound. Validate is pure: it never mutates doc.
func Validate(doc map[string]any) (*ProcessModel, error) {
	return ValidateWith(doc, Options{})
}

// ValidateWith is Validate with explicit policy options.
func ValidateWith(doc map[string]any, opts Options) (*ProcessModel, error) {
	tol := opts.ProbTolerance
	if tol <= 0 {
		tol = DefaultProbTolerance
	}

	c := &collector{}

	for _, key := range sortedKeys(doc) {
		if !validTopLevelKeys[key] {
			c.add(key, KindSchema, "unrecognized top-level key %q; recognized: name, nodes, arrivals, routing", key)
		}
	}

	m := &ProcessModel{}
	if raw, ok := doc["name"]; ok {
		if s, ok := raw.(string); ok {
			m.Name = s
		} else {
			c.add("name", KindSchema, "must be a string, got %T", raw)
		}
	}

	m.Nodes = parseNodes(c, doc["nodes"])
	m.Arrivals = parseArrivals(c, doc["arrivals"])
	m.Routing = parseRouting(c, doc["routing"])

	// Cross-reference and normalization checks are meaningless on a
	// structurally broken document; stop here so one class of mistake
	// does not cascade into spurious follow-on errors.
	if !c.empty() {
		return nil, c.errs
	}

	m.index = make(map[string]int, len(m.Nodes))
	for i, n := range m.Nodes {
		if _, dup := m.index[n.ID]; dup {
			c.add(fmt.Sprintf("nodes[%d].id", i), KindSchema, "duplicate node id %q", n.ID)
			continue
		}
		m.index[n.ID] = i
	}

	for i, a := range m.Arrivals {
		if _, ok := m.index[a.Target]; !ok {
			c.add(fmt.Sprintf("arrivals[%d].target", i), KindReference, "arrival target %q is not a declared node", a.Target)
		}
	}

	for _, src := range sortedKeys(m.Routing) {
		routes := m.Routing[src]
		if _, ok := m.index[src]; !ok {
			c.add(fmt.Sprintf("routing.%s", src), KindReference, "routing source %q is not a declared node", src)
			continue
		}
		seen := make(map[string]bool, len(routes))
		rowOK := true
		sum := 0.0
		for j, r := range routes {
			if r.To != ExitID {
				if _, ok := m.index[r.To]; !ok {
					c.add(fmt.Sprintf("routing.%s[%d].to", src, j), KindReference, "routing destination %q is not a declared node", r.To)
					rowOK = false
					continue
				}
			}
			if seen[r.To] {
				c.add(fmt.Sprintf("routing.%s[%d].to", src, j), KindSchema, "duplicate routing destination %q", r.To)
				rowOK = false
				continue
			}
			seen[r.To] = true
			sum += r.Probability
		}
		// Sum check only when every destination resolved; a dangling
		// reference already explains why the row is wrong.
		if rowOK && len(routes) > 0 && math.Abs(sum-1.0) > tol {
			c.add(fmt.Sprintf("routing.%s", src), KindProbability, "routing probabilities from %q sum to %g, want 1.0 (tolerance %g)", src, sum, tol)
		}
	}

	if !c.empty() {
		return nil, c.errs
	}
	return m, nil
}

func parseNodes(c *collector, raw any) []Node {
	if raw == nil {
		c.add("nodes", KindSchema, "required field is missing")
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		c.add("nodes", KindSchema, "must be an array, got %T", raw)
		return nil
	}
	if len(list) == 0 {
		c.add("nodes", KindSchema, "must declare at least one node")
		return nil
	}

	nodes := make([]Node, 0, len(list))
	for i, item := range list {
		prefix := fmt.Sprintf("nodes[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			c.add(prefix, KindSchema, "must be an object, got %T", item)
			continue
		}
		rejectUnknownKeys(c, prefix, obj, validNodeKeys)

		n := Node{Servers: 1, Capacity: UnboundedCapacity}

		switch id := obj["id"].(type) {
		case nil:
			c.add(prefix+".id", KindSchema, "required field is missing")
		case string:
			if id == "" {
				c.add(prefix+".id", KindSchema, "must not be empty")
			} else if id == ExitID {
				c.add(prefix+".id", KindSchema, "%q is reserved for routing departures", ExitID)
			} else {
				n.ID = id
			}
		default:
			c.add(prefix+".id", KindSchema, "must be a string, got %T", obj["id"])
		}

		serversOK := true
		if raw, ok := obj["servers"]; ok {
			v, ok := asInt(raw)
			if !ok || v < 1 {
				c.add(prefix+".servers", KindSchema, "must be a positive integer, got %v", raw)
				serversOK = false
			} else {
				n.Servers = v
			}
		}

		if raw, ok := obj["capacity"]; ok {
			switch cap := raw.(type) {
			case string:
				if cap != "unbounded" {
					c.add(prefix+".capacity", KindSchema, "must be a positive integer or %q, got %q", "unbounded", cap)
				}
			default:
				v, ok := asInt(raw)
				switch {
				case !ok || v < 1:
					c.add(prefix+".capacity", KindSchema, "must be a positive integer or %q, got %v", "unbounded", raw)
				case serversOK && v < n.Servers:
					c.add(prefix+".capacity", KindSchema, "capacity %d is less than server count %d", v, n.Servers)
				default:
					n.Capacity = v
				}
			}
		}

		if raw, ok := obj["service"]; ok {
			n.Service = parseDistSpec(c, prefix+".service", raw)
		} else {
			c.add(prefix+".service", KindSchema, "required field is missing")
		}

		nodes = append(nodes, n)
	}
	return nodes
}

func parseArrivals(c *collector, raw any) []ArrivalProcess {
	if raw == nil {
		c.add("arrivals", KindSchema, "required field is missing")
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		c.add("arrivals", KindSchema, "must be an array, got %T", raw)
		return nil
	}
	if len(list) == 0 {
		c.add("arrivals", KindSchema, "must declare at least one arrival process")
		return nil
	}

	arrivals := make([]ArrivalProcess, 0, len(list))
	for i, item := range list {
		prefix := fmt.Sprintf("arrivals[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			c.add(prefix, KindSchema, "must be an object, got %T", item)
			continue
		}
		rejectUnknownKeys(c, prefix, obj, validArrivalKeys)

		a := ArrivalProcess{Class: DefaultClass}

		switch target := obj["target"].(type) {
		case nil:
			c.add(prefix+".target", KindSchema, "required field is missing")
		case string:
			if target == "" {
				c.add(prefix+".target", KindSchema, "must not be empty")
			} else {
				a.Target = target
			}
		default:
			c.add(prefix+".target", KindSchema, "must be a string, got %T", obj["target"])
		}

		if raw, ok := obj["distribution"]; ok {
			a.Dist = parseDistSpec(c, prefix+".distribution", raw)
		} else {
			c.add(prefix+".distribution", KindSchema, "required field is missing")
		}

		if raw, ok := obj["class"]; ok {
			if s, ok := raw.(string); ok && s != "" {
				a.Class = s
			} else {
				c.add(prefix+".class", KindSchema, "must be a non-empty string, got %v", raw)
			}
		}

		arrivals = append(arrivals, a)
	}
	return arrivals
}

func parseRouting(c *collector, raw any) map[string][]Route {
	routing := make(map[string][]Route)
	if raw == nil {
		return routing // no routing at all: every node is terminal
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		c.add("routing", KindSchema, "must be an object mapping source id to routes, got %T", raw)
		return routing
	}

	for _, src := range sortedKeys(obj) {
		prefix := "routing." + src
		list, ok := obj[src].([]any)
		if !ok {
			c.add(prefix, KindSchema, "must be an array of routes, got %T", obj[src])
			continue
		}
		routes := make([]Route, 0, len(list))
		for j, item := range list {
			rp := fmt.Sprintf("%s[%d]", prefix, j)
			robj, ok := item.(map[string]any)
			if !ok {
				c.add(rp, KindSchema, "must be an object, got %T", item)
				continue
			}
			rejectUnknownKeys(c, rp, robj, validRouteKeys)

			r := Route{}
			switch to := robj["to"].(type) {
			case nil:
				c.add(rp+".to", KindSchema, "required field is missing")
			case string:
				if to == "" {
					c.add(rp+".to", KindSchema, "must not be empty")
				} else {
					r.To = to
				}
			default:
				c.add(rp+".to", KindSchema, "must be a string, got %T", robj["to"])
			}

			switch p := robj["probability"].(type) {
			case nil:
				c.add(rp+".probability", KindSchema, "required field is missing")
			case float64:
				if math.IsNaN(p) || p < 0 || p > 1 {
					c.add(rp+".probability", KindSchema, "must be in [0, 1], got %g", p)
				} else {
					r.Probability = p
				}
			default:
				c.add(rp+".probability", KindSchema, "must be a number, got %T", robj["probability"])
			}

			routes = append(routes, r)
		}
		if len(routes) > 0 {
			routing[src] = routes
		}
	}
	return routing
}

func parseDistSpec(c *collector, prefix string, raw any) DistSpec {
	obj, ok := raw.(map[string]any)
	if !ok {
		c.add(prefix, KindSchema, "must be an object, got %T", raw)
		return DistSpec{}
	}

	spec := DistSpec{Params: make(map[string]float64)}
	kindRaw, ok := obj["dist"]
	if !ok {
		c.add(prefix+".dist", KindSchema, "required field is missing")
		return spec
	}
	kind, ok := kindRaw.(string)
	if !ok {
		c.add(prefix+".dist", KindSchema, "must be a string, got %T", kindRaw)
		return spec
	}
	spec.Kind = kind

	required, known := distParams[kind]
	if !known {
		c.add(prefix+".dist", KindSchema, "unknown distribution kind %q; valid: exponential, deterministic, uniform, triangular", kind)
		return spec
	}

	for _, key := range sortedKeys(obj) {
		if key == "dist" {
			continue
		}
		if !paramOf(required, key) {
			c.add(prefix+"."+key, KindSchema, "unrecognized parameter %q for %s distribution", key, kind)
			continue
		}
		v, ok := obj[key].(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			c.add(prefix+"."+key, KindSchema, "must be a finite number, got %v", obj[key])
			continue
		}
		spec.Params[key] = v
	}

	for _, key := range required {
		if _, ok := spec.Params[key]; !ok {
			c.add(prefix+"."+key, KindSchema, "%s distribution requires parameter %q", kind, key)
		}
	}
	checkDistDomain(c, prefix, &spec)
	return spec
}

// checkDistDomain enforces per-kind parameter domains. Only runs on params
// that parsed; missing ones were already reported.
func checkDistDomain(c *collector, prefix string, spec *DistSpec) {
	p := spec.Params
	switch spec.Kind {
	case "exponential":
		if rate, ok := p["rate"]; ok && rate <= 0 {
			c.add(prefix+".rate", KindSchema, "rate must be positive, got %g", rate)
		}
	case "deterministic":
		if v, ok := p["value"]; ok && v < 0 {
			c.add(prefix+".value", KindSchema, "value must be non-negative, got %g", v)
		}
	case "uniform":
		min, okMin := p["min"]
		max, okMax := p["max"]
		if okMin && min < 0 {
			c.add(prefix+".min", KindSchema, "min must be non-negative, got %g", min)
		}
		if okMin && okMax && min > max {
			c.add(prefix+".max", KindSchema, "max %g is less than min %g", max, min)
		}
	case "triangular":
		min, okMin := p["min"]
		mode, okMode := p["mode"]
		max, okMax := p["max"]
		if okMin && min < 0 {
			c.add(prefix+".min", KindSchema, "min must be non-negative, got %g", min)
		}
		if okMin && okMode && mode < min {
			c.add(prefix+".mode", KindSchema, "mode %g is less than min %g", mode, min)
		}
		if okMode && okMax && mode > max {
			c.add(prefix+".max", KindSchema, "max %g is less than mode %g", max, mode)
		}
	}
}

func rejectUnknownKeys(c *collector, prefix string, obj map[string]any, valid map[string]bool) {
	for _, key := range sortedKeys(obj) {
		if !valid[key] {
			c.add(prefix+"."+key, KindSchema, "unrecognized key %q", key)
		}
	}
}

// asInt accepts a JSON number only when it is integer-valued.
func asInt(raw any) (int, bool) {
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func paramOf(required []string, key string) bool {
	for _, k := range required {
		if k == key {
			return true
		}
	}
	return false
}

// sortedKeys returns map keys in sorted order so error output is stable
// across runs (Go map iteration order is randomized).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
