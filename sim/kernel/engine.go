// Package kernel is the bundled network-of-queues simulation engine: the
// default Kernel collaborator behind the sim package's replication runner.
//
// One Simulate call runs one replication: external arrival streams feed
// customers into multi-server FIFO stations, Bernoulli routing moves them
// between stations per the compiled routing matrix (a row's probability
// deficit is the chance of departing the system), and per-station counters
// accumulate metrics after the warmup cutoff.
package kernel

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/qnetworks/qnet/sim"
)

// Engine implements sim.Kernel. An Engine holds no cross-replication
// state: every Simulate call builds private stations, event heap, and RNG
// streams, so distinct Engine instances (or repeated calls on one) are
// fully independent.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

// station is the runtime state of one compiled node during a replication.
type station struct {
	servers  int
	capacity int // sim.UnboundedCapacity or total-station limit
	service  sampler
	rng      *rand.Rand

	busy  int
	queue []float64 // queue-entry times of waiting customers, FIFO

	// Post-warmup counters.
	arrivals   int64
	balked     int64
	departures int64
	waitSum    float64
	waitCount  int64
	serviceSum float64
	svcCount   int64

	// Time integrals over [warmup, horizon], advanced lazily.
	busyIntegral  float64
	queueIntegral float64
	lastT         float64
}

// run is the per-replication simulation state.
type run struct {
	net      *sim.CompiledNetwork
	stations []*station
	streams  []streamState
	events   *eventHeap
	routing  *rand.Rand
	seq      int64

	horizon float64
	warmup  float64
}

type streamState struct {
	target int
	iat    sampler
	rng    *rand.Rand
}

// Simulate runs one replication over net and returns its per-node metrics.
// net is treated as read-only; all randomness derives from seed.
func (e *Engine) Simulate(net *sim.CompiledNetwork, params sim.RunParams, seed int64) (sim.Observation, error) {
	if params.RunLength <= 0 {
		return sim.Observation{}, fmt.Errorf("run length must be positive, got %g", params.RunLength)
	}
	if params.Warmup < 0 || params.Warmup >= params.RunLength {
		return sim.Observation{}, fmt.Errorf("warmup %g must be in [0, run length %g)", params.Warmup, params.RunLength)
	}
	if len(net.Nodes) == 0 {
		return sim.Observation{}, fmt.Errorf("network has no nodes")
	}

	prng := newPartitionedRNG(seed)
	r := &run{
		net:     net,
		events:  newEventHeap(),
		routing: prng.forSubsystem(subsystemRouting),
		horizon: params.RunLength,
		warmup:  params.Warmup,
	}

	r.stations = make([]*station, len(net.Nodes))
	for i, node := range net.Nodes {
		svc, err := newSampler(node.Service)
		if err != nil {
			return sim.Observation{}, fmt.Errorf("node %q service: %w", node.ID, err)
		}
		r.stations[i] = &station{
			servers:  node.Servers,
			capacity: node.Capacity,
			service:  svc,
			rng:      prng.forSubsystem(subsystemService(i)),
			lastT:    params.Warmup,
		}
	}

	r.streams = make([]streamState, len(net.Arrivals))
	for i, arr := range net.Arrivals {
		iat, err := newSampler(arr.Dist)
		if err != nil {
			return sim.Observation{}, fmt.Errorf("arrival stream %d: %w", i, err)
		}
		r.streams[i] = streamState{
			target: arr.Target,
			iat:    iat,
			rng:    prng.forSubsystem(subsystemStream(i)),
		}
		r.schedule(r.streams[i].iat.sample(r.streams[i].rng), evStreamArrival, i)
	}

	steps := 0
	for {
		ev, ok := r.events.popNext()
		if !ok || ev.time > r.horizon {
			break
		}
		switch ev.kind {
		case evStreamArrival:
			s := &r.streams[ev.target]
			r.arrive(s.target, ev.time)
			r.schedule(ev.time+s.iat.sample(s.rng), evStreamArrival, ev.target)
		case evCompletion:
			r.complete(ev.target, ev.time)
		}
		steps++
	}
	logrus.Debugf("replication seed=%d processed %d events over horizon %g", seed, steps, r.horizon)

	return r.observe(), nil
}

func (r *run) schedule(t float64, kind eventKind, target int) {
	r.seq++
	r.events.schedule(event{time: t, seq: r.seq, kind: kind, target: target})
}

// inWindow reports whether t falls in the recording window.
func (r *run) inWindow(t float64) bool {
	return t >= r.warmup && t <= r.horizon
}

// advance brings a station's time integrals forward to t. Only the
// portion of [lastT, t] inside the recording window accumulates.
func (r *run) advance(st *station, t float64) {
	lo, hi := st.lastT, t
	if lo < r.warmup {
		lo = r.warmup
	}
	if hi > r.horizon {
		hi = r.horizon
	}
	if hi > lo {
		st.busyIntegral += float64(st.busy) * (hi - lo)
		st.queueIntegral += float64(len(st.queue)) * (hi - lo)
	}
	if t > st.lastT {
		st.lastT = t
	}
}

// arrive delivers one customer to station i at time t, seizing a free
// server, queueing, or balking when the station is at capacity.
func (r *run) arrive(i int, t float64) {
	st := r.stations[i]
	r.advance(st, t)
	if r.inWindow(t) {
		st.arrivals++
	}

	if st.capacity != sim.UnboundedCapacity && st.busy+len(st.queue) >= st.capacity {
		if r.inWindow(t) {
			st.balked++
		}
		return
	}
	if st.busy < st.servers {
		r.startService(i, t, t)
		return
	}
	st.queue = append(st.queue, t)
}

// startService seizes a server at station i at time t for a customer that
// entered the station at queuedAt.
func (r *run) startService(i int, t, queuedAt float64) {
	st := r.stations[i]
	st.busy++
	d := st.service.sample(st.rng)
	if r.inWindow(t) {
		st.waitSum += t - queuedAt
		st.waitCount++
		st.serviceSum += d
		st.svcCount++
	}
	r.schedule(t+d, evCompletion, i)
}

// complete finishes one service at station i at time t: the freed server
// takes the next queued customer, then the finished customer is routed
// onward or departs per the station's routing row.
func (r *run) complete(i int, t float64) {
	st := r.stations[i]
	r.advance(st, t)
	st.busy--
	if r.inWindow(t) {
		st.departures++
	}

	if len(st.queue) > 0 && st.busy < st.servers {
		queuedAt := st.queue[0]
		st.queue = st.queue[1:]
		r.startService(i, t, queuedAt)
	}

	if dest, ok := r.route(i); ok {
		r.arrive(dest, t)
	}
}

// route draws the destination for a customer leaving station i. The
// second return value is false when the customer departs the system
// (the row's probability deficit).
func (r *run) route(i int) (int, bool) {
	row := r.net.Routing[i]
	u := r.routing.Float64()
	cum := 0.0
	for dest, p := range row {
		if p == 0 {
			continue
		}
		cum += p
		if u < cum {
			return dest, true
		}
	}
	return 0, false
}

// observe folds each station's counters into the metric map consumed by
// the aggregator. Stations no customer ever reached report zeros, not
// absence.
func (r *run) observe() sim.Observation {
	window := r.horizon - r.warmup
	obs := sim.Observation{Metrics: make(map[string]map[string]float64, len(r.stations))}
	for i, st := range r.stations {
		r.advance(st, r.horizon)
		if st.balked > 0 {
			logrus.Debugf("node %q: %d customer(s) balked at capacity %d", r.net.Nodes[i].ID, st.balked, st.capacity)
		}

		meanWait := 0.0
		if st.waitCount > 0 {
			meanWait = st.waitSum / float64(st.waitCount)
		}
		meanService := 0.0
		if st.svcCount > 0 {
			meanService = st.serviceSum / float64(st.svcCount)
		}

		obs.Metrics[r.net.Nodes[i].ID] = map[string]float64{
			sim.MetricArrivals:        float64(st.arrivals),
			sim.MetricMeanWait:        meanWait,
			sim.MetricMeanService:     meanService,
			sim.MetricUtilization:     st.busyIntegral / (float64(st.servers) * window),
			sim.MetricMeanQueueLength: st.queueIntegral / window,
			sim.MetricThroughput:      float64(st.departures) / window,
		}
	}
	return obs
}
