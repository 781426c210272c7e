package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/qnet/sim"
)

func exponential(rate float64) sim.Dist {
	return sim.Dist{Kind: sim.DistExponential, Rate: rate}
}

func deterministic(value float64) sim.Dist {
	return sim.Dist{Kind: sim.DistDeterministic, Value: value}
}

// singleNode builds a one-station network with the given parameters.
func singleNode(servers, capacity int, service, interArrival sim.Dist) *sim.CompiledNetwork {
	return &sim.CompiledNetwork{
		Nodes: []sim.CompiledNode{
			{ID: "station", Servers: servers, Capacity: capacity, Service: service},
		},
		Arrivals: []sim.CompiledArrival{
			{Target: 0, Class: "customer", Dist: interArrival},
		},
		Routing: [][]float64{{0}},
	}
}

func TestSimulate_DeterministicSingleServer_KnownMetrics(t *testing.T) {
	// GIVEN arrivals every 1.0 and service 0.5 at one server: no queueing,
	// half-busy server, one departure per time unit
	net := singleNode(1, sim.UnboundedCapacity, deterministic(0.5), deterministic(1.0))

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 1000}, 1)
	require.NoError(t, err)

	m := obs.Metrics["station"]
	require.NotNil(t, m)
	assert.InDelta(t, 0.5, m[sim.MetricUtilization], 0.01)
	assert.InDelta(t, 1.0, m[sim.MetricThroughput], 0.01)
	assert.InDelta(t, 0.5, m[sim.MetricMeanService], 1e-9)
	assert.InDelta(t, 0.0, m[sim.MetricMeanWait], 1e-9)
	assert.InDelta(t, 0.0, m[sim.MetricMeanQueueLength], 0.01)
	assert.InDelta(t, 1000, m[sim.MetricArrivals], 1)
}

func TestSimulate_WarmupExcludedFromCounts(t *testing.T) {
	// Deterministic arrivals at t=1,2,...,10; warmup 5 leaves arrivals at
	// t in [5,10]
	net := singleNode(1, sim.UnboundedCapacity, deterministic(0.1), deterministic(1.0))

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 10, Warmup: 5}, 1)
	require.NoError(t, err)

	assert.Equal(t, 6.0, obs.Metrics["station"][sim.MetricArrivals])
}

func TestSimulate_FiniteCapacity_ExcessArrivalsLost(t *testing.T) {
	// Service far slower than arrivals with capacity 1: one customer in
	// service, everyone else lost, so throughput stays near 1/serviceTime
	net := singleNode(1, 1, deterministic(10), deterministic(0.1))

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 1000}, 1)
	require.NoError(t, err)

	m := obs.Metrics["station"]
	assert.InDelta(t, 0.1, m[sim.MetricThroughput], 0.01)
	assert.InDelta(t, 0.0, m[sim.MetricMeanQueueLength], 1e-9, "capacity 1 leaves no room to queue")
	assert.Greater(t, m[sim.MetricArrivals], 9000.0)
}

func TestSimulate_RoutingMovesCustomersDownstream(t *testing.T) {
	// GIVEN a tandem pair where every completion at front feeds back
	net := &sim.CompiledNetwork{
		Nodes: []sim.CompiledNode{
			{ID: "front", Servers: 1, Capacity: sim.UnboundedCapacity, Service: deterministic(0.1)},
			{ID: "back", Servers: 1, Capacity: sim.UnboundedCapacity, Service: deterministic(0.1)},
		},
		Arrivals: []sim.CompiledArrival{
			{Target: 0, Class: "customer", Dist: deterministic(1.0)},
		},
		Routing: [][]float64{
			{0, 1.0},
			{0, 0},
		},
	}

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 1000}, 1)
	require.NoError(t, err)

	front := obs.Metrics["front"]
	back := obs.Metrics["back"]
	assert.InDelta(t, front[sim.MetricThroughput], back[sim.MetricArrivals]/1000, 0.01,
		"front departures should arrive at back")
	assert.Greater(t, back[sim.MetricThroughput], 0.9)
}

func TestSimulate_UnreachableNode_ReportsZeros(t *testing.T) {
	net := &sim.CompiledNetwork{
		Nodes: []sim.CompiledNode{
			{ID: "used", Servers: 1, Capacity: sim.UnboundedCapacity, Service: exponential(2.0)},
			{ID: "island", Servers: 1, Capacity: sim.UnboundedCapacity, Service: exponential(2.0)},
		},
		Arrivals: []sim.CompiledArrival{
			{Target: 0, Class: "customer", Dist: exponential(1.0)},
		},
		Routing: [][]float64{{0, 0}, {0, 0}},
	}

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 500}, 3)
	require.NoError(t, err)

	island, ok := obs.Metrics["island"]
	require.True(t, ok, "unreachable node must still appear in the observation")
	assert.Equal(t, 0.0, island[sim.MetricThroughput])
	assert.Equal(t, 0.0, island[sim.MetricUtilization])
	assert.Equal(t, 0.0, island[sim.MetricArrivals])
}

func TestSimulate_SameSeedIdenticalObservations(t *testing.T) {
	net := singleNode(2, sim.UnboundedCapacity, exponential(1.5), exponential(2.0))

	first, err := New().Simulate(net, sim.RunParams{RunLength: 500, Warmup: 50}, 42)
	require.NoError(t, err)
	second, err := New().Simulate(net, sim.RunParams{RunLength: 500, Warmup: 50}, 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulate_DifferentSeedsDiverge(t *testing.T) {
	net := singleNode(1, sim.UnboundedCapacity, exponential(1.5), exponential(1.0))

	a, err := New().Simulate(net, sim.RunParams{RunLength: 500}, 1)
	require.NoError(t, err)
	b, err := New().Simulate(net, sim.RunParams{RunLength: 500}, 2)
	require.NoError(t, err)

	assert.NotEqual(t, a.Metrics["station"][sim.MetricMeanWait], b.Metrics["station"][sim.MetricMeanWait])
}

func TestSimulate_MMOneUtilizationNearRho(t *testing.T) {
	// M/M/1 with lambda=0.5, mu=1.0: utilization converges to rho=0.5
	net := singleNode(1, sim.UnboundedCapacity, exponential(1.0), exponential(0.5))

	obs, err := New().Simulate(net, sim.RunParams{RunLength: 20000, Warmup: 1000}, 7)
	require.NoError(t, err)

	util := obs.Metrics["station"][sim.MetricUtilization]
	if math.Abs(util-0.5) > 0.05 {
		t.Errorf("utilization = %g, want ~0.5", util)
	}
}

func TestSimulate_InvalidInputs_Rejected(t *testing.T) {
	engine := New()
	valid := singleNode(1, sim.UnboundedCapacity, exponential(1.0), exponential(1.0))

	_, err := engine.Simulate(valid, sim.RunParams{RunLength: 0}, 1)
	assert.Error(t, err, "zero run length")

	_, err = engine.Simulate(valid, sim.RunParams{RunLength: 10, Warmup: 10}, 1)
	assert.Error(t, err, "warmup >= run length")

	_, err = engine.Simulate(&sim.CompiledNetwork{}, sim.RunParams{RunLength: 10}, 1)
	assert.Error(t, err, "empty network")

	broken := singleNode(1, sim.UnboundedCapacity, sim.Dist{Kind: "weibull"}, exponential(1.0))
	_, err = engine.Simulate(broken, sim.RunParams{RunLength: 10}, 1)
	assert.Error(t, err, "unknown service distribution")
}
