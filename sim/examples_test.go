// End-to-end scenarios over the full pipeline: JSON document -> schema
// validation -> compilation -> replication run -> aggregated report.
// The bundled engine is registered by the blank import in
// kernel_import_test.go.

package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/qnet/sim/schema"
)

// mmOneJSON is a single-node M/M/1 model: one server, unbounded queue,
// exponential service and arrivals, no routing.
const mmOneJSON = `{
	"name": "mm1",
	"nodes": [
		{"id": "station", "servers": 1, "service": {"dist": "exponential", "rate": 1.0}}
	],
	"arrivals": [
		{"target": "station", "distribution": {"dist": "exponential", "rate": 0.5}}
	]
}`

func TestEndToEnd_MMOne_TenReplications(t *testing.T) {
	// GIVEN a validated and compiled M/M/1 model
	model, err := schema.ParseModel([]byte(mmOneJSON))
	require.NoError(t, err)
	network, err := Compile(model)
	require.NoError(t, err)

	// WHEN run for 10 replications of length 1000 with warmup 100
	runner, err := NewRunner(RunSettings{
		Replications: 10,
		RunLength:    1000,
		Warmup:       100,
	}, FixedSeeds{Base: 42}, nil)
	require.NoError(t, err)

	observations, failed, err := runner.Run(network)
	require.NoError(t, err)
	require.Equal(t, 0, failed)

	report := Aggregate(observations)

	// THEN the report has exactly one node entry with count 10 and a
	// utilization strictly between 0 and 1
	require.Len(t, report.Nodes, 1)
	util := report.Nodes["station"][MetricUtilization]
	assert.Equal(t, 10, util.Count)
	assert.Greater(t, util.Mean, 0.0)
	assert.Less(t, util.Mean, 1.0)
	require.NotNil(t, util.StdErr)

	// lambda/mu = 0.5; ten replications of length 1000 land close
	assert.InDelta(t, 0.5, util.Mean, 0.1)
}

func TestEndToEnd_IdenticalSeedStrategy_ReproducesReport(t *testing.T) {
	model, err := schema.ParseModel([]byte(mmOneJSON))
	require.NoError(t, err)
	network, err := Compile(model)
	require.NoError(t, err)

	runOnce := func() *SummaryReport {
		runner, err := NewRunner(RunSettings{Replications: 5, RunLength: 500, Warmup: 50},
			FixedSeeds{Base: 7}, nil)
		require.NoError(t, err)
		obs, _, err := runner.Run(network)
		require.NoError(t, err)
		return Aggregate(obs)
	}

	assert.Equal(t, runOnce(), runOnce())
}

func TestEndToEnd_ParallelWorkers_SameReportAsSequential(t *testing.T) {
	model, err := schema.ParseModel([]byte(mmOneJSON))
	require.NoError(t, err)
	network, err := Compile(model)
	require.NoError(t, err)

	runWith := func(workers int) *SummaryReport {
		runner, err := NewRunner(RunSettings{Replications: 8, RunLength: 300, Workers: workers},
			FixedSeeds{Base: 11}, nil)
		require.NoError(t, err)
		obs, _, err := runner.Run(network)
		require.NoError(t, err)
		return Aggregate(obs)
	}

	assert.Equal(t, runWith(0), runWith(4))
}

func TestEndToEnd_CallCentreModel_RoutedNodeReceivesTraffic(t *testing.T) {
	// Operator service with a 40% nurse callback, mirroring the shape of
	// a small call centre: source -> operator -> {nurse | exit}.
	const callCentreJSON = `{
		"name": "call centre",
		"nodes": [
			{"id": "operator", "servers": 13, "service": {"dist": "exponential", "rate": 0.25}},
			{"id": "nurse", "servers": 9, "service": {"dist": "exponential", "rate": 0.12}}
		],
		"arrivals": [
			{"target": "operator", "distribution": {"dist": "exponential", "rate": 1.6}, "class": "caller"}
		],
		"routing": {
			"operator": [
				{"to": "nurse", "probability": 0.4},
				{"to": "exit", "probability": 0.6}
			]
		}
	}`

	model, err := schema.ParseModel([]byte(callCentreJSON))
	require.NoError(t, err)
	network, err := Compile(model)
	require.NoError(t, err)

	runner, err := NewRunner(RunSettings{Replications: 5, RunLength: 2000, Warmup: 200},
		FixedSeeds{Base: 1}, nil)
	require.NoError(t, err)
	obs, failed, err := runner.Run(network)
	require.NoError(t, err)
	require.Equal(t, 0, failed)

	report := Aggregate(obs)
	require.Len(t, report.Nodes, 2)

	operator := report.Nodes["operator"]
	nurse := report.Nodes["nurse"]
	require.Greater(t, operator[MetricThroughput].Mean, 0.0)
	require.Greater(t, nurse[MetricArrivals].Mean, 0.0)

	// roughly 40% of operator departures continue to the nurse
	window := 2000.0 - 200.0
	ratio := nurse[MetricArrivals].Mean / (operator[MetricThroughput].Mean * window)
	assert.InDelta(t, 0.4, ratio, 0.05)
}

func TestEndToEnd_ValidationFailure_NoCompilation(t *testing.T) {
	// Scenario: arrival target never declared
	raw := []byte(`{
		"nodes": [{"id": "A", "service": {"dist": "exponential", "rate": 1.0}}],
		"arrivals": [{"target": "Z", "distribution": {"dist": "exponential", "rate": 1.0}}]
	}`)

	model, err := schema.ParseModel(raw)
	require.Nil(t, model)

	var verrs schema.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, schema.KindReference, verrs[0].Kind)
}
