// Package sim turns validated process models into runnable queueing-network
// simulations and aggregates their results.
//
// # Reading Guide
//
// Start with these three files to understand the pipeline:
//   - compile.go: ProcessModel -> CompiledNetwork translation (index-addressed)
//   - runner.go: replication fan-out over the Kernel collaborator
//   - summary.go: cross-replication aggregation into a SummaryReport
//
// # Architecture
//
// The sim package owns the pipeline types and the Kernel interface;
// implementations live in sub-packages:
//   - sim/schema/: JSON parsing and validation (the only untrusted boundary)
//   - sim/kernel/: the bundled network-of-queues simulation engine
//   - sim/diagram/: Mermaid flowchart rendering of validated models
//
// sim/kernel registers its constructor via an init() function that sets the
// package-level factory variable NewKernelFunc, breaking the import cycle
// between sim/ (interface owner) and sim/kernel/ (implementation).
//
// Data flows one way: schema.ProcessModel -> Compile -> CompiledNetwork ->
// Runner.Run (one Kernel.Simulate call per replication) -> []Observation ->
// Aggregate -> SummaryReport. Replications share nothing but read-only
// access to the CompiledNetwork, so the Runner may fan them out across
// workers without extra synchronization.
package sim
