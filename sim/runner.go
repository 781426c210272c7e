package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Observation holds one replication's raw per-node metrics, keyed by node
// identifier then metric name. Observations are ephemeral: the Runner
// produces them, Aggregate consumes them, nothing retains them.
type Observation struct {
	Metrics map[string]map[string]float64
}

// RunParams carries the per-replication horizon to the kernel.
type RunParams struct {
	RunLength float64 // total simulated duration
	Warmup    float64 // initial duration excluded from recorded metrics
}

// Kernel is the simulation collaborator: one Simulate call runs one
// replication over a compiled network. Implementations must treat net as
// read-only and derive all randomness from seed, so that replications can
// run in parallel on private kernel instances.
//
// The bundled implementation lives in sim/kernel; tests substitute stubs.
type Kernel interface {
	Simulate(net *CompiledNetwork, run RunParams, seed int64) (Observation, error)
}

// KernelFactory constructs a private kernel instance for one worker.
type KernelFactory func() Kernel

// NewKernelFunc is the registration point for the default kernel factory.
// The sim/kernel package sets it from an init() function; importing that
// package (directly or blank) is what makes NewRunner work without an
// explicit factory.
var NewKernelFunc KernelFactory

// RunSettings configures a replication run.
type RunSettings struct {
	Replications int     `yaml:"replications" validate:"gte=1"`
	RunLength    float64 `yaml:"run_length" validate:"gt=0"`
	Warmup       float64 `yaml:"warmup" validate:"gte=0,ltfield=RunLength"`

	// Workers caps parallel replications; 0 or 1 means sequential.
	Workers int `yaml:"workers" validate:"gte=0"`

	// ReplicationTimeout bounds one replication's wall-clock time.
	// Zero disables the bound. A replication exceeding it is recorded
	// as failed, never resumed.
	ReplicationTimeout time.Duration `yaml:"replication_timeout" validate:"gte=0"`
}

var settingsValidator = validator.New()

// Validate checks the settings' field domains.
func (s *RunSettings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid run settings: %w", err)
	}
	return nil
}

// ReplicationFailure records one failed replication. Failures are locally
// recovered: the replication is excluded from aggregation and counted.
type ReplicationFailure struct {
	Index int
	Err   error
}

func (e *ReplicationFailure) Error() string {
	return fmt.Sprintf("replication %d failed: %v", e.Index, e.Err)
}

func (e *ReplicationFailure) Unwrap() error {
	return e.Err
}

// NoSuccessfulReplicationsError is the fatal outcome of a run in which
// every replication failed.
type NoSuccessfulReplicationsError struct {
	Attempted int
}

func (e *NoSuccessfulReplicationsError) Error() string {
	return fmt.Sprintf("all %d replications failed", e.Attempted)
}

// Runner drives N independent simulation replications of a compiled
// network and collects their observations.
type Runner struct {
	settings RunSettings
	seeds    SeedStrategy
	factory  KernelFactory
}

// NewRunner builds a Runner. A nil seeds falls back to FixedSeeds with
// DefaultSeed; a nil factory falls back to the registered default kernel.
func NewRunner(settings RunSettings, seeds SeedStrategy, factory KernelFactory) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if seeds == nil {
		seeds = FixedSeeds{Base: DefaultSeed}
	}
	if factory == nil {
		factory = NewKernelFunc
	}
	if factory == nil {
		return nil, fmt.Errorf("no kernel factory: pass one or import the sim/kernel package")
	}
	return &Runner{settings: settings, seeds: seeds, factory: factory}, nil
}

// Run simulates every replication and returns the successful observations
// in replication order, alongside the failed-replication count. Failed
// replications are excluded and logged; if none succeed the whole run
// fails with NoSuccessfulReplicationsError.
func (r *Runner) Run(net *CompiledNetwork) ([]Observation, int, error) {
	n := r.settings.Replications
	run := RunParams{RunLength: r.settings.RunLength, Warmup: r.settings.Warmup}

	type outcome struct {
		obs Observation
		err error
	}
	outcomes := make([]outcome, n)

	work := func(i int) {
		kernel := r.factory()
		obs, err := r.simulateOne(kernel, net, run, r.seeds.Seed(i))
		outcomes[i] = outcome{obs: obs, err: err}
	}

	if workers := r.settings.Workers; workers > 1 {
		// Pure data-parallel map: replications share only read-only
		// access to net, each worker gets a private kernel and seed.
		idx := make(chan int)
		var wg sync.WaitGroup
		if workers > n {
			workers = n
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idx {
					work(i)
				}
			}()
		}
		for i := 0; i < n; i++ {
			idx <- i
		}
		close(idx)
		wg.Wait()
	} else {
		for i := 0; i < n; i++ {
			work(i)
		}
	}

	observations := make([]Observation, 0, n)
	failed := 0
	for i, out := range outcomes {
		if out.err != nil {
			failed++
			failure := &ReplicationFailure{Index: i, Err: out.err}
			logrus.Warnf("%v", failure)
			continue
		}
		observations = append(observations, out.obs)
	}

	if len(observations) == 0 {
		return nil, failed, &NoSuccessfulReplicationsError{Attempted: n}
	}
	logrus.Infof("completed %d/%d replications (%d failed)", len(observations), n, failed)
	return observations, failed, nil
}

// simulateOne runs a single replication, applying the per-replication
// timeout when configured.
func (r *Runner) simulateOne(kernel Kernel, net *CompiledNetwork, run RunParams, seed int64) (Observation, error) {
	timeout := r.settings.ReplicationTimeout
	if timeout <= 0 {
		return kernel.Simulate(net, run, seed)
	}

	type outcome struct {
		obs Observation
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		obs, err := kernel.Simulate(net, run, seed)
		done <- outcome{obs: obs, err: err}
	}()

	select {
	case out := <-done:
		return out.obs, out.err
	case <-time.After(timeout):
		// The kernel goroutine keeps running until its horizon; its
		// eventual result is discarded via the buffered channel.
		return Observation{}, fmt.Errorf("replication exceeded time budget %s", timeout)
	}
}
