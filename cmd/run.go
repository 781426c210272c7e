package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetworks/qnet/sim"
	"github.com/qnetworks/qnet/sim/kernel"
	"github.com/qnetworks/qnet/sim/schema"
)

var (
	// CLI flags for the replication run
	replications int           // Number of independent replications
	runLength    float64       // Simulated duration of one replication
	warmup       float64       // Initial duration excluded from statistics
	seed         int64         // Base seed for deterministic replication seeds
	entropySeeds bool          // Draw replication seeds from system entropy instead
	workers      int           // Parallel replication workers (0/1 = sequential)
	timeout      time.Duration // Wall-clock budget per replication (0 = none)
	settingsPath string        // Optional YAML run settings file
)

// runCmd executes the full pipeline: validate, compile, replicate, aggregate.
var runCmd = &cobra.Command{
	Use:   "run <model.json>",
	Short: "Simulate a process model and print aggregated results",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		model := loadModelOrExit(args[0])

		settings := sim.RunSettings{
			Replications:       replications,
			RunLength:          runLength,
			Warmup:             warmup,
			Workers:            workers,
			ReplicationTimeout: timeout,
		}
		var seeds sim.SeedStrategy = sim.FixedSeeds{Base: seed}
		if settingsPath != "" {
			file, err := LoadSettings(settingsPath)
			if err != nil {
				logrus.Fatalf("unable to read run settings: %v", err)
			}
			settings = file.RunSettings
			seeds = file.SeedStrategy()
		} else if entropySeeds {
			seeds = sim.EntropySeeds{}
		}

		network, err := sim.Compile(model)
		if err != nil {
			logrus.Fatalf("compiling model: %v", err)
		}

		logrus.Infof("starting %d replication(s), run length %g, warmup %g",
			settings.Replications, settings.RunLength, settings.Warmup)
		startTime := time.Now()

		runner, err := sim.NewRunner(settings, seeds, func() sim.Kernel { return kernel.New() })
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		observations, failed, err := runner.Run(network)
		if err != nil {
			logrus.Fatalf("simulation run failed: %v", err)
		}

		report := sim.Aggregate(observations)
		report.Failures = failed
		fmt.Print(report.Table(network.NodeIDs()))

		logrus.Infof("simulation complete in %s", time.Since(startTime))
	},
}

// loadModelOrExit loads and validates a model file, printing every
// validation error before exiting on failure.
func loadModelOrExit(path string) *schema.ProcessModel {
	model, err := schema.LoadModelFile(path)
	if err != nil {
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				fmt.Printf("  %s\n", ve)
			}
			logrus.Fatalf("%s: %d validation error(s)", path, len(verrs))
		}
		logrus.Fatalf("%v", err)
	}
	return model
}

func init() {
	runCmd.Flags().IntVar(&replications, "replications", 10, "Number of independent replications")
	runCmd.Flags().Float64Var(&runLength, "run-length", 1000, "Simulated duration of one replication")
	runCmd.Flags().Float64Var(&warmup, "warmup", 0, "Initial simulated duration excluded from statistics")
	runCmd.Flags().Int64Var(&seed, "seed", sim.DefaultSeed, "Base seed for deterministic replication seeds")
	runCmd.Flags().BoolVar(&entropySeeds, "entropy-seeds", false, "Draw replication seeds from system entropy (not reproducible)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Parallel replication workers (0 or 1 = sequential)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Wall-clock budget per replication (0 = unlimited)")
	runCmd.Flags().StringVar(&settingsPath, "settings", "", "YAML run settings file (overrides run flags)")
	rootCmd.AddCommand(runCmd)
}
