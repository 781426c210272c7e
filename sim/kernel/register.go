// register.go wires the bundled engine into the sim package's registration
// variable (NewKernelFunc). This init() runs when any package imports
// sim/kernel, breaking the import cycle between sim/ (interface owner) and
// sim/kernel/ (implementation). Production code imports sim/kernel
// directly; test code in package sim uses kernel_import_test.go for the
// blank import.
package kernel

import "github.com/qnetworks/qnet/sim"

func init() {
	sim.NewKernelFunc = func() sim.Kernel {
		return New()
	}
}
