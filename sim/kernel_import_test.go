package sim_test

// Blank import triggers sim/kernel's init(), which registers NewKernelFunc.
// This allows package sim's internal test files to run the bundled engine
// without directly importing sim/kernel (which would create an import cycle).
import _ "github.com/qnetworks/qnet/sim/kernel"
