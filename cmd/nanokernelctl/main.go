// nanokernelctl exercises the nanokernel's core runtime components
// outside of an actual boot: the staged boot pipeline, the adaptive
// scheduler, the POSIX signal subsystem, the virtual memory manager,
// and the network pipeline.
package main

import (
	"fmt"
	"os"

	"nanokernel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
