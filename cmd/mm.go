package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nanokernel/mm"
)

var mmAllocSize uint64

var mmCmd = &cobra.Command{
	Use:   "mm",
	Short: "Inspect the boot-time dual-level allocator",
}

var mmAllocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Allocate and free a block, reporting the returned offset and utilization",
	Args:  cobra.NoArgs,
	RunE:  runMMAlloc,
}

func init() {
	rootCmd.AddCommand(mmCmd)
	mmCmd.AddCommand(mmAllocCmd)

	mmAllocCmd.Flags().Uint64Var(&mmAllocSize, "size", 64, "allocation size in bytes")
}

func runMMAlloc(cmd *cobra.Command, args []string) error {
	a := mm.NewAllocator()

	offset, err := a.Alloc(mmAllocSize)
	if err != nil {
		return err
	}
	fmt.Printf("allocated %d bytes at offset 0x%x (aligned to %d)\n", mmAllocSize, offset, mm.HeapAlign)
	fmt.Printf("utilization: %.4f%%\n", a.Utilization())

	a.Dealloc(offset, mmAllocSize)
	fmt.Printf("freed; free-list size: %d\n", a.FreeListSize())
	return nil
}
