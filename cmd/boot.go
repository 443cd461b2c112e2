package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nanokernel/boot"
)

var bootCmdline string

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Run the staged boot pipeline and print the resulting BootInfo",
	Args:  cobra.NoArgs,
	RunE:  runBoot,
}

func init() {
	rootCmd.AddCommand(bootCmd)
	bootCmd.Flags().StringVar(&bootCmdline, "cmdline", "quiet", "kernel command line")
}

func runBoot(cmd *cobra.Command, args []string) error {
	detector := boot.SimulatedHardwareDetector{Info: boot.DefaultHardwareInfo()}
	loader := boot.DefaultKernelLoader()
	pub := boot.NewRecordingPublisher()
	orch := boot.NewOrchestrator(detector, loader, pub)

	info, err := orch.Boot(boot.ProtocolBIOS, bootCmdline)
	if err != nil {
		st := orch.State()
		fmt.Fprintf(os.Stderr, "boot failed at stage %s: %v\n", st.Stage, err)
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		return err
	}

	for _, ev := range pub.Events() {
		fmt.Fprintf(os.Stderr, "[boot] event=%d stage=%s detail=%s\n", ev.Kind, ev.Stage, ev.Detail)
	}
	return nil
}
