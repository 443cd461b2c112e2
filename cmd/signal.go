package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nanokernel/signal"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Drive the POSIX real-time signal subsystem",
}

var (
	sigQueuePID   uint64
	sigQueueSigno int
	sigQueueValue int32
)

var signalSigqueueCmd = &cobra.Command{
	Use:   "sigqueue <pid>",
	Short: "Queue a signal to pid and immediately drain it with sigwaitinfo",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignalDemo,
}

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.AddCommand(signalSigqueueCmd)

	signalSigqueueCmd.Flags().IntVar(&sigQueueSigno, "signo", signal.SIGRTMIN, "signal number to queue")
	signalSigqueueCmd.Flags().Int32Var(&sigQueueValue, "value", 0, "sival payload")
}

func runSignalDemo(cmd *cobra.Command, args []string) error {
	var pid uint64
	if _, err := fmt.Sscanf(args[0], "%d", &pid); err != nil {
		return fmt.Errorf("invalid pid %q: %w", args[0], err)
	}

	reg := signal.NewRegistry()
	reg.Register(pid)

	if err := reg.Sigqueue(0, pid, sigQueueSigno, signal.SigVal{Int: sigQueueValue}, 0); err != nil {
		return err
	}

	set := signal.EmptySet.Add(sigQueueSigno)
	info, err := reg.Sigwaitinfo(pid, set)
	if err != nil {
		return err
	}

	fmt.Printf("delivered signo=%d sender_pid=%d sival=%d\n", info.Signo, info.SenderPID, info.Value.Int)
	return nil
}
