package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nanokernel/sched"
)

var schedCmd = &cobra.Command{
	Use:   "sched",
	Short: "Drive the adaptive scheduler",
}

var schedDemoPriorities []string

var schedDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Add one task per given priority class and show which one dispatches first",
	Args:  cobra.NoArgs,
	RunE:  runSchedDemo,
}

func init() {
	rootCmd.AddCommand(schedCmd)
	schedCmd.AddCommand(schedDemoCmd)

	schedDemoCmd.Flags().StringSliceVar(&schedDemoPriorities, "priority", []string{"low", "normal", "high", "realtime"},
		"priority classes to add, in task-creation order")
}

func parsePriority(s string) (sched.Priority, error) {
	switch s {
	case "realtime":
		return sched.Realtime, nil
	case "high":
		return sched.High, nil
	case "normal":
		return sched.Normal, nil
	case "low":
		return sched.Low, nil
	case "idle":
		return sched.Idle, nil
	default:
		return 0, fmt.Errorf("unknown priority class %q", s)
	}
}

func runSchedDemo(cmd *cobra.Command, args []string) error {
	s := sched.New()

	for i, name := range schedDemoPriorities {
		p, err := parsePriority(name)
		if err != nil {
			return err
		}
		if _, err := s.AddTask(fmt.Sprintf("task-%d", i), p); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "CPU\tDISPATCHED\tPRIORITY\tSTATE")
	t := s.Dispatch(0)
	if t != nil {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", 0, t.Name, t.CurrentPriority, t.State)
	} else {
		fmt.Fprintln(w, "0\t<idle>\t-\t-")
	}
	return w.Flush()
}
