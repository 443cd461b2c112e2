package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nanokernel/sched"
)

var watchTicks int

var schedWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a few scheduler ticks, refreshing a live view on a real terminal",
	Args:  cobra.NoArgs,
	RunE:  runSchedWatch,
}

func init() {
	schedCmd.AddCommand(schedWatchCmd)
	schedWatchCmd.Flags().IntVar(&watchTicks, "ticks", 5, "number of scheduler ticks to run")
}

// isLiveTerminal reports whether stdout is an interactive terminal wide
// enough for the refreshing view that clears the screen before each tick
// line; a piped/redirected stdout (e.g. in CI) gets the tick lines one
// after another.
func isLiveTerminal() bool {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return false
	}
	width, _, err := term.GetSize(fd)
	return err == nil && width >= 40
}

func runSchedWatch(cmd *cobra.Command, args []string) error {
	s := sched.New()
	s.AddTask("low", sched.Low)
	s.AddTask("normal", sched.Normal)
	s.AddTask("rt", sched.Realtime)

	live := isLiveTerminal()
	clear := ""
	if live {
		clear = "\033[2J\033[H"
	}

	var elapsed time.Duration
	for i := 0; i < watchTicks; i++ {
		t := s.Dispatch(0)
		elapsed += 10 * time.Millisecond
		s.Tick(0, elapsed)

		if live {
			fmt.Fprint(os.Stdout, clear)
		}
		if t != nil {
			fmt.Fprintf(os.Stdout, "tick %d: running=%s priority=%s slice=%s\n", i, t.Name, t.CurrentPriority, t.TimeSlice)
		} else {
			fmt.Fprintf(os.Stdout, "tick %d: <idle>\n", i)
		}
	}
	return nil
}
