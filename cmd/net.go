package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nanokernel/netstack"
)

var netCmd = &cobra.Command{
	Use:   "net",
	Short: "Inspect the network pipeline's routing table",
}

var netRouteLookupCmd = &cobra.Command{
	Use:   "route-lookup <a.b.c.d>",
	Short: "Look up the longest-prefix-match route for an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetRouteLookup,
}

func init() {
	rootCmd.AddCommand(netCmd)
	netCmd.AddCommand(netRouteLookupCmd)
}

func parseIPv4(s string) (netstack.IPv4, error) {
	var a, b, c, d int
	if _, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d); err != nil {
		return netstack.IPv4{}, fmt.Errorf("invalid IPv4 address %q: %w", s, err)
	}
	return netstack.IPv4{byte(a), byte(b), byte(c), byte(d)}, nil
}

func runNetRouteLookup(cmd *cobra.Command, args []string) error {
	addr, err := parseIPv4(args[0])
	if err != nil {
		return err
	}

	routes := netstack.NewTable()
	routes.Add(netstack.Route{Prefix: netstack.IPv4{10, 0, 0, 0}, PrefixLen: 8, InterfaceID: 0, Metric: 10})
	routes.Add(netstack.Route{Prefix: netstack.IPv4{10, 0, 1, 0}, PrefixLen: 24, InterfaceID: 0, Metric: 5})
	routes.Add(netstack.Route{Prefix: netstack.IPv4{0, 0, 0, 0}, PrefixLen: 0, Gateway: netstack.IPv4{10, 0, 0, 1}, InterfaceID: 0, Metric: 100})

	route, err := routes.Lookup(addr)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "PREFIX\tLEN\tGATEWAY\tIFACE\tMETRIC")
	fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n", route.Prefix, route.PrefixLen, route.Gateway, route.InterfaceID, route.Metric)
	return w.Flush()
}
