package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/philjestin/routegen/internal/generate"
)

var routesCheck bool

// routesCmd prints the route table a pass would produce, without writing anything.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the resolved route table and any path conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gen, err := a.generator()
		if err != nil {
			return err
		}
		plan, err := gen.Plan(cmd.Context())
		if err != nil {
			return err
		}

		printPlan(os.Stdout, plan, a.cfg.AutoRoute.Dir)
		if routesCheck && len(plan.Conflicts) > 0 {
			return fmt.Errorf("%d route path conflict(s)", len(plan.Conflicts))
		}
		return nil
	},
}

func printPlan(w io.Writer, plan generate.Plan, root string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tTITLE\tFILE")
	for _, d := range plan.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Path, d.Name, d.Title, relTo(root, d.File))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%s %s\n", cyan("routes:"), green(len(plan.Routes)))
	if len(plan.Conflicts) == 0 {
		fmt.Fprintln(w, gray("no conflicts"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", cyan("conflicts:"), red(len(plan.Conflicts)))
	for _, c := range plan.Conflicts {
		if c.Name != "" {
			fmt.Fprintf(w, "  %s %s kept, %s (%s) dropped\n", red("name "+c.Name), relTo(root, c.Kept), relTo(root, c.Dropped), c.Path)
			continue
		}
		fmt.Fprintf(w, "  %s %s kept, %s dropped\n", red(c.Path), relTo(root, c.Kept), relTo(root, c.Dropped))
	}
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().BoolVar(&routesCheck, "check", false, "exit non-zero when two files map to the same path")
}
