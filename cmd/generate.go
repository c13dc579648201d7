package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/philjestin/routegen/internal/emit"
)

var generateDryRun bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation pass and write the route artifacts",
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

		if generateDryRun {
			plan, err := gen.Plan(cmd.Context())
			if err != nil {
				return err
			}
			set, err := emit.Render(plan.Routes, a.cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(set.Routes.Content)
			return err
		}

		res, err := gen.Run(cmd.Context())
		if err != nil {
			return err
		}
		if len(res.Outcome.Written) == 0 {
			fmt.Fprintf(os.Stderr, "%d routes, artifacts up to date\n", len(res.Routes))
			return nil
		}
		for _, p := range res.Outcome.Paths() {
			fmt.Fprintf(os.Stderr, "wrote %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "print the routes artifact to stdout instead of writing files")
}
