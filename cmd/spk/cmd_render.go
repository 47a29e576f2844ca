package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/render"
)

var renderRoot string

func init() {
	renderCmd.Flags().StringVar(&publishTo, "repo", "", "repository to render from (defaults to the sole enabled repository)")
	renderCmd.Flags().StringVar(&renderRoot, "render-root", ".spk/render", "directory renders are materialized under")
}

var renderCmd = &cobra.Command{
	Use:   "render ref",
	Short: "materialize a manifest's tree onto disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		d, err := resolveRef(current.repos, args[0])
		if err != nil {
			return err
		}
		obj, err := target.repo.Objects().ReadObject(d)
		if err != nil {
			return fmt.Errorf("spk: render: %w", err)
		}
		manifest, ok := obj.(graph.Manifest)
		if !ok {
			return usagef("spk: render: %s is a %s, not a manifest", d, obj.Kind())
		}

		store := render.New(renderRoot, target.repo.Payloads(), render.Hardlink)
		dir, err := store.Render(d, manifest)
		if err != nil {
			return fmt.Errorf("spk: render: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dir)
		return nil
	},
}
