package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spkdev/spk/pkg/publish"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/spksync"
)

var publishFrom string

func init() {
	publishCmd.Flags().StringVar(&publishFrom, "from", "", "source repository a build was made in (defaults to the sole enabled repository)")
	for _, c := range []*cobra.Command{publishCmd, deprecateCmd, undeprecateCmd} {
		c.Flags().StringVar(&publishTo, "repo", "", "destination repository (defaults to the sole enabled repository)")
	}
}

// publishCmd copies an already-built package, its recipe, and its
// object graph from one repository to another ( Sync
// Engine, exercised here as the CLI's publish path rather than the
// registry's own proxy-fallback use of it).
var publishCmd = &cobra.Command{
	Use:   "publish name/version/build",
	Short: "copy a built package from a source repository into a destination repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseBuildIdent(args[0])
		if err != nil {
			return err
		}
		src, err := current.repos.find(publishFrom)
		if err != nil {
			return err
		}
		dst, err := current.repos.find(publishTo)
		if err != nil {
			return err
		}

		recipe, err := src.repo.ReadRecipe(ident.VersionIdent)
		if err != nil {
			return fmt.Errorf("spk: publish: %w", err)
		}
		if err := dst.repo.PublishRecipe(recipe, repository.Overwrite); err != nil {
			return fmt.Errorf("spk: publish: %w", err)
		}

		pkg, err := src.repo.ReadPackage(ident)
		if err != nil {
			return fmt.Errorf("spk: publish: %w", err)
		}
		components, err := src.repo.ReadComponents(ident)
		if err != nil {
			return fmt.Errorf("spk: publish: %w", err)
		}

		roots := make([]spksync.Root, 0, len(components))
		for name, d := range components {
			roots = append(roots, spksync.Root{Label: string(name), Digest: d})
		}
		engine := spksync.NewEngine(src.repo, dst.repo, spksync.MissingOnly, spksync.Options{})
		res := engine.Sync(cmd.Context(), roots)
		if err := res.FirstError(); err != nil {
			return fmt.Errorf("spk: publish: sync: %w", err)
		}

		if err := dst.repo.PublishPackage(pkg, components); err != nil {
			return fmt.Errorf("spk: publish: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ident)
		return nil
	},
}

var deprecateCmd = &cobra.Command{
	Use:   "deprecate name/version/build",
	Short: "mark a published build deprecated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseBuildIdent(args[0])
		if err != nil {
			return err
		}
		target, err := publishTarget()
		if err != nil {
			return err
		}
		if err := publish.Deprecate(target.repo, ident); err != nil {
			return fmt.Errorf("spk: deprecate: %w", err)
		}
		return nil
	},
}

var undeprecateCmd = &cobra.Command{
	Use:   "undeprecate name/version/build",
	Short: "clear a published build's deprecated flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseBuildIdent(args[0])
		if err != nil {
			return err
		}
		target, err := publishTarget()
		if err != nil {
			return err
		}
		if err := publish.Undeprecate(target.repo, ident); err != nil {
			return fmt.Errorf("spk: undeprecate: %w", err)
		}
		return nil
	},
}
