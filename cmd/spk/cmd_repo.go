package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

// repoCmd and its subcommands are thin callers into the Repository
// interface's listing/read calls.
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "inspect a configured repository's packages and recipes",
}

func init() {
	for _, c := range []*cobra.Command{repoLsCmd, repoSearchCmd, repoViewCmd, repoExportCmd, repoImportCmd} {
		c.Flags().StringVar(&publishTo, "repo", "", "repository to operate on (defaults to the sole enabled repository)")
	}
	repoCmd.AddCommand(repoLsCmd, repoSearchCmd, repoViewCmd, repoExportCmd, repoImportCmd)
}

var repoLsCmd = &cobra.Command{
	Use:   "ls [name[/version]]",
	Short: "list packages, or a package's versions, or a version's builds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			names, err := target.repo.ListPackages()
			if err != nil {
				return fmt.Errorf("spk: repo ls: %w", err)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		}
		if !strings.Contains(args[0], "/") {
			name, err := pkgmodel.ParsePkgName(args[0])
			if err != nil {
				return usagef("spk: %w", err)
			}
			versions, err := target.repo.ListPackageVersions(name)
			if err != nil {
				return fmt.Errorf("spk: repo ls: %w", err)
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		}
		ident, err := parseVersionIdent(args[0])
		if err != nil {
			return err
		}
		builds, err := target.repo.ListPackageBuilds(ident)
		if err != nil {
			return fmt.Errorf("spk: repo ls: %w", err)
		}
		for _, b := range builds {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	},
}

var repoSearchCmd = &cobra.Command{
	Use:   "search substring",
	Short: "search package names for a substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		names, err := target.repo.ListPackages()
		if err != nil {
			return fmt.Errorf("spk: repo search: %w", err)
		}
		for _, n := range names {
			if strings.Contains(string(n), args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		}
		return nil
	},
}

var repoViewCmd = &cobra.Command{
	Use:   "view name/version[/build]",
	Short: "print a recipe or a published build as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		return viewOrExport(cmd.OutOrStdout(), target, args[0])
	},
}

var repoExportCmd = &cobra.Command{
	Use:   "export name/version[/build]",
	Short: "alias for view; writes a recipe or build as YAML to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		return viewOrExport(cmd.OutOrStdout(), target, args[0])
	},
}

func viewOrExport(out interface{ Write([]byte) (int, error) }, target namedRepo, arg string) error {
	if strings.Count(arg, "/") >= 2 {
		ident, err := parseBuildIdent(arg)
		if err != nil {
			return err
		}
		pkg, err := target.repo.ReadPackage(ident)
		if err != nil {
			return fmt.Errorf("spk: %w", err)
		}
		return yamlWrite(out, pkg)
	}
	ident, err := parseVersionIdent(arg)
	if err != nil {
		return err
	}
	recipe, err := target.repo.ReadRecipe(ident)
	if err != nil {
		return fmt.Errorf("spk: %w", err)
	}
	return yamlWrite(out, recipe)
}

func yamlWrite(out interface{ Write([]byte) (int, error) }, v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("spk: %w", err)
	}
	_, err = out.Write(b)
	return err
}

var repoImportCmd = &cobra.Command{
	Use:   "import path",
	Short: "publish a recipe read from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := publishTarget()
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("spk: repo import: %w", err)
		}
		var recipe pkgmodel.Recipe
		if err := yaml.Unmarshal(raw, &recipe); err != nil {
			return usagef("spk: repo import: %w", err)
		}
		if err := target.repo.PublishRecipe(recipe, repository.Overwrite); err != nil {
			return fmt.Errorf("spk: repo import: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), recipe.Ident)
		return nil
	},
}
