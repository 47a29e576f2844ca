package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spkdev/spk/pkg/build"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/publish"
)

var testCmd = &cobra.Command{
	Use:   "test name/version [stage]",
	Short: "run a recipe's test stages (sources, build, install)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseVersionIdent(args[0])
		if err != nil {
			return err
		}
		recipe, _, err := readRecipe(current.repos, ident)
		if err != nil {
			return err
		}

		stages := []pkgmodel.TestStageKind{pkgmodel.TestSources, pkgmodel.TestBuild, pkgmodel.TestInstall}
		if len(args) == 2 {
			stage, err := parseTestStage(args[1])
			if err != nil {
				return err
			}
			stages = []pkgmodel.TestStageKind{stage}
		}

		work, err := os.MkdirTemp("", "spk-test-*")
		if err != nil {
			return fmt.Errorf("spk: %w", err)
		}
		defer os.RemoveAll(work)

		env := build.EnvFromOptions(build.HostOptions())
		for _, stage := range stages {
			if err := publish.RunStage(cmd.Context(), stage, recipe, work, env); err != nil {
				return fmt.Errorf("spk: test %s: %w", stage, err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok", ident)
		return nil
	},
}

func parseTestStage(s string) (pkgmodel.TestStageKind, error) {
	switch pkgmodel.TestStageKind(s) {
	case pkgmodel.TestSources, pkgmodel.TestBuild, pkgmodel.TestInstall:
		return pkgmodel.TestStageKind(s), nil
	default:
		return "", usagef("spk: unknown test stage %q", s)
	}
}
