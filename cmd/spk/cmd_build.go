package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spkdev/spk/pkg/build"
	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/render"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/runtime"
	"github.com/spkdev/spk/pkg/solve"
)

var (
	publishTo string
	withPkgs  []string
	noHostOpt bool
)

func init() {
	for _, c := range []*cobra.Command{makeSourceCmd, makeBinaryCmd, buildCmd} {
		c.Flags().StringVar(&publishTo, "repo", "", "repository to publish into (defaults to the sole enabled repository)")
	}
	for _, c := range []*cobra.Command{makeBinaryCmd, buildCmd} {
		c.Flags().StringArrayVar(&withPkgs, "with", nil, "a build-time package requirement, name[/version] (repeatable)")
		c.Flags().BoolVar(&noHostOpt, "no-host", false, "exclude host-detected options from the given option map")
	}
}

var makeSourceCmd = &cobra.Command{
	Use:   "make-source name/version",
	Short: "collect a recipe's sources into a single committed source build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseVersionIdent(args[0])
		if err != nil {
			return err
		}
		recipe, _, err := readRecipe(current.repos, ident)
		if err != nil {
			return err
		}
		target, err := publishTarget()
		if err != nil {
			return err
		}

		work, err := os.MkdirTemp("", "spk-source-*")
		if err != nil {
			return fmt.Errorf("spk: %w", err)
		}
		defer os.RemoveAll(work)

		sb := &build.SourceBuilder{Objects: target.repo.Objects(), Payloads: target.repo.Payloads()}
		if err := sb.Collect(cmd.Context(), recipe.Sources, work); err != nil {
			return fmt.Errorf("spk: make-source: %w", err)
		}
		treeDigest, err := sb.Commit(work)
		if err != nil {
			return fmt.Errorf("spk: make-source: %w", err)
		}

		pkg := pkgmodel.Package{
			Ident:   pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.SourceBuild},
			Options: pkgmodel.NewOptionMap(),
			Install: recipe.Install,
		}
		components := map[pkgmodel.ComponentName]digest.Digest{pkgmodel.ComponentBuild: treeDigest}
		if err := target.repo.PublishPackage(pkg, components); err != nil {
			return fmt.Errorf("spk: make-source: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), pkg.Ident)
		return nil
	},
}

var makeBinaryCmd = &cobra.Command{
	Use:   "make-binary name/version",
	Short: "build every declared variant of a recipe into published binary packages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseVersionIdent(args[0])
		if err != nil {
			return err
		}
		recipe, _, err := readRecipe(current.repos, ident)
		if err != nil {
			return err
		}
		target, err := publishTarget()
		if err != nil {
			return err
		}

		reqs, err := parsePkgRequests(withPkgs)
		if err != nil {
			return err
		}

		env, err := newEnvironment(target.repo)
		if err != nil {
			return fmt.Errorf("spk: %w", err)
		}

		builder := &build.BinaryPackageBuilder{
			Repo:   target.repo,
			Env:    env,
			Solver: solverFor(current.repos.all()),
			Source: solverFor(current.repos.all()),
			NoHost: noHostOpt,
		}
		pkgs, err := builder.Build(cmd.Context(), recipe, build.BuildRequest{
			Options:       pkgmodel.NewOptionMap(),
			BuildRequests: reqs,
		})
		if err != nil {
			return fmt.Errorf("spk: make-binary: %w", err)
		}
		for _, p := range pkgs {
			fmt.Fprintln(cmd.OutOrStdout(), p.Ident)
		}
		return nil
	},
}

// buildCmd composes make-source then make-binary, the common case of
// "build this recipe from scratch".
var buildCmd = &cobra.Command{
	Use:   "build name/version",
	Short: "make-source then make-binary for a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := makeSourceCmd.RunE(cmd, args); err != nil {
			return err
		}
		return makeBinaryCmd.RunE(cmd, args)
	},
}

func parsePkgRequests(args []string) ([]pkgmodel.PkgRequest, error) {
	out := make([]pkgmodel.PkgRequest, 0, len(args))
	for _, a := range args {
		req, err := parsePkgRequest(a)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func publishTarget() (namedRepo, error) {
	return current.repos.find(publishTo)
}

func readRecipe(rs *repoSet, ident pkgmodel.VersionIdent) (pkgmodel.Recipe, namedRepo, error) {
	for _, e := range rs.entries {
		recipe, err := e.repo.ReadRecipe(ident)
		if err == nil {
			return recipe, e, nil
		}
		var unknown repository.ErrUnknownRecipe
		if !errorsAsUnknownRecipe(err, &unknown) {
			return pkgmodel.Recipe{}, namedRepo{}, err
		}
	}
	return pkgmodel.Recipe{}, namedRepo{}, repository.ErrUnknownRecipe{Ident: ident}
}

func errorsAsUnknownRecipe(err error, target *repository.ErrUnknownRecipe) bool {
	u, ok := err.(repository.ErrUnknownRecipe)
	if ok {
		*target = u
	}
	return ok
}

func solverFor(repos []repository.Repository) *solve.Solver {
	return solve.NewSolver(func(name pkgmodel.PkgName) (solve.PackageIterator, error) {
		return solve.NewRepositoryIterator(name, repos), nil
	})
}

// newEnvironment builds the overlay build environment a recipe's
// scripts execute in, rooted in a fresh process-temp directory
// ("spk-runtime-*") whatever kind of repository repo is.
func newEnvironment(repo repository.Repository) (build.Environment, error) {
	root, err := os.MkdirTemp("", "spk-runtime-*")
	if err != nil {
		return nil, err
	}
	renderRoot := filepath.Join(root, "render")
	mounter := runtime.NewOverlayMounter(filepath.Join(root, "overlay"))
	store := render.New(renderRoot, repo.Payloads(), render.Hardlink)
	return build.NewOverlayEnvironment(mounter, store, repo.Objects()), nil
}
