package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/spkdev/spk/pkg/build"
)

var envRepo string

func init() {
	for _, c := range []*cobra.Command{envCmd, runCmd} {
		c.Flags().StringVar(&envRepo, "repo", "", "repository the environment's packages are read from")
	}
}

// envCmd and runCmd both resolve an EnvSpec (
// "EnvSpec := Item (\"+\" Item)*") to a stack of manifests, enter an
// overlay environment over them, and run a process with that
// environment's merged directory as its working directory (the process
// is not chrooted into it): envCmd drops into an
// interactive shell, runCmd execs the given command directly.
var envCmd = &cobra.Command{
	Use:   "env envspec",
	Short: "enter an interactive shell inside a resolved package environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enterAndExec(args[0], []string{shellCommand()})
	},
}

var runCmd = &cobra.Command{
	Use:   "run envspec -- command [args...]",
	Short: "run a command inside a resolved package environment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enterAndExec(args[0], args[1:])
	},
}

func shellCommand() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func enterAndExec(envSpec string, command []string) error {
	target, err := current.repos.find(envRepo)
	if err != nil {
		return err
	}
	stack, err := resolveEnvSpec(current.repos, envSpec)
	if err != nil {
		return err
	}

	env, err := newEnvironment(target.repo)
	if err != nil {
		return fmt.Errorf("spk: %w", err)
	}
	mount, err := env.Enter(stack)
	if err != nil {
		return fmt.Errorf("spk: env: %w", err)
	}
	defer env.Exit()

	opts := build.HostOptions()
	cmdEnv := append(os.Environ(), build.EnvFromOptions(opts)...)

	c := exec.Command(command[0], command[1:]...)
	c.Dir = mount.MergedDir
	c.Env = cmdEnv
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return err
	}
	return nil
}
