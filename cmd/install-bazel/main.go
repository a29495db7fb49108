// Package main provides the install-bazel CLI, which bootstraps the
// pinned bazelisk launcher and buildozer onto a local bin directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"buildtools/internal/install"
	"buildtools/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "install-bazel",
	Short: "Install the pinned bazelisk launcher and buildozer",
	Long:  `install-bazel downloads the pinned bazelisk and buildozer binaries for this platform, verifies bazelisk against its pinned SHA-256 digest, and symlinks bazel to bazelisk.`,
	RunE:  runInstall,
}

var (
	binDir          string
	addBazelSymlink bool
	logLevel        string
)

func init() {
	rootCmd.Flags().StringVar(&binDir, "bin-dir", "", "Directory to install binaries into (defaults to ~/.local/bin)")
	rootCmd.Flags().BoolVar(&addBazelSymlink, "add-bazel-symlink", true, "Symlink bazel to the installed bazelisk")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInstall(cmd *cobra.Command, args []string) error {
	log := logger.New(logLevel)

	if binDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		binDir = filepath.Join(home, ".local", "bin")
	}
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}

	installer := install.NewInstaller(runtime.GOOS, runtime.GOARCH, log)

	if _, err := installer.InstallBuildozer(binDir); err != nil {
		return err
	}

	bazeliskPath, err := installer.InstallBazelisk(binDir)
	if err != nil {
		return err
	}
	if bazeliskPath == "" || !addBazelSymlink {
		return nil
	}

	symlinkPath, err := installer.CreateBazelSymlink(binDir)
	if err != nil {
		return err
	}

	installer.CheckPath(os.Stdout, symlinkPath)
	return nil
}
