// Package main provides the evg-git CLI, which resolves the diff
// baseline for the current build and lists the files changed since
// it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"buildtools/internal/changed"
	"buildtools/internal/gitio"
	"buildtools/internal/logger"
	"buildtools/internal/pathfilter"
)

var rootCmd = &cobra.Command{
	Use:   "evg-git",
	Short: "Resolve the diff baseline and changed files for a build",
	Long:  `evg-git computes the baseline revision an incremental build should diff against (the upstream merge-base locally, the expansions revision or the parent commit in CI) and lists the files changed since it.`,
}

var diffRevisionCmd = &cobra.Command{
	Use:   "diff-revision",
	Short: "Print the baseline revision for diffing",
	RunE:  runDiffRevision,
}

var changedFilesCmd = &cobra.Command{
	Use:   "changed-files",
	Short: "Print the files changed since the baseline",
	RunE:  runChangedFiles,
}

var newFilesCmd = &cobra.Command{
	Use:   "new-files",
	Short: "Print the files added, renamed, or copied since the baseline",
	RunE:  runNewFiles,
}

var showCmd = &cobra.Command{
	Use:   "show <revision> <path>",
	Short: "Print a file's content as it existed at a revision",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var (
	repoPath       string
	logLevel       string
	expansionsFile string
	branch         string
	diffFilter     string
	patterns       []string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "Path to the Git repository")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	for _, cmd := range []*cobra.Command{diffRevisionCmd, changedFilesCmd, newFilesCmd} {
		cmd.Flags().StringVar(&expansionsFile, "expansions-file", "", "Path to the CI expansions file (empty means not in CI)")
		cmd.Flags().StringVar(&branch, "branch", "", "Upstream branch to diff against (defaults to main or master)")
	}
	changedFilesCmd.Flags().StringVar(&diffFilter, "filter", "d", "git diff-filter letters (uppercase includes a status, lowercase excludes it)")
	changedFilesCmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Only print paths matching this glob (repeatable)")
	newFilesCmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Only print paths matching this glob (repeatable)")

	rootCmd.AddCommand(diffRevisionCmd)
	rootCmd.AddCommand(changedFilesCmd)
	rootCmd.AddCommand(newFilesCmd)
	rootCmd.AddCommand(showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newResolver() (*changed.Resolver, error) {
	repo, err := gitio.Open(repoPath)
	if err != nil {
		return nil, err
	}
	return changed.NewResolver(repo, logger.New(logLevel)), nil
}

func runDiffRevision(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	rev, err := resolver.DiffRevision(expansionsFile, branch)
	if err != nil {
		return err
	}

	fmt.Println(rev)
	return nil
}

func runChangedFiles(cmd *cobra.Command, args []string) error {
	return printFiles(diffFilter)
}

func runNewFiles(cmd *cobra.Command, args []string) error {
	return printFiles("ARC")
}

func printFiles(filter string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	files, err := resolver.ChangedFiles(expansionsFile, branch, filter)
	if err != nil {
		return err
	}

	globs, err := pathfilter.New(patterns)
	if err != nil {
		return err
	}

	for _, file := range globs.Apply(files) {
		fmt.Println(file)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	revision, path := args[0], args[1]

	resolver, err := newResolver()
	if err != nil {
		return err
	}

	content, found, err := resolver.FileAtRevision(path, revision)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stderr, "path %q does not exist at revision %q\n", path, revision)
		return nil
	}

	fmt.Print(content)
	return nil
}
