// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-forker/internal/gateway"
	"github.com/naka-gawa/github-forker/internal/report"
	"github.com/naka-gawa/github-forker/internal/retry"
	"github.com/naka-gawa/github-forker/internal/usecase"
)

// Exit codes: 2 for anything that prevented the run from starting (bad
// arguments, missing token), 1 for a run that started but could not
// proceed. Per-repository fork failures show up in the summary, not in the
// exit code.
const (
	exitRunFailed = 1
	exitUsage     = 2
)

// runError marks failures that happened after argument validation, so
// Execute can tell them apart from usage problems.
type runError struct{ err error }

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "github-forker <source-user>",
	Short: "Bulk-forks every repository owned by a GitHub user.",
	Long: `github-forker forks all repositories owned by a source account into the
authenticated account or a target organization. Repositories that already
exist at the target are skipped, so re-running after a partial failure is
safe. Forked and archived source repositories are excluded unless the
matching --include flag is given.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sourceUser := args[0]

	// Default: discard all logs; --verbose routes them to standard error.
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return errors.New("GITHUB_TOKEN environment variable is not set")
	}

	opts := usecase.DefaultOptions()
	opts.Org, _ = cmd.Flags().GetString("org")
	opts.IncludeForks, _ = cmd.Flags().GetBool("include-forks")
	opts.IncludeArchived, _ = cmd.Flags().GetBool("include-archived")
	opts.Wait, _ = cmd.Flags().GetBool("wait")
	opts.Parallel, _ = cmd.Flags().GetInt("parallel")

	forge, err := gateway.NewGitHubForge(token, retry.DefaultPolicy(), logger)
	if err != nil {
		return &runError{fmt.Errorf("failed to create GitHub gateway: %w", err)}
	}

	replicator := usecase.NewReplicator(forge, report.NewText(cmd.OutOrStdout()), logger, opts)

	targetOwner, err := replicator.ResolveOwner(ctx)
	if err != nil {
		return &runError{err}
	}
	if _, err := replicator.Run(ctx, sourceUser, targetOwner); err != nil {
		return &runError{err}
	}
	return nil
}

// Execute runs the root command and maps failures to exit codes.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var rerr *runError
		if errors.As(err, &rerr) {
			os.Exit(exitRunFailed)
		}
		os.Exit(exitUsage)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.Flags().StringP("org", "o", "", "Organization that receives the forks (default: the authenticated user)")
	rootCmd.Flags().Bool("include-forks", false, "Also fork repositories that are themselves forks")
	rootCmd.Flags().Bool("include-archived", false, "Also fork archived repositories")
	rootCmd.Flags().Bool("wait", false, "Wait for each fork to become visible before moving on")
	rootCmd.Flags().IntP("parallel", "p", 1, "Number of repositories to process concurrently")
}
