// Package main provides the specintel binary entry point.
// Specintel validates domain configuration documents, runs conflict
// detection and maturity scoring over specification snapshots, and
// manages versioned specification records in local snapshot files.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specintel/specification"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "specintel"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel string
		jsonOut  bool
	)

	a := &app{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Specification intelligence engine",
		Long: `Specintel builds knowledge domains from YAML configuration documents
and evaluates project specifications against them.

It provides:
- Domain document validation (questions, export formats, rules, analyzers)
- Conflict detection across current specification records
- Maturity scoring with category coverage and conflict penalties
- Versioned specification management in snapshot files`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(logLevel)
			a.jsonOut = jsonOut
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")

	cmd.AddCommand(validateCmd(a))
	cmd.AddCommand(domainsCmd(a))
	cmd.AddCommand(detectCmd(a))
	cmd.AddCommand(scoreCmd(a))
	cmd.AddCommand(specCmd(a))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <document>...",
		Short: "Validate domain configuration documents",
		Long: `Validate parses each domain document and reports every structural and
semantic issue found. The exit status is non-zero when any document has
issues, making this suitable as a pre-flight check.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(args)
		},
	}
}

func domainsCmd(a *app) *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "domains [domain-id]",
		Short: "List or show domains discovered in a config directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainID := ""
			if len(args) == 1 {
				domainID = args[0]
			}
			return a.runDomains(cmd.Context(), configDir, domainID)
		},
	}
	cmd.Flags().StringVarP(&configDir, "config-dir", "c", ".", "Directory to scan for domain documents")
	return cmd
}

func detectCmd(a *app) *cobra.Command {
	var (
		domainPath   string
		snapshotPath string
		projectID    string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run conflict detection over a specification snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetect(cmd.Context(), domainPath, snapshotPath, projectID)
		},
	}
	cmd.Flags().StringVarP(&domainPath, "domain", "d", "", "Domain document path")
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Specification snapshot YAML path")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID to evaluate")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func scoreCmd(a *app) *cobra.Command {
	var (
		domainPath   string
		snapshotPath string
		projectID    string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a maturity report for a project",
		Long: `Score runs conflict detection first, then computes category coverage
minus the open error-conflict penalty. Enabled analyzers without a
registered implementation are reported as skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScore(cmd.Context(), domainPath, snapshotPath, projectID)
		},
	}
	cmd.Flags().StringVarP(&domainPath, "domain", "d", "", "Domain document path")
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Specification snapshot YAML path")
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID to score")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func specCmd(a *app) *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Manage versioned specification records in a snapshot file",
	}
	cmd.PersistentFlags().StringVarP(&snapshotPath, "snapshot", "s", "", "Specification snapshot YAML path")
	_ = cmd.MarkPersistentFlagRequired("snapshot")

	var (
		projectID string
		category  string
		key       string
		value     string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create version 1 of a specification key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpecCreate(snapshotPath, projectID, category, key, value)
		},
	}
	create.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	create.Flags().StringVar(&category, "category", "", "Category")
	create.Flags().StringVarP(&key, "key", "k", "", "Specification key")
	create.Flags().StringVarP(&value, "value", "v", "", "Specification value")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("key")
	_ = create.MarkFlagRequired("value")

	var (
		nvProject string
		nvKey     string
		nvValue   string
	)
	newVersion := &cobra.Command{
		Use:   "new-version",
		Short: "Supersede the current version of a specification key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpecNewVersion(snapshotPath, nvProject, nvKey, nvValue)
		},
	}
	newVersion.Flags().StringVarP(&nvProject, "project", "p", "", "Project ID")
	newVersion.Flags().StringVarP(&nvKey, "key", "k", "", "Specification key")
	newVersion.Flags().StringVarP(&nvValue, "value", "v", "", "Specification value")
	_ = newVersion.MarkFlagRequired("project")
	_ = newVersion.MarkFlagRequired("key")
	_ = newVersion.MarkFlagRequired("value")

	var (
		trSpecID string
		trTarget string
	)
	transition := &cobra.Command{
		Use:   "transition",
		Short: "Move a specification record to a new lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpecTransition(snapshotPath, trSpecID, specification.Status(trTarget))
		},
	}
	transition.Flags().StringVar(&trSpecID, "id", "", "Specification record ID")
	transition.Flags().StringVar(&trTarget, "to", "", "Target status (approved, implemented, deprecated)")
	_ = transition.MarkFlagRequired("id")
	_ = transition.MarkFlagRequired("to")

	var (
		hiProject string
		hiKey     string
	)
	history := &cobra.Command{
		Use:   "history",
		Short: "Show every version of a specification key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpecHistory(snapshotPath, hiProject, hiKey)
		},
	}
	history.Flags().StringVarP(&hiProject, "project", "p", "", "Project ID")
	history.Flags().StringVarP(&hiKey, "key", "k", "", "Specification key")
	_ = history.MarkFlagRequired("project")
	_ = history.MarkFlagRequired("key")

	cmd.AddCommand(create, newVersion, transition, history)
	return cmd
}
