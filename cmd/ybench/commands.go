package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yugasec/yuga-bench/internal/catalog"
	"github.com/yugasec/yuga-bench/internal/engine"
	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/output"
	"github.com/yugasec/yuga-bench/internal/policy"
	"github.com/yugasec/yuga-bench/internal/source"
	"github.com/yugasec/yuga-bench/internal/version"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "ybench",
		Short: "YugabyteDB CIS benchmark scanner",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newBenchmarkCmd())
	root.AddCommand(newSectionsCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// connectionFlags are the target-cluster flags shared by benchmark and
// doctor.
type connectionFlags struct {
	host           string
	port           int
	database       string
	user           string
	password       string
	sslMode        string
	promptPassword bool
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "localhost", "Cluster host to scan")
	cmd.Flags().IntVar(&f.port, "port", 5433, "YSQL port")
	cmd.Flags().StringVar(&f.database, "database", "yugabyte", "Database to connect to")
	cmd.Flags().StringVar(&f.user, "user", "yugabyte", "Database user")
	cmd.Flags().StringVar(&f.password, "password", "", "Database password (prefer --prompt-password or PGPASSWORD)")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "", "Connection TLS mode (disable, require, verify-full, ...)")
	cmd.Flags().BoolVarP(&f.promptPassword, "prompt-password", "W", false, "Prompt for the database password")
}

// resolvePassword prefers the flag, then an interactive prompt, then the
// PGPASSWORD environment variable.
func (f *connectionFlags) resolvePassword() (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	if f.promptPassword {
		fmt.Fprintf(os.Stderr, "Password for %s@%s: ", f.user, f.host)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	return os.Getenv("PGPASSWORD"), nil
}

func (f *connectionFlags) sourceConfig(password string) source.Config {
	return source.Config{
		Host:     f.host,
		Port:     f.port,
		Database: f.database,
		User:     f.user,
		Password: password,
		SSLMode:  f.sslMode,
	}
}

func newBenchmarkCmd() *cobra.Command {
	var (
		conn         connectionFlags
		specsDir     string
		profileLevel string
		sections     []string
		policyPath   string
		reportFmt    string
		outPath      string
		noColor      bool
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the CIS benchmark against a live cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := conn.resolvePassword()
			if err != nil {
				return err
			}

			pol := policy.Default()
			if policyPath != "" {
				pol, err = policy.Load(policyPath)
				if err != nil {
					return fmt.Errorf("load policy %q: %w", policyPath, err)
				}
			}

			loader := catalog.NewLoader(specsDir, slog.Default())
			if policyPath != "" {
				if _, err := loader.Load(); err != nil {
					return fmt.Errorf("load catalog: %w", err)
				}
				ids := make([]string, 0, len(loader.Controls()))
				for _, c := range loader.Controls() {
					ids = append(ids, c.ID)
				}
				if errs := policy.Validate(pol, ids); len(errs) > 0 {
					msgs := make([]string, 0, len(errs))
					for _, e := range errs {
						msgs = append(msgs, e.Error())
					}
					return fmt.Errorf("invalid policy:\n  %s", strings.Join(msgs, "\n  "))
				}
			}

			src, err := source.Open(conn.sourceConfig(password))
			if err != nil {
				return err
			}
			defer src.Close()
			if err := src.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("connect to cluster: %w", err)
			}

			eng := engine.New(loader, src, nil, pol, slog.Default())
			report, err := eng.Run(cmd.Context(), engine.RunOptions{
				ProfileLevel: profileLevel,
				Sections:     sections,
			})
			if err != nil {
				return fmt.Errorf("benchmark failed: %w", err)
			}

			if outPath != "" {
				if err := writeReportToFile(outPath, reportFmt, report); err != nil {
					return err
				}
			}
			if err := renderReport(os.Stdout, reportFmt, report, !noColor); err != nil {
				return err
			}

			if failed, reason := pol.ShouldFail(report); failed {
				return fmt.Errorf("policy enforcement: %s", reason)
			}
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&specsDir, "specs-dir", "specs", "Directory holding the benchmark section catalogs")
	cmd.Flags().StringVar(&profileLevel, "profile-level", "", "Restrict to controls for this profile (e.g. \"Level 1\")")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "Restrict to sections matching these names")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy YAML tuning control enablement, severities, and enforcement")
	cmd.Flags().StringVar(&reportFmt, "report", "console", "Output format: console, json, csv, or html")
	cmd.Flags().StringVar(&outPath, "output", "", "Write the report to this file path (in addition to stdout)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors in console output")

	return cmd
}

func newSectionsCmd() *cobra.Command {
	var specsDir string

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List the benchmark sections and control counts in a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := catalog.NewLoader(specsDir, slog.Default())
			if _, err := loader.Load(); err != nil {
				return err
			}
			for _, s := range loader.Sections() {
				fmt.Fprintf(os.Stdout, "%-45s %3d controls\n", s.Name, s.Controls)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&specsDir, "specs-dir", "specs", "Directory holding the benchmark section catalogs")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// renderReport writes the report to w in the requested format.
func renderReport(w io.Writer, format string, report *models.BenchmarkReport, colored bool) error {
	switch format {
	case "console", "":
		output.RenderConsole(w, report, output.ConsoleOptions{Colored: colored})
		return nil
	case "json":
		return output.RenderJSON(w, report)
	case "csv":
		return output.RenderCSV(w, report)
	case "html":
		return output.RenderHTML(w, report)
	default:
		return fmt.Errorf("unknown report format %q (expected console, json, csv, or html)", format)
	}
}

// writeReportToFile renders the report to path, creating or overwriting the
// file. Console output to the file is rendered without colors.
func writeReportToFile(path, format string, report *models.BenchmarkReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file %q: %w", path, err)
	}
	defer f.Close()
	if err := renderReport(f, format, report, false); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
