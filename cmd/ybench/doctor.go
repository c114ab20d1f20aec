package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yugasec/yuga-bench/internal/catalog"
	"github.com/yugasec/yuga-bench/internal/policy"
	"github.com/yugasec/yuga-bench/internal/source"
)

// DoctorResult is the structured output of ybench doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Cluster struct {
		Host      string `json:"host"`
		Reachable bool   `json:"reachable"`
		Version   string `json:"version,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"cluster"`

	Catalog struct {
		Directory string   `json:"directory"`
		Loadable  bool     `json:"loadable"`
		Sections  int      `json:"sections"`
		Controls  int      `json:"controls"`
		Errors    []string `json:"errors,omitempty"`
		Warnings  int      `json:"warnings,omitempty"`
	} `json:"catalog"`

	Policy struct {
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	var (
		conn       connectionFlags
		specsDir   string
		policyPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runDoctor(cmd.Context(), conn, specsDir, policyPath, cmd.OutOrStdout(), format)
			if err != nil {
				// Rendering failure - let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&specsDir, "specs-dir", "specs", "Directory holding the benchmark section catalogs")
	cmd.Flags().StringVar(&policyPath, "policy", "ybench.yaml", "Policy YAML to validate (optional)")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers must inspect result.OverallHealthy.
func runDoctor(ctx context.Context, conn connectionFlags, specsDir, policyPath string, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, conn, specsDir, policyPath)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering; callers decide how to present the
// result.
func collectDoctorResult(ctx context.Context, conn connectionFlags, specsDir, policyPath string) DoctorResult {
	var result DoctorResult

	// Cluster: open -> ping -> version probe.
	result.Cluster.Host = fmt.Sprintf("%s:%d", conn.host, conn.port)
	password, err := conn.resolvePassword()
	if err != nil {
		result.Cluster.Error = err.Error()
	} else if src, err := source.Open(conn.sourceConfig(password)); err != nil {
		result.Cluster.Error = err.Error()
	} else {
		defer src.Close()
		if err := src.Ping(ctx); err != nil {
			result.Cluster.Error = err.Error()
		} else {
			result.Cluster.Reachable = true
			if rows, err := src.Query(ctx, "SELECT version();"); err == nil && len(rows) > 0 {
				result.Cluster.Version = rows[0]["version"]
			}
		}
	}

	// Catalog: load -> validate.
	result.Catalog.Directory = specsDir
	loader := catalog.NewLoader(specsDir, slog.Default())
	controls, err := loader.Load()
	if err != nil {
		result.Catalog.Errors = []string{err.Error()}
	} else {
		result.Catalog.Loadable = true
		result.Catalog.Sections = len(loader.Sections())
		result.Catalog.Controls = len(controls)
		issues := loader.Validate()
		result.Catalog.Errors = append(result.Catalog.Errors, issues.Errors...)
		result.Catalog.Warnings = len(issues.Warnings)
	}

	// Policy: stat -> load -> validate (file is optional).
	if _, statErr := os.Stat(policyPath); statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.Load(policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			ids := make([]string, 0, len(controls))
			for _, c := range controls {
				ids = append(ids, c.ID)
			}
			errs := policy.Validate(cfg, ids)
			if len(errs) == 0 {
				result.Policy.Valid = true
			} else {
				for _, e := range errs {
					result.Policy.Errors = append(result.Policy.Errors, e.Error())
				}
			}
		}
	} else if !os.IsNotExist(statErr) {
		// Stat error other than "not found" - treat as present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.OverallHealthy = result.Cluster.Reachable &&
		result.Catalog.Loadable &&
		len(result.Catalog.Errors) == 0 &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintf(w, "\nCluster (%s):\n", result.Cluster.Host)
	if result.Cluster.Reachable {
		doctorPrint(w, "Connection", "OK", "")
		doctorPrint(w, "Server version", "OK", result.Cluster.Version)
	} else {
		doctorPrint(w, "Connection", "FAIL", result.Cluster.Error)
		doctorPrint(w, "Server version", "FAIL", "skipped")
	}

	fmt.Fprintf(w, "\nCatalog (%s):\n", result.Catalog.Directory)
	if !result.Catalog.Loadable {
		for _, e := range result.Catalog.Errors {
			doctorPrint(w, "Loadable", "FAIL", e)
		}
	} else {
		doctorPrint(w, "Loadable", "OK",
			fmt.Sprintf("%d sections, %d controls", result.Catalog.Sections, result.Catalog.Controls))
		if len(result.Catalog.Errors) > 0 {
			for _, e := range result.Catalog.Errors {
				doctorPrint(w, "Valid", "FAIL", e)
			}
		} else {
			doctorPrint(w, "Valid", "OK", fmt.Sprintf("%d warnings", result.Catalog.Warnings))
		}
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, "Policy file", "Not found (optional)", "")
	} else {
		doctorPrint(w, "Policy file", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}
}

// doctorPrint writes a single diagnostic check line to w. When detail is
// non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
