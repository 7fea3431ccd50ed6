package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/qdbtype"
	"github.com/roach88/qdbconnect/internal/schema"
	"github.com/roach88/qdbconnect/internal/store"
)

// DDLOptions holds flags for the ddl command.
type DDLOptions struct {
	*RootOptions
	Output   string // write statements to a file instead of stdout
	Snapshot string // read tables from a snapshot store instead of CUE
	Apply    bool   // execute the statements on the server
}

// TableDDL is one rendered CREATE TABLE statement.
type TableDDL struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DDLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ddl <tables-dir> | --snapshot <db> [table...]",
		Short: "Render CREATE TABLE statements",
		Long: `Render CREATE TABLE statements from CUE table definitions.

Each field of "table" in the CUE package is one table. With --snapshot the
tables are read from a snapshot store written by "reflect --snapshot"; the
arguments then name the tables to render (all of them when omitted).`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Snapshot == "" && len(args) != 1 {
				return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "snapshot store to read tables from")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "create the tables on the server")

	return cmd
}

func runDDL(opts *DDLOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cat := qdbtype.NewCatalog()

	var (
		tables []ddl.Table
		err    error
	)
	if opts.Snapshot != "" {
		tables, err = loadSnapshotTables(cmd, opts.Snapshot, args, cat)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeSnapshot, err.Error(), opts.Snapshot)
		}
	} else {
		result, loadErrors := schema.LoadDir(args[0], cat, schema.LoadModeCollectAll)
		if result == nil && len(loadErrors) > 0 {
			code, message := parseLoadError(loadErrors[0])
			return fail(formatter, ExitCommandError, code, message, nil)
		}
		formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, args[0])
		if len(loadErrors) > 0 {
			return outputLoadErrors(formatter, loadErrors)
		}
		tables = result.Tables
	}

	statements, err := renderTables(tables)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeInvalidType, err.Error(), nil)
	}

	// The file is written first so a failed --apply still leaves the statements.
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(joinStatements(statements)+"\n"), 0644); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %d statement(s) to %s", len(statements), opts.Output)
	}

	if opts.Apply {
		if err := applyTables(opts, cmd, formatter, tables); err != nil {
			return err
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(statements)
	}
	if opts.Output != "" {
		return formatter.Success(fmt.Sprintf("Wrote %d statement(s) to %s", len(statements), opts.Output))
	}
	return formatter.Success(joinStatements(statements))
}

// applyTables creates tables in order. On failure the error details name
// the tables already created.
func applyTables(opts *DDLOptions, cmd *cobra.Command, formatter *OutputFormatter, tables []ddl.Table) error {
	logger := opts.Logger(formatter.GetErrWriter())
	c, err := opts.connect(cmd.Context(), logger)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConnectFailed, err.Error(), opts.Conn.Host)
	}
	defer c.Close()

	created := []string{}
	for _, t := range tables {
		if err := c.CreateTable(cmd.Context(), t); err != nil {
			msg := fmt.Sprintf("create %s: %v", t.Name, err)
			if len(created) > 0 {
				msg += fmt.Sprintf(" (already created: %s)", strings.Join(created, ", "))
			}
			return fail(formatter, ExitFailure, ErrCodeConnectFailed, msg, map[string][]string{"created": created})
		}
		created = append(created, t.Name)
		formatter.VerboseLog("Created %s", t.Name)
	}
	return nil
}

func loadSnapshotTables(cmd *cobra.Command, path string, names []string, cat *qdbtype.Catalog) ([]ddl.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot store not found: %s", path)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ctx := cmd.Context()
	if len(names) == 0 {
		infos, err := s.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no tables in snapshot store %s", path)
	}

	tables := make([]ddl.Table, 0, len(names))
	for _, name := range names {
		t, err := s.LoadTable(ctx, name, cat)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	return tables, nil
}

func renderTables(tables []ddl.Table) ([]TableDDL, error) {
	out := make([]TableDDL, len(tables))
	for i, t := range tables {
		sql, err := ddl.CreateTable(t)
		if err != nil {
			return nil, err
		}
		out[i] = TableDDL{Table: t.Name, SQL: sql}
	}
	return out, nil
}

func joinStatements(statements []TableDDL) string {
	parts := make([]string, len(statements))
	for i, s := range statements {
		parts[i] = s.SQL + ";"
	}
	return strings.Join(parts, "\n\n")
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// outputLoadErrors reports every table definition error. Definition errors
// are command-level errors (exit code 2).
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Errors(cliErrors); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("loading tables failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Loading tables failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *schema.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading tables failed with %d error(s)", len(errs)))
}
