package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/qdbconnect/internal/ddl"
	"github.com/roach88/qdbconnect/internal/store"
)

// ReflectOptions holds flags for the reflect command.
type ReflectOptions struct {
	*RootOptions
	Snapshot string // snapshot store to save reflected tables into
}

// NewReflectCommand creates the reflect command.
func NewReflectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReflectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reflect [table...]",
		Short: "Reflect table definitions from a running server",
		Long: `Read table definitions from a running QuestDB server over the
Postgres wire protocol and print them as CREATE TABLE statements.

Without arguments every table from SHOW TABLES is reflected. With
--snapshot the definitions are also saved to a SQLite snapshot store,
replacing earlier snapshots of the same tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReflect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "snapshot store to save tables into")

	return cmd
}

func runReflect(opts *ReflectOptions, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	logger := opts.Logger(formatter.GetErrWriter())
	defer logger.Sync() //nolint:errcheck

	c, err := opts.connect(ctx, logger)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConnectFailed, err.Error(), opts.Conn.Host)
	}
	defer c.Close()

	if len(names) == 0 {
		names, err = c.TableNames(ctx)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeConnectFailed, err.Error(), nil)
		}
		formatter.VerboseLog("Found %d table(s)", len(names))
	}

	var (
		tables []ddl.Table
		errs   []CLIError
	)
	for _, name := range names {
		t, err := c.ReflectTable(ctx, name)
		if err != nil {
			errs = append(errs, CLIError{Code: ErrCodeConnectFailed, Message: err.Error(), Details: name})
			continue
		}
		logger.Debug("reflected", zap.String("table", name), zap.Int("columns", len(t.Columns)))
		tables = append(tables, *t)
	}
	if len(errs) > 0 {
		_ = formatter.Errors(errs)
		return NewExitError(ExitFailure, fmt.Sprintf("%d table(s) failed to reflect", len(errs)))
	}

	statements, err := renderTables(tables)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeInvalidType, err.Error(), nil)
	}

	if opts.Snapshot != "" {
		if err := saveSnapshot(cmd, opts.Snapshot, tables); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeSnapshot, err.Error(), opts.Snapshot)
		}
		formatter.VerboseLog("Saved %d table(s) to %s", len(tables), opts.Snapshot)
	}

	if formatter.Format == "json" {
		return formatter.Success(statements)
	}
	return formatter.Success(joinStatements(statements))
}

func saveSnapshot(cmd *cobra.Command, path string, tables []ddl.Table) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, t := range tables {
		if err := s.SaveTable(cmd.Context(), t); err != nil {
			return err
		}
	}
	return nil
}
