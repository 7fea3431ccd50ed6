package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/qdbconnect/internal/querydoc"
	"github.com/roach88/qdbconnect/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Strict bool // treat validation warnings as errors
	Watch  bool
}

// CompiledQuery is one compiled query document.
type CompiledQuery struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (q CompiledQuery) String() string {
	params, _ := json.Marshal(q.Params)
	return fmt.Sprintf("-- %s (%s)\n%s;\n-- params: %s", q.Name, q.Path, q.SQL, params)
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml|dir>...",
		Short: "Compile YAML query documents to SQL",
		Long: `Compile YAML query documents to parameterized QuestDB SQL.

Directories are expanded to the *.yaml and *.yml files they contain. With
--watch the single directory argument is watched and each changed document
is recompiled until interrupted.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return runCompileWatch(opts, args, cmd)
			}
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on validation warnings")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "watch a directory and recompile on change")

	return cmd
}

func (o *CompileOptions) compiler() *querysql.SQLCompiler {
	c := querysql.NewSQLCompiler()
	c.AllowWarnings = !o.Strict
	return c
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	paths, err := expandQueryPaths(args)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d query document(s)", len(paths))

	compiler := opts.compiler()
	var (
		results []CompiledQuery
		errs    []CLIError
	)
	for _, path := range paths {
		doc, err := querydoc.Load(path)
		if err != nil {
			errs = append(errs, CLIError{Code: ErrCodeInvalidQuery, Message: err.Error(), Details: path})
			continue
		}
		q, err := compileDocument(compiler, path, doc)
		if err != nil {
			errs = append(errs, CLIError{Code: ErrCodeInvalidQuery, Message: err.Error(), Details: path})
			continue
		}
		formatter.VerboseLog("Compiled %s", doc.Name)
		results = append(results, q)
	}

	if len(errs) > 0 {
		_ = formatter.Errors(errs)
		return NewExitError(ExitFailure, fmt.Sprintf("%d query document(s) failed to compile", len(errs)))
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = r.String()
	}
	return formatter.Success(strings.Join(blocks, "\n\n"))
}

func compileDocument(compiler *querysql.SQLCompiler, path string, doc *querydoc.Document) (CompiledQuery, error) {
	q, err := doc.Query()
	if err != nil {
		return CompiledQuery{}, fmt.Errorf("%s: %w", doc.Name, err)
	}
	sql, params, err := compiler.Compile(q)
	if err != nil {
		return CompiledQuery{}, fmt.Errorf("%s: %w", doc.Name, err)
	}
	if params == nil {
		params = []any{}
	}
	return CompiledQuery{Name: doc.Name, Path: path, SQL: sql, Params: params}, nil
}

// expandQueryPaths replaces directories with their YAML files, sorted.
func expandQueryPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("query path not found: %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && querydoc.IsDocumentFile(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no query documents found in %s", strings.Join(args, ", "))
	}
	return paths, nil
}

func runCompileWatch(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if len(args) != 1 {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "--watch takes exactly one directory", nil)
	}
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("not a directory: %s", dir), nil)
	}

	logger := opts.Logger(cmd.ErrOrStderr())
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	compiler := opts.compiler()
	changes := make(chan querydoc.Change, 16)
	w, err := querydoc.NewWatcher(dir, logger, querydoc.WithOnChange(func(c querydoc.Change) {
		select {
		case changes <- c:
		case <-ctx.Done():
		}
	}))
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("starting watcher: %v", err), nil)
	}

	// Start reports existing documents synchronously, so drain concurrently.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-changes:
				reportChange(formatter, compiler, c, logger)
			}
		}
	}()

	if err := w.Start(); err != nil {
		cancel()
		<-done
		return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("watching %s: %v", dir, err), nil)
	}
	<-done
	return w.Stop()
}

func reportChange(formatter *OutputFormatter, compiler *querysql.SQLCompiler, c querydoc.Change, logger *zap.Logger) {
	switch {
	case c.Err != nil:
		_ = formatter.Error(ErrCodeInvalidQuery, c.Err.Error(), c.Path)
	case c.Kind == querydoc.ChangeRemoved:
		formatter.VerboseLog("Removed %s", c.Path)
	default:
		q, err := compileDocument(compiler, c.Path, c.Doc)
		if err != nil {
			_ = formatter.Error(ErrCodeInvalidQuery, err.Error(), c.Path)
			return
		}
		logger.Debug("recompiled", zap.String("query", q.Name), zap.String("event", string(c.Kind)))
		if formatter.Format == "json" {
			_ = formatter.Success(q)
			return
		}
		_ = formatter.Success(q.String() + "\n")
	}
}
