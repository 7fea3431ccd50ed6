package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/qdbconnect/internal/client"
)

// EnvPrefix prefixes the environment overrides, e.g. QDB_HOST.
const EnvPrefix = "QDB"

// connFlags are the connection settings bound to viper.
var connFlags = []string{"host", "port", "user", "password", "database", "sslmode"}

// ConnectFunc opens a client. Tests substitute one backed by a fake.
type ConnectFunc func(ctx context.Context, cfg client.Config, opts ...client.Option) (*client.Client, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Conn is resolved from flags, QDB_* variables and the config file, in
	// that order of precedence.
	Conn client.Config

	Connect ConnectFunc

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qdbconnect CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Connect: client.Connect})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.Conn = client.DefaultConfig()
	opts.v = viper.New()

	cmd := &cobra.Command{
		Use:   "qdbconnect",
		Short: "QuestDB type catalog and SAMPLE BY query compiler",
		Long: `Resolve QuestDB column types, compile YAML query documents with
SAMPLE BY clauses to SQL, render CREATE TABLE statements from CUE table
definitions and reflect tables from a running server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.loadConfig()
		},
	}

	defaults := client.DefaultConfig()
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	pf.String("host", defaults.Host, "server host")
	pf.Int("port", defaults.Port, "server Postgres wire port")
	pf.String("user", defaults.User, "user name")
	pf.String("password", defaults.Password, "password")
	pf.String("database", defaults.Database, "database name")
	pf.String("sslmode", defaults.SSLMode, "Postgres sslmode")

	for _, name := range connFlags {
		_ = opts.v.BindPFlag(name, pf.Lookup(name))
	}
	opts.v.SetEnvPrefix(EnvPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewDDLCommand(opts))
	cmd.AddCommand(NewReflectCommand(opts))

	return cmd
}

// loadConfig reads the config file, if any, and resolves Conn.
func (o *RootOptions) loadConfig() error {
	if o.v == nil {
		return nil
	}
	if o.ConfigFile != "" {
		o.v.SetConfigFile(o.ConfigFile)
		if err := o.v.ReadInConfig(); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: reading config %s", ErrCodeConfig, o.ConfigFile), err)
		}
	}
	o.Conn = client.Config{
		Host:     o.v.GetString("host"),
		Port:     o.v.GetInt("port"),
		User:     o.v.GetString("user"),
		Password: o.v.GetString("password"),
		Database: o.v.GetString("database"),
		SSLMode:  o.v.GetString("sslmode"),
	}
	return nil
}

// Logger returns a console logger on w when verbose, otherwise a no-op.
func (o *RootOptions) Logger(w io.Writer) *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
}

// connect opens a client with the resolved connection settings.
func (o *RootOptions) connect(ctx context.Context, logger *zap.Logger) (*client.Client, error) {
	connect := o.Connect
	if connect == nil {
		connect = client.Connect
	}
	return connect(ctx, o.Conn, client.WithLogger(logger))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
