package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qdbconnect/internal/qdbtype"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	All bool
}

// TypeView is the JSON form of a resolved type.
type TypeView struct {
	Input     string `json:"input,omitempty"`
	Tag       string `json:"tag"`
	Code      int    `json:"code"`
	Category  string `json:"category"`
	Width     int    `json:"width"`
	Geohash   bool   `json:"geohash,omitempty"`
	Precision int    `json:"precision,omitempty"`
}

func newTypeView(input string, d qdbtype.Descriptor) TypeView {
	return TypeView{
		Input:     input,
		Tag:       d.Tag,
		Code:      d.Code,
		Category:  d.Category.String(),
		Width:     d.Width,
		Geohash:   d.Geohash,
		Precision: d.Precision,
	}
}

func (v TypeView) String() string {
	s := fmt.Sprintf("%s code=%d category=%s width=%d", v.Tag, v.Code, v.Category, v.Width)
	if v.Geohash {
		s += fmt.Sprintf(" precision=%db", v.Precision)
	}
	if v.Input != "" && v.Input != v.Tag {
		s = v.Input + " → " + s
	}
	return s
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <tag>...",
		Short: "Resolve column type tags",
		Long: `Resolve QuestDB column type tags to their descriptors.

Fixed tags match exactly or case-insensitively. GEOHASH(<n>b) and
GEOHASH(<n>c) are bucketed into their storage class.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if !opts.All && len(args) == 0 {
				return fmt.Errorf("requires at least one tag, or --all")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "list every concrete type in type-code order")

	return cmd
}

func runResolve(opts *ResolveOptions, tags []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cat := qdbtype.NewCatalog()

	var views []TypeView
	if opts.All {
		for _, d := range cat.Types() {
			views = append(views, newTypeView("", d))
		}
	}

	var errs []CLIError
	for _, tag := range tags {
		d, err := cat.Resolve(tag)
		if err != nil {
			errs = append(errs, CLIError{Code: ErrCodeInvalidType, Message: err.Error(), Details: tag})
			continue
		}
		formatter.VerboseLog("Resolved %s", tag)
		views = append(views, newTypeView(tag, d))
	}

	if len(errs) > 0 {
		_ = formatter.Errors(errs)
		return NewExitError(ExitFailure, fmt.Sprintf("%d tag(s) failed to resolve", len(errs)))
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	lines := make([]string, len(views))
	for i, v := range views {
		lines[i] = v.String()
	}
	return formatter.Success(strings.Join(lines, "\n"))
}
