package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/entries/internal/doc"
	"github.com/roach88/entries/internal/record"
)

// EntryOptions holds flags shared by the store administration commands.
type EntryOptions struct {
	*RootOptions
	StoreFlags
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List the entries of a category",
		Long: `List every entry of a category, oldest first.

Categories: input, output, mapping.

Example:
  entries list input
  entries list mapping --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, args[0], func(ctx context.Context, st record.Store, c record.Category) (any, error) {
				records, err := st.List(ctx, c)
				if err != nil {
					return nil, err
				}
				return listOutput{category: c, records: records}, nil
			})
		},
	}

	opts.StoreFlags.register(cmd)
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <category> <id>",
		Short: "Show one entry",
		Example: `  entries get input 0192f5c4-1a2b-7c3d-8e4f-5a6b7c8d9e0f
  entries get output 0192f5c4-1a2b-7c3d-8e4f-5a6b7c8d9e0f --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, args[0], func(ctx context.Context, st record.Store, c record.Category) (any, error) {
				rec, err := st.Get(ctx, c, args[1])
				if err != nil {
					return nil, err
				}
				return recordOutput{rec}, nil
			})
		},
	}

	opts.StoreFlags.register(cmd)
	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <category> <json>",
		Short: "Create an entry from a JSON object or array",
		Example: `  entries create input '{"x":5}'
  entries create mapping '{"from":"a","to":"b"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayloadArg(opts.RootOptions, cmd, args[1])
			if err != nil {
				return err
			}
			return withStore(opts, cmd, args[0], func(ctx context.Context, st record.Store, c record.Category) (any, error) {
				rec, err := st.Create(ctx, c, payload)
				if err != nil {
					return nil, err
				}
				return recordOutput{rec}, nil
			})
		},
	}

	opts.StoreFlags.register(cmd)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <category> <id> <json>",
		Short:         "Replace the payload of an entry",
		Long:          "Replace the payload of an entry wholesale. Keys absent from the new payload are dropped.",
		Example:       `  entries update input 0192f5c4-1a2b-7c3d-8e4f-5a6b7c8d9e0f '{"x":6}'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayloadArg(opts.RootOptions, cmd, args[2])
			if err != nil {
				return err
			}
			return withStore(opts, cmd, args[0], func(ctx context.Context, st record.Store, c record.Category) (any, error) {
				rec, err := st.Update(ctx, c, args[1], payload)
				if err != nil {
					return nil, err
				}
				return recordOutput{rec}, nil
			})
		},
	}

	opts.StoreFlags.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EntryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "delete <category> <id>",
		Short:         "Delete an entry",
		Example:       `  entries delete output 0192f5c4-1a2b-7c3d-8e4f-5a6b7c8d9e0f`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, args[0], func(ctx context.Context, st record.Store, c record.Category) (any, error) {
				rec, err := st.Delete(ctx, c, args[1])
				if err != nil {
					return nil, err
				}
				return deleteOutput{
					Message: fmt.Sprintf("%s entry deleted", c.Title()),
					Entry:   rec,
				}, nil
			})
		},
	}

	opts.StoreFlags.register(cmd)
	return cmd
}

// withStore parses the category, opens the configured store, runs fn and
// reports its result or error through the output formatter.
func withStore(
	opts *EntryOptions,
	cmd *cobra.Command,
	categoryArg string,
	fn func(ctx context.Context, st record.Store, c record.Category) (any, error),
) error {
	f := opts.formatter(cmd)

	category, err := record.ParseCategory(categoryArg)
	if err != nil {
		_ = f.Error(CodeValidation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid category", err)
	}

	cfg, err := opts.loadConfig(opts.StoreFlags.apply)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := opts.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	f.VerboseLog("store: %s", cfg.ResolvedBackend())

	out, err := fn(ctx, st, category)
	if err != nil {
		return reportStoreError(f, category, err)
	}
	return f.Success(out)
}

// reportStoreError maps the record error taxonomy onto output and exit codes.
func reportStoreError(f *OutputFormatter, category record.Category, err error) error {
	switch {
	case record.IsNotFound(err):
		msg := fmt.Sprintf("%s entry not found", category.Title())
		_ = f.Error(CodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	case record.IsValidationError(err):
		_ = f.Error(CodeValidation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid entry", err)
	default:
		_ = f.Error(CodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "store error", err)
	}
}

func parsePayloadArg(opts *RootOptions, cmd *cobra.Command, arg string) (doc.Value, error) {
	payload, err := record.ParsePayload([]byte(arg))
	if err != nil {
		_ = opts.formatter(cmd).Error(CodeValidation, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid payload", err)
	}
	return payload, nil
}

// recordOutput renders a record as one tab-separated line in text mode and
// as the record's JSON in JSON mode.
type recordOutput struct {
	record.Record
}

func (r recordOutput) String() string {
	data, err := doc.Marshal(r.Payload)
	if err != nil {
		data = []byte(fmt.Sprintf("<%v>", err))
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s",
		r.ID, r.Category, r.CreatedAt.UTC().Format(record.TimeLayout), data)
}

type listOutput struct {
	category record.Category
	records  []record.Record
}

func (l listOutput) MarshalJSON() ([]byte, error) {
	return recordsJSON(l.records)
}

func (l listOutput) String() string {
	if len(l.records) == 0 {
		return fmt.Sprintf("No %s entries.", l.category)
	}
	lines := make([]string, len(l.records))
	for i, rec := range l.records {
		lines[i] = recordOutput{rec}.String()
	}
	return strings.Join(lines, "\n")
}

type deleteOutput struct {
	Message string        `json:"message"`
	Entry   record.Record `json:"entry"`
}

func (d deleteOutput) String() string {
	return fmt.Sprintf("%s: %s", d.Message, d.Entry.ID)
}

func recordsJSON(records []record.Record) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, rec := range records {
		if i > 0 {
			b.WriteByte(',')
		}
		data, err := rec.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(data)
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}
