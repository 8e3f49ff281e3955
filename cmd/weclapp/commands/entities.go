package commands

import (
	"fmt"

	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ENDPOINT ID",
		Short: "Get an entity by id",
		Args:  cobra.ExactArgs(constants.KeyValueArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			record, err := c.Query(args[0]).Get(commandContext(cmd), args[1])
			if err != nil {
				return fmt.Errorf("failed to get %s %s: %w", args[0], args[1], err)
			}

			if record == nil {
				return fmt.Errorf("%s %s: %w", args[0], args[1], constants.ErrEntityNotFound)
			}

			return renderRecord(cmd.OutOrStdout(), format, record)
		},
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var (
		data   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "create ENDPOINT",
		Short: "Create an entity",
		Long:  "Create an entity from a JSON or YAML object read from a file or stdin",
		Example: `  weclapp create article --data article.yml
  echo '{"name":"Widget","articleNumber":"W-1","unitId":"42"}' | weclapp create article --data -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			payload, err := readPayload(data, cmd.InOrStdin())
			if err != nil {
				return err
			}

			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			params := weclapp.NewQueryParams()
			if dryRun {
				params.DryRun()
			}

			created, err := c.Query(args[0]).Create(commandContext(cmd), payload, params)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}

			return renderRecord(cmd.OutOrStdout(), format, created)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "payload file, or - for stdin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without persisting")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var (
		data    string
		partial bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "update ENDPOINT [ID]",
		Short: "Update an entity",
		Long: `Update an entity from a JSON or YAML object read from a file or stdin.

The id is taken from the ID argument or the payload. With --partial only the
properties present in the payload are changed.`,
		Args: cobra.RangeArgs(1, constants.KeyValueArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			payload, err := readPayload(data, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if len(args) > 1 {
				payload["id"] = args[1]
			}

			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			params := weclapp.NewQueryParams()
			if dryRun {
				params.DryRun()
			}

			resource := c.Query(args[0])

			var updated weclapp.Record
			if partial {
				updated, err = resource.PartialUpdate(commandContext(cmd), payload, params)
			} else {
				updated, err = resource.Update(commandContext(cmd), payload, params)
			}

			if err != nil {
				return fmt.Errorf("failed to update %s: %w", args[0], err)
			}

			return renderRecord(cmd.OutOrStdout(), format, updated)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "payload file, or - for stdin")
	cmd.Flags().BoolVar(&partial, "partial", false, "only change properties present in the payload")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without persisting")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "delete ENDPOINT ID",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(constants.KeyValueArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			params := weclapp.NewQueryParams()
			if dryRun {
				params.DryRun()
			}

			deleted, err := c.Query(args[0]).Delete(commandContext(cmd), args[1], params)
			if err != nil {
				return fmt.Errorf("failed to delete %s %s: %w", args[0], args[1], err)
			}

			out := cmd.OutOrStdout()

			switch {
			case !deleted:
				_, _ = fmt.Fprintf(out, "%s %s not found\n", args[0], args[1])
			case dryRun:
				_, _ = fmt.Fprintf(out, "%s %s can be deleted (dry run)\n", args[0], args[1])
			default:
				_, _ = fmt.Fprintf(out, "Deleted %s %s\n", args[0], args[1])
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check without deleting")

	return cmd
}
