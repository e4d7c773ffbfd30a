package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/app"
	"github.com/kjstillabower/agri-advisor/internal/client"
	"github.com/kjstillabower/agri-advisor/internal/config"
	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/validation"
)

type rootOptions struct {
	configDir string
	jsonLogs  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "agrictl",
		Short:         "Agricultural advisory assistant",
		Long:          "Ask farming questions, build the document index and query market prices without running the HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "config", "directory holding {ENV_NAME}.yaml and secrets.yaml")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json", false, "emit JSON logs")

	root.AddCommand(
		newAskCmd(opts),
		newIndexCmd(opts),
		newGuideCmd(opts),
		newPricesCmd(opts),
	)
	return root
}

// withContainer loads configuration, wires the container and closes it after fn.
func withContainer(ctx context.Context, opts *rootOptions, fn func(c *app.Container) error) (err error) {
	logger, err := observability.NewCLILogger(opts.jsonLogs)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadFrom(opts.configDir)
	if err != nil {
		return err
	}
	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Warn("close", zap.Error(closeErr))
		}
	}()
	return fn(c)
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer an agricultural question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := validation.ValidateQuery(strings.Join(args, " "), validation.MaxQueryLen)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				res := c.Pipeline.Answer(cmd.Context(), query)
				if raw {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), string(res.Payload))
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Response.Answer)
				fmt.Fprintf(out, "\n[%s]\n", res.Response.LLMSource)
				for _, src := range res.Response.Sources {
					fmt.Fprintf(out, "  %s\n", src)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the full JSON response")
	return cmd
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the document index from the docs directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				stats, err := c.BuildIndex(cmd.Context(), force)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if stats.Existing > 0 {
					fmt.Fprintf(out, "index already holds %d chunks (use --force to rebuild)\n", stats.Existing)
					return nil
				}
				fmt.Fprintf(out, "indexed %d pages into %d chunks in %s\n", stats.Pages, stats.Chunks, stats.Duration)
				for name, skipErr := range stats.Skipped {
					fmt.Fprintf(out, "  skipped %s: %v\n", name, skipErr)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild a non-empty index")
	return cmd
}

func newGuideCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guide <location>",
		Short: "Generate an organic farming guide for a region",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location, err := validation.ValidateLocation(strings.Join(args, " "), 1, 100)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				return writeIndented(cmd.OutOrStdout(), c.Guide.Generate(cmd.Context(), location))
			})
		},
	}
}

func newPricesCmd(opts *rootOptions) *cobra.Command {
	var q client.MarketQuery
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Look up daily mandi prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(q.State) == "" {
				return errors.New("--state is required")
			}
			if _, err := validation.ValidateArrivalDate(q.ArrivalDate); err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				res := c.Market.Prices(cmd.Context(), q)
				if !res.OK() {
					return fmt.Errorf("market prices (%s): %w", res.Kind(), res.Err)
				}
				return writeIndented(cmd.OutOrStdout(), res.Value)
			})
		},
	}
	cmd.Flags().StringVar(&q.State, "state", "", "state name")
	cmd.Flags().StringVar(&q.District, "district", "", "district name")
	cmd.Flags().StringVar(&q.Commodity, "commodity", "", "commodity name")
	cmd.Flags().StringVar(&q.ArrivalDate, "date", "", "arrival date, DD/MM/YYYY")
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "maximum records")
	return cmd
}

func writeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
