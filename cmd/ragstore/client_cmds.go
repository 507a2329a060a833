package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/ragstore/internal/cli"
	"github.com/hyperjump/ragstore/internal/client"
	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/pkg/utils"
)

func newInsertCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <text>",
		Short: "Insert a text into a running server",
		Example: `  ragstore insert "Cats purr when they are content."
  ragstore insert --server http://10.0.0.5:8000 Late returns cost 20 EUR per day`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if utils.IsBlank(text) {
				return errors.New("text must not be blank")
			}
			position, err := client.New(opts.serverURL).Insert(cmd.Context(), text)
			if err != nil {
				return fmt.Errorf("insert failed: %w", err)
			}
			return cli.WriteInserted(cmd.OutOrStdout(), position, text, format)
		},
	}
	addClientFlags(cmd, opts)
	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		k          int
		withScores bool
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Return the stored texts most similar to a query",
		Example: `  ragstore query what do cats do
  ragstore query -k 5 --scores "refund policy"
  ragstore query --output json "refund policy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			response, err := client.New(opts.serverURL).Query(cmd.Context(), joinArgs(args), k, withScores)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			return cli.WriteQueryResults(cmd.OutOrStdout(), response, format)
		},
	}
	addClientFlags(cmd, opts)
	cmd.Flags().IntVarP(&k, "limit", "k", 0, "number of results (0 = server default)")
	cmd.Flags().BoolVar(&withScores, "scores", false, "include positions and similarity scores")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <position>",
		Short: "Print the text stored at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[0])
			}
			format, err := opts.format()
			if err != nil {
				return err
			}
			record, err := client.New(opts.serverURL).Get(cmd.Context(), position)
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}
			return cli.WriteRecord(cmd.OutOrStdout(), record, format)
		},
	}
	addClientFlags(cmd, opts)
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			status, err := client.New(opts.serverURL).Status(cmd.Context(), verify)
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			return cli.WriteStatus(cmd.OutOrStdout(), status, format)
		},
	}
	addClientFlags(cmd, opts)
	cmd.Flags().BoolVar(&verify, "verify", false, "check that stored vectors and texts are aligned")
	return cmd
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		chunkSize    int
		chunkOverlap int
		workers      int
	)
	cmd := &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Chunk the documents under a directory and insert them into a running server",
		Example: `  ragstore ingest ./docs
  ragstore ingest --chunk-size 400 --chunk-overlap 100 ./policies`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ingestCfg := cfg.Ingest
			if cmd.Flags().Changed("chunk-size") {
				ingestCfg.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("chunk-overlap") {
				ingestCfg.ChunkOverlap = chunkOverlap
			}
			if cmd.Flags().Changed("workers") {
				ingestCfg.Workers = workers
			}

			logger, err := utils.NewLogger(opts.debug || cfg.Debug)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			c := client.New(opts.serverURL)
			if err := c.Health(cmd.Context()); err != nil {
				return fmt.Errorf("server not reachable at %s: %w", opts.serverURL, err)
			}
			in := ingest.New(c, extract.NewExtractor(), &ingestCfg, ingest.WithLogger(logger))
			result, err := in.IngestDir(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			if err := cli.WriteIngestResult(cmd.OutOrStdout(), args[0], result, format); err != nil {
				return err
			}
			if result.Failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s) failed; see log for details\n", result.Failed)
				return errors.New("some files failed to ingest")
			}
			return nil
		},
	}
	addClientFlags(cmd, opts)
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "characters per chunk (overrides ingest.chunk_size)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "characters shared by consecutive chunks (overrides ingest.chunk_overlap)")
	cmd.Flags().IntVar(&workers, "workers", 0, "files ingested concurrently (overrides ingest.workers)")
	return cmd
}
