package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yanqian/photo-caption/internal/domain/auth"
	"github.com/yanqian/photo-caption/internal/domain/faq"
	"github.com/yanqian/photo-caption/internal/infra/config"
	"github.com/yanqian/photo-caption/internal/infra/embedder"
	"github.com/yanqian/photo-caption/internal/infra/embeddingcache"
	"github.com/yanqian/photo-caption/internal/infra/faqcorpus"
	"github.com/yanqian/photo-caption/internal/infra/llm/chatgpt"
	"github.com/yanqian/photo-caption/pkg/logger"
)

const offlineDimensions = 256

type matchResult struct {
	Answer faq.Response      `json:"answer"`
	Ranked []faq.ScoredEntry `json:"ranked"`
}

type rootOptions struct {
	offline bool
	fs      afero.Fs
	logger  *slog.Logger
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(afero.NewOsFs(), logger.New())
}

func newRootCommandWith(fs afero.Fs, log *slog.Logger) *cobra.Command {
	opts := &rootOptions{fs: fs, logger: log}

	cmd := &cobra.Command{
		Use:           "faqctl",
		Short:         "Operate the FAQ matcher and reviewer credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Use a local deterministic embedder and skip the LLM")

	cmd.AddCommand(
		newWarmCommand(opts),
		newMatchCommand(opts),
		newListCommand(opts),
		newHashPasswordCommand(),
		newTokenCommand(opts),
	)
	return cmd
}

func newWarmCommand(opts *rootOptions) *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Load the corpus and compute or reuse its embedding cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := buildFAQService(cmd, cfg, opts)
			if err != nil {
				return err
			}
			var result faq.WarmResult
			if reload {
				result, err = svc.Reload(cmd.Context())
			} else {
				result, err = svc.Warm(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "Drop in-process state before warming")
	return cmd
}

func newMatchCommand(opts *rootOptions) *cobra.Command {
	var (
		top       int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "match <question>...",
		Short: "Answer each question and list the closest corpus entries",
		Example: `  faqctl match "Is the app free?"
  faqctl match --offline --top 5 --threshold 0.6 "How do I add context?" "Are photos stored?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				cfg.FAQ.SimilarityThreshold = threshold
			}
			if top > 0 {
				cfg.FAQ.TopK = top
			}
			svc, err := buildFAQService(cmd, cfg, opts)
			if err != nil {
				return err
			}
			results := make([]matchResult, 0, len(args))
			for _, question := range args {
				resp, err := svc.Answer(cmd.Context(), faq.Request{Question: question})
				if err != nil {
					return err
				}
				ranked, err := svc.Rank(cmd.Context(), question, cfg.FAQ.TopK)
				if err != nil {
					return err
				}
				results = append(results, matchResult{Answer: resp, Ranked: ranked})
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Number of ranked entries to print (defaults to faq.topK)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override faq.similarityThreshold")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the validated corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			entries, err := faqcorpus.NewFileSource(opts.fs, cfg.FAQ.CorpusPath).Load(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for auth.passwordHash; reads stdin without an argument",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a reviewer bearer token signed with auth.secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if username == "" {
				username = cfg.Auth.Username
			}
			svc := auth.NewService(auth.Config{
				Secret:       cfg.Auth.Secret,
				Username:     cfg.Auth.Username,
				PasswordHash: cfg.Auth.PasswordHash,
				TokenTTL:     cfg.Auth.TokenTTL,
			}, opts.logger)
			resp, err := svc.IssueToken(cmd.Context(), username)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Subject of the token (defaults to auth.username)")
	return cmd
}

func buildFAQService(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) (faq.Service, error) {
	source := faqcorpus.NewFileSource(opts.fs, cfg.FAQ.CorpusPath)
	store := embeddingcache.Open(cmd.Context(), cfg.FAQ.Cache, opts.fs, opts.logger)

	faqCfg := faq.Config{
		Model:               cfg.LLM.Model,
		EmbeddingModel:      cfg.LLM.EmbeddingModel,
		Temperature:         cfg.LLM.Temperature,
		Prompt:              cfg.FAQ.Prompt,
		FallbackAnswer:      cfg.FAQ.FallbackAnswer,
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
		TopK:                cfg.FAQ.TopK,
		GenerateAnswer:      cfg.FAQ.GenerateAnswer,
	}

	if opts.offline {
		model := fmt.Sprintf("deterministic-%d", offlineDimensions)
		faqCfg.EmbeddingModel = model
		faqCfg.GenerateAnswer = false
		matcher := faq.NewMatcher(source, store, embedder.NewDeterministicEmbedder(offlineDimensions), model, opts.logger)
		return faq.NewService(faqCfg, matcher, nil, opts.logger), nil
	}

	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, chatgpt.Options{
		APIVersion:          cfg.LLM.APIVersion,
		EmbeddingAPIVersion: cfg.LLM.EmbeddingAPIVersion,
		Timeout:             cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (use --offline to run without an API key)", err)
	}
	matcher := faq.NewMatcher(source, store, embedder.NewOpenAIEmbedder(client, cfg.LLM.EmbeddingModel, opts.logger), cfg.LLM.EmbeddingModel, opts.logger)
	return faq.NewService(faqCfg, matcher, client, opts.logger), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
