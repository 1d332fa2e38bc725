// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kit-engine/internal/clarify"
	"github.com/pdiddy/kit-engine/internal/config"
	"github.com/pdiddy/kit-engine/internal/generate"
	"github.com/pdiddy/kit-engine/internal/kit"
	"github.com/pdiddy/kit-engine/internal/kitstore"
	"github.com/pdiddy/kit-engine/internal/match"
	"github.com/pdiddy/kit-engine/internal/pipeline"
	"github.com/pdiddy/kit-engine/internal/telemetry"
	"github.com/pdiddy/kit-engine/pkg/types"
)

var kitCmd = &cobra.Command{
	Use:   "kit <request>",
	Short: "Build a shoppable kit from a free-text request",
	Long: `Kit runs the full pipeline for one request. When the request is too vague
the result is a list of questions; answer them with --answer (repeatable) or
a --history file and run the command again.

Output is {"type":"questions","data":[...]} or the final kit, as JSON or YAML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKit,
}

func init() {
	kitCmd.Flags().StringArray("answer", nil, `prior clarification as "question=answer", split on the last '=' (repeatable)`)
	kitCmd.Flags().String("history", "", "YAML file holding prior conversation turns")
	kitCmd.Flags().String("preferences", "", "free-form preferences passed to the model")
	kitCmd.Flags().String("format", "json", "output format: json or yaml")
	kitCmd.Flags().Bool("save", false, "persist a final kit to the kit store")
	kitCmd.Flags().String("user", "local", "user id for --save")

	rootCmd.AddCommand(kitCmd)
}

func runKit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	history, err := historyFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := config.RequireLLM(cfg); err != nil {
		return err
	}

	provider, err := generate.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	client := generate.NewClient(provider,
		generate.WithMaxRetries(cfg.LLM.MaxRetries),
		generate.WithLogger(logger))

	agg, closeAgg, err := newAggregator(ctx)
	if err != nil {
		return err
	}
	defer closeAgg()

	orch := pipeline.New(
		clarify.NewGate(client, logger),
		kit.NewGenerator(client, logger),
		agg,
		match.NewRanker(),
		pipeline.WithLogger(logger),
		pipeline.WithTracer(telemetry.Tracer()),
		pipeline.WithConfig(cfg.Clarify, cfg.Pipeline),
	)

	prefs, _ := cmd.Flags().GetString("preferences")
	res, err := orch.Run(ctx, strings.Join(args, " "), history, pipeline.WithPreferences(prefs))
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save && !res.IsQuestions() {
		user, _ := cmd.Flags().GetString("user")
		store, err := kitstore.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(ctx, user, *res.Kit)
		if err != nil {
			return err
		}
		logger.Info("kit saved", zap.String("id", id), zap.String("user", user))
	}

	return writeResult(cmd.OutOrStdout(), res, format)
}

func writeResult(w io.Writer, res pipeline.Result, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// historyFromFlags reads --history then appends one Q/A turn per --answer.
func historyFromFlags(cmd *cobra.Command) (types.History, error) {
	var history types.History

	if path, _ := cmd.Flags().GetString("history"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		if err := yaml.Unmarshal(data, &history); err != nil {
			return nil, fmt.Errorf("parsing history %s: %w", path, err)
		}
	}

	answers, _ := cmd.Flags().GetStringArray("answer")
	turns, err := parseAnswers(answers)
	if err != nil {
		return nil, err
	}
	return history.Append(turns...), nil
}

// parseAnswers splits each "question=answer" flag on its last '=', so
// questions may contain '=' but answers may not.
func parseAnswers(answers []string) ([]types.ConversationTurn, error) {
	turns := make([]types.ConversationTurn, 0, len(answers))
	for _, a := range answers {
		i := strings.LastIndex(a, "=")
		if i < 0 {
			return nil, fmt.Errorf(`--answer %q: want "question=answer"`, a)
		}
		q, ans := strings.TrimSpace(a[:i]), strings.TrimSpace(a[i+1:])
		if q == "" {
			return nil, fmt.Errorf(`--answer %q: want "question=answer"`, a)
		}
		turns = append(turns, types.ConversationTurn{Question: q, Answer: ans})
	}
	return turns, nil
}
