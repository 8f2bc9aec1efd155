package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pteargryphon/creative-brief-generator/internal/job"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/internal/stage"
)

var (
	generateFormat       string
	generatePollInterval time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate <url>",
	Short: "Generate one creative brief and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateFormat != "json" && generateFormat != "yaml" {
			return eris.Errorf("unsupported format %q (json or yaml)", generateFormat)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		// Jobs run under a context that outlives the signal so that an
		// interrupt cancels the job and still lets it reach a terminal state.
		env.Executor.Start(context.WithoutCancel(ctx))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = env.Executor.Shutdown(shutdownCtx)
		}()

		id := env.Store.Create()
		if err := env.Executor.Submit(id, stage.NormalizeURL(args[0])); err != nil {
			return eris.Wrap(err, "submit job")
		}

		rec, err := awaitJob(ctx, env, id, generatePollInterval)
		if err != nil {
			return err
		}
		if rec.Status == job.StatusFailed {
			return eris.Errorf("brief generation failed: %s", rec.Error)
		}
		return writeResult(cmd.OutOrStdout(), generateFormat, rec.Result)
	},
}

// awaitJob polls the store until the job is terminal, logging each progress
// change. An interrupt cancels the job and keeps polling until it fails.
func awaitJob(ctx context.Context, env *appEnv, id string, interval time.Duration) (job.Record, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := zap.L().With(zap.String("job_id", id))
	lastProgress := -1
	interrupted := false
	for {
		rec, err := env.Store.Get(id)
		if err != nil {
			return job.Record{}, err
		}
		if rec.Progress != lastProgress {
			log.Info("progress", zap.Int("percent", rec.Progress), zap.String("message", rec.Message))
			lastProgress = rec.Progress
		}
		if rec.Status.Terminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			if !interrupted {
				interrupted = true
				log.Warn("interrupted, canceling job")
				if err := env.Executor.Cancel(id); err != nil {
					return job.Record{}, eris.Wrap(err, "cancel job")
				}
			}
			<-ticker.C
		case <-ticker.C:
		}
	}
}

func writeResult(w io.Writer, format string, result *model.BriefResult) error {
	if result == nil {
		return eris.New("job completed without a result")
	}
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(result), "encode json")
}

func init() {
	generateCmd.Flags().StringVar(&generateFormat, "format", "json", "output format: json or yaml")
	generateCmd.Flags().DurationVar(&generatePollInterval, "poll-interval", time.Second, "how often to poll job progress")
	rootCmd.AddCommand(generateCmd)
}
