package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/chunkline"
	"github.com/poiesic/chunkline/ai"
	"github.com/poiesic/chunkline/config"
	"github.com/poiesic/chunkline/pipeline"
	"github.com/poiesic/chunkline/report"
)

// stageAction runs the mode named by the command over a file or every
// matching file of a directory. Record-level errors are reported but do not
// fail the command.
func stageAction(c *cli.Context) error {
	mode, err := pipeline.ParseMode(c.Command.Name)
	if err != nil {
		return err
	}
	input, isDir, err := inputArg(c)
	if err != nil {
		return err
	}
	cfg, err := config.Discover(c.String("config"))
	if err != nil {
		return err
	}

	ws, err := newWorkspace(c, cfg, mode)
	if err != nil {
		return err
	}
	defer ws.Close()

	var opts []pipeline.Option
	if boolSetting(c, "sync", cfg.Pipeline.Sync) {
		opts = append(opts, pipeline.WithSync())
	}
	if !isDir && !c.Bool("no-progress") {
		opts = append(opts, pipeline.WithProgress(c.App.ErrWriter,
			intSetting(c, "progress-interval", cfg.Pipeline.ProgressInterval)))
	}

	namespace := stringSetting(c, "namespace", cfg.Pipeline.Namespace)
	p, err := ws.NewPipeline(mode, namespace, opts...)
	if err != nil {
		return err
	}
	defer p.Release()

	printer := report.NewPrinter(c.App.Writer, useColors(c))

	if !isDir {
		summary, err := p.RunFile(c.Context, input, pipeline.OutputPath(mode, input))
		if summary != nil {
			printer.Summary(*summary)
		}
		return err
	}

	results, err := p.RunDir(c.Context, input)
	if len(results) == 0 {
		return err
	}
	failed := 0
	for _, res := range results {
		if res.Summary != nil {
			printer.Summary(*res.Summary)
		}
		if res.Err != nil {
			failed++
			printer.Failure(mode.String(), fmt.Errorf("%s: %w", res.Input, res.Err))
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(results)), exitFailure)
	}
	return nil
}

// uploadAction uploads a projected file, or each projected file of a
// directory in name order. Every file is one all-or-nothing request.
func uploadAction(c *cli.Context) error {
	input, isDir, err := inputArg(c)
	if err != nil {
		return err
	}
	inputs := []string{input}
	if isDir {
		inputs, err = pipeline.Inputs(pipeline.ModePassthrough, input)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("%w: %s", pipeline.ErrNoInputs, input)
		}
	}

	cfg, err := config.Discover(c.String("config"))
	if err != nil {
		return err
	}
	ws, err := newWorkspace(c, cfg, pipeline.ModePassthrough)
	if err != nil {
		return err
	}
	defer ws.Close()

	p, err := ws.NewPipeline(pipeline.ModePassthrough, "")
	if err != nil {
		return err
	}
	defer p.Release()

	uploader, err := ws.NewUploader()
	if err != nil {
		return err
	}

	printer := report.NewPrinter(c.App.Writer, useColors(c))
	failed := 0
	for _, in := range inputs {
		summary, err := p.RunUpload(c.Context, in, uploader)
		if summary != nil {
			printer.Summary(*summary)
		}
		if err != nil {
			failed++
			printer.Failure("upload", fmt.Errorf("%s: %w", in, err))
			if c.Context.Err() != nil {
				break
			}
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d uploads failed", failed, len(inputs)), exitFailure)
	}
	return nil
}

// newWorkspace builds a workspace from flags and the configuration file.
// Embedding settings are only read for modes that embed.
func newWorkspace(c *cli.Context, cfg *config.File, mode pipeline.Mode) (*chunkline.Workspace, error) {
	if cfg.Path() != "" {
		slog.Debug("loaded configuration", "path", cfg.Path())
	}

	opts := []chunkline.WorkspaceOption{
		chunkline.WithLogger(slog.Default()),
		chunkline.WithPoolSize(intSetting(c, "workers", cfg.Pipeline.Workers)),
	}

	switch mode {
	case pipeline.ModeEmbed, pipeline.ModePrepare:
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(stringSetting(c, "embedding-host", cfg.Embedding.Host)),
			ai.WithEmbeddingModel(stringSetting(c, "embedding-model", cfg.Embedding.Model)),
			ai.WithAPIKey(stringSetting(c, "api-key", cfg.Embedding.APIKey)),
			ai.WithDimensions(intSetting(c, "dimensions", cfg.Embedding.Dimensions)),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, err
		}
		delay, err := durationSetting(c, "delay", cfg.Embedding.Delay)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			chunkline.WithAIConfig(aiConfig),
			chunkline.WithDelay(delay),
			chunkline.WithCacheDir(stringSetting(c, "cache-dir", cfg.Cache.Dir)),
		)
	case pipeline.ModePassthrough:
		timeout, err := durationSetting(c, "timeout", cfg.Upload.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			chunkline.WithUploadEndpoint(stringSetting(c, "endpoint", cfg.Upload.Endpoint)),
			chunkline.WithUploadTimeout(timeout),
		)
	}

	return chunkline.NewWorkspace(opts...)
}

func useColors(c *cli.Context) bool {
	return !c.Bool("no-color") && !color.NoColor && c.App.Writer == os.Stdout
}
