// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunkline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/chunkline/ai"
	"github.com/poiesic/chunkline/ai/openai"
	"github.com/poiesic/chunkline/enrich"
	"github.com/poiesic/chunkline/pipeline"
	"github.com/poiesic/chunkline/project"
	"github.com/poiesic/chunkline/sink"
	"github.com/poiesic/chunkline/storage"
	"github.com/poiesic/chunkline/storage/badger"
)

// Workspace owns the long-lived resources of a chunkline process and builds
// pipelines from them. Nothing is read from the environment; every setting
// arrives through a WorkspaceOption.
type Workspace struct {
	options  *workspaceOptions
	provider ai.AIProvider
	cache    storage.EmbeddingCache
	enricher *enrich.Enricher
	logger   *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	aiConfig       *ai.Config
	provider       ai.AIProvider
	cacheDir       string
	delay          time.Duration
	uploadEndpoint string
	uploadTimeout  time.Duration
	poolSize       int
	logger         *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a ready AI provider instead of building one from the
// AI configuration. The workspace closes it.
func WithProvider(provider ai.AIProvider) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// WithCacheDir enables the embedding cache stored in dir.
func WithCacheDir(dir string) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.cacheDir = dir
	}
}

// WithDelay sets the minimum delay between embedding requests.
func WithDelay(delay time.Duration) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.delay = delay
	}
}

// WithUploadEndpoint sets the ingestion endpoint URL.
func WithUploadEndpoint(endpoint string) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.uploadEndpoint = endpoint
	}
}

// WithUploadTimeout sets the upload request timeout.
func WithUploadTimeout(timeout time.Duration) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.uploadTimeout = timeout
	}
}

// WithPoolSize sets how many files a directory run processes at once.
func WithPoolSize(size int) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.poolSize = size
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.logger = logger
	}
}

// NewWorkspace creates a workspace. The embedding provider is created on
// first use, so runs that never embed need no API key.
func NewWorkspace(opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{
		aiConfig:       ai.DefaultConfig(),
		delay:          enrich.DefaultDelay,
		uploadEndpoint: sink.DefaultEndpoint,
		uploadTimeout:  sink.DefaultTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.aiConfig == nil {
		options.aiConfig = ai.DefaultConfig()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	ws := &Workspace{
		options:  options,
		provider: options.provider,
		logger:   options.logger.With("component", "workspace"),
	}

	if options.cacheDir != "" {
		cache, err := badger.OpenEmbeddingCache(options.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("opening embedding cache: %w", err)
		}
		ws.cache = cache
		ws.logger.Debug("embedding cache open", "dir", options.cacheDir)
	}

	return ws, nil
}

// Provider returns the AI provider, creating it on first call.
func (ws *Workspace) Provider() (ai.AIProvider, error) {
	if ws.provider != nil {
		return ws.provider, nil
	}
	provider, err := openai.NewProvider(ws.options.aiConfig)
	if err != nil {
		return nil, err
	}
	ws.provider = provider
	return provider, nil
}

// Enricher returns the workspace's enricher, creating it on first call.
// Every pipeline of the workspace shares it, and with it one rate limit.
func (ws *Workspace) Enricher() (*enrich.Enricher, error) {
	if ws.enricher != nil {
		return ws.enricher, nil
	}
	provider, err := ws.Provider()
	if err != nil {
		return nil, err
	}

	opts := []enrich.Option{
		enrich.WithDelay(ws.options.delay),
		enrich.WithDimensions(ws.options.aiConfig.Dimensions),
		enrich.WithLogger(ws.options.logger),
	}
	if ws.cache != nil {
		opts = append(opts, enrich.WithCache(ws.cache, provider.ModelName()))
	}

	enricher, err := enrich.New(provider.Embedder(), opts...)
	if err != nil {
		return nil, err
	}
	ws.enricher = enricher
	return enricher, nil
}

// NewPipeline builds a pipeline for mode. An empty namespace is derived from
// each output file name. The caller must Release the pipeline.
func (ws *Workspace) NewPipeline(mode pipeline.Mode, namespace string, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	stages := []pipeline.Option{pipeline.WithLogger(ws.options.logger)}
	if ws.options.poolSize > 0 {
		stages = append(stages, pipeline.WithPoolSize(ws.options.poolSize))
	}

	if mode == pipeline.ModeEmbed || mode == pipeline.ModePrepare {
		enricher, err := ws.Enricher()
		if err != nil {
			return nil, err
		}
		stages = append(stages, pipeline.WithEnricher(enricher))
	}

	if mode == pipeline.ModeConvert || mode == pipeline.ModePrepare {
		if namespace == "" {
			stages = append(stages, pipeline.WithDerivedNamespace())
		} else {
			projector, err := project.New(namespace)
			if err != nil {
				return nil, err
			}
			stages = append(stages, pipeline.WithProjector(projector))
		}
	}

	return pipeline.New(append(stages, opts...)...)
}

// NewUploader builds an uploader for the configured ingestion endpoint.
func (ws *Workspace) NewUploader() (*sink.Uploader, error) {
	return sink.NewUploader(ws.options.uploadEndpoint,
		sink.WithTimeout(ws.options.uploadTimeout),
		sink.WithUploadLogger(ws.options.logger),
	)
}

// Close releases the provider and the embedding cache.
func (ws *Workspace) Close() error {
	var errs []error

	if ws.provider != nil {
		if err := ws.provider.Close(); err != nil {
			ws.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}

	if ws.cache != nil {
		if err := ws.cache.Close(); err != nil {
			ws.logger.Error("error closing embedding cache", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
