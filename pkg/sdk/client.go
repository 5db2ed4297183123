package calmbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calmbox/calmbox/internal/db"
	dbRedis "github.com/calmbox/calmbox/internal/db/redis"
	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/guard"
	"github.com/calmbox/calmbox/internal/protocol"
	chunksrepo "github.com/calmbox/calmbox/internal/repository/chunks"
	"github.com/calmbox/calmbox/internal/router"
	"github.com/calmbox/calmbox/internal/taxonomy"
	healthuc "github.com/calmbox/calmbox/internal/usecase/health"
	retrievaluc "github.com/calmbox/calmbox/internal/usecase/retrieval"
	sessionuc "github.com/calmbox/calmbox/internal/usecase/session"
)

const defaultReadinessTimeout = 10 * time.Second

const defaultKeyPrefix = "calmbox:"

// Internal interfaces so tests can substitute the pipeline.
type sessionUseCase interface {
	Handle(ctx context.Context, userText string, events []string) (sessionuc.Turn, error)
}

type retrievalUseCase interface {
	Search(ctx context.Context, query string, p retrievaluc.Params) ([]domain.SearchResult, error)
	AutoSearch(ctx context.Context, query string, topK, autoTopTags int) ([]domain.SearchResult, error)
	ByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

// Client is the calmbox SDK entry point.
type Client struct {
	store        db.Store
	sessionSvc   sessionUseCase
	retrievalSvc retrievalUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a calmbox Client: connects to the database, loads the
// knowledge documents and wires the turn pipeline.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix: defaultKeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("calmbox: database address required (use WithRedis)")
	}
	if cfg.taxonomyPath == "" || cfg.overridesPath == "" || cfg.protocolsPath == "" {
		return nil, errors.New("calmbox: knowledge documents required (use WithKnowledge)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("calmbox: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("calmbox: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	taxDoc, err := taxonomy.LoadDocument(cfg.taxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("calmbox: load taxonomy: %w", err)
	}
	registry := taxonomy.NewRegistry(taxDoc)

	rules, err := router.LoadOverrides(cfg.overridesPath)
	if err != nil {
		return nil, fmt.Errorf("calmbox: load overrides: %w", err)
	}
	rt := router.New(taxDoc, rules, registry)

	protocols, err := protocol.Load(cfg.protocolsPath)
	if err != nil {
		return nil, fmt.Errorf("calmbox: load protocols: %w", err)
	}

	var domEmb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}
	var domGen domain.Generator = noopGenerator{}
	if cfg.generator != nil {
		domGen = &generatorAdapter{inner: cfg.generator}
	}
	var domSink domain.Sink = noopSink{}
	if cfg.sink != nil {
		domSink = &sinkAdapter{inner: cfg.sink}
	}

	policy := retrievaluc.DefaultPolicy()
	if cfg.wQuality > 0 || cfg.wEnabled > 0 {
		policy = retrievaluc.Policy{WQuality: cfg.wQuality, WEnabled: cfg.wEnabled}
	}

	chunkRepo := chunksrepo.New(store, cfg.keyPrefix)
	retrievalSvc := retrievaluc.New(chunkRepo, domEmb, rt, policy)

	sessionSvc := sessionuc.New(
		rt, protocols, retrievalSvc,
		domGen, guard.New(), domSink,
		zap.NewNop(), sessionuc.Config{
			TopK:          cfg.topK,
			AutoTopTags:   cfg.autoTopTags,
			MaxReplyRunes: cfg.maxReplyRunes,
			MaxTokens:     cfg.maxTokens,
			Temperature:   cfg.temperature,
			TopP:          cfg.topP,
		},
	)

	healthSvc := healthuc.New(store, nil, nil)

	return &Client{
		store:        store,
		sessionSvc:   sessionSvc,
		retrievalSvc: retrievalSvc,
		healthSvc:    healthSvc,
		obs:          obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
