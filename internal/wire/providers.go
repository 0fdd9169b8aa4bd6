package wire

import (
	"context"

	"github.com/google/wire"

	"ptt-copy-ai/internal/application/copywriter"
	"ptt-copy-ai/internal/application/opinion"
	"ptt-copy-ai/internal/application/postprocess"
	"ptt-copy-ai/internal/application/reference"
	"ptt-copy-ai/internal/application/resolver"
	"ptt-copy-ai/internal/config"
	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/domain/repository"
	"ptt-copy-ai/internal/infrastructure/catalog"
	"ptt-copy-ai/internal/infrastructure/history"
	"ptt-copy-ai/internal/infrastructure/llm"
	"ptt-copy-ai/internal/infrastructure/persistence/memory"
	"ptt-copy-ai/internal/infrastructure/persistence/redis"
	"ptt-copy-ai/internal/interfaces/http/handler"
	"ptt-copy-ai/internal/interfaces/http/middleware"
	"ptt-copy-ai/internal/interfaces/http/router"
	workflowchain "ptt-copy-ai/internal/workflow/chain"
	workflowmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	workflowprompt "ptt-copy-ai/internal/workflow/prompt"
	"ptt-copy-ai/pkg/logger"
)

// App HTTP 服务依赖容器
type App struct {
	Router   *router.Router
	Resolver *resolver.Resolver
}

// Probe 模型探测工具依赖容器
type Probe struct {
	Resolver *resolver.Resolver
}

// RedisSet Redis 提供者集合；未启用时退回进程内实现
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideResolutionCache,
	ProvideRateLimiter,
)

// LLMSet 模型客户端与解析器
var LLMSet = wire.NewSet(
	llm.NewClientPool,
	llm.NewEinoFactory,
	llm.NewLister,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	wire.Bind(new(workflowport.ModelLister), new(*llm.Lister)),
	ProvideProbeChain,
	wire.Bind(new(resolver.Prober), new(*workflowchain.ProbeChain)),
	ProvideResolver,
)

// WorkflowSet 提示词与生成链
var WorkflowSet = wire.NewSet(
	workflowprompt.NewRegistry,
	workflowprompt.NewBuilder,
	workflowchain.NewTitleChain,
	workflowchain.NewPostChain,
	workflowchain.NewOpinionChain,
)

// ApplicationSet 应用服务
var ApplicationSet = wire.NewSet(
	ProvideCatalog,
	ProvideHistory,
	ProvideReferenceLoader,
	ProvideProcessor,
	ProvideLabeler,
	ProvideCopywriterService,
	ProvideOpinionAnalyzer,
	wire.Bind(new(workflowport.ModelResolver), new(*resolver.Resolver)),
	wire.Bind(new(copywriter.HistoryChecker), new(*history.FileStore)),
	wire.Bind(new(copywriter.ReferenceSource), new(*reference.Loader)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewSessionHandler,
	ProvideReferenceHandler,
	ProvideModelHandler,
	handler.NewOpinionHandler,
	wire.Bind(new(handler.CopywriterService), new(*copywriter.Service)),
	wire.Bind(new(handler.ModelResolver), new(*resolver.Resolver)),
	wire.Bind(new(handler.OpinionAnalyzer), new(*opinion.Analyzer)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideRedisClient 提供 Redis 客户端；未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, using in-process cache and rate limiter")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideResolutionCache 提供模型解析缓存
func ProvideResolutionCache(client *redis.Client) repository.ResolutionCache {
	if client == nil {
		return memory.NewResolutionCache()
	}
	return redis.NewResolutionCache(client)
}

// ProvideRateLimiter 提供入站限流器
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return middleware.NewLocalRateLimiter()
	}
	return redis.NewRateLimiter(client)
}

func ProvideProbeChain(cfg *config.Config, factory workflowport.ChatModelFactory) *workflowchain.ProbeChain {
	return workflowchain.NewProbeChain(factory, cfg.Resolver.ProbePrompt, cfg.Resolver.ProbeTimeout)
}

// ProvideResolver 按 Provider 配置组装候选阶梯
func ProvideResolver(cfg *config.Config, lister workflowport.ModelLister, prober resolver.Prober, cache repository.ResolutionCache) *resolver.Resolver {
	providers := make(map[string]resolver.ProviderOptions, len(cfg.LLM.Providers))
	for name, p := range cfg.LLM.Providers {
		providers[name] = resolver.ProviderOptions{
			Candidates:    p.Candidates,
			PreferCheaper: p.PreferCheaper,
		}
	}
	if !cfg.Resolver.ListModels {
		lister = nil
	}
	return resolver.New(resolver.Options{
		Providers:      providers,
		ListModels:     cfg.Resolver.ListModels,
		CacheTTL:       cfg.Resolver.CacheTTL,
		CacheKeyPrefix: cfg.Resolver.CacheKeyPrefix,
	}, lister, prober, cache)
}

func ProvideCatalog(ctx context.Context, cfg *config.Config) (*entity.Catalog, error) {
	return catalog.Load(ctx, cfg.Content.CatalogPath)
}

func ProvideHistory(ctx context.Context, cfg *config.Config) (*history.FileStore, error) {
	return history.Open(ctx, cfg.Content.HistoryFile)
}

func ProvideReferenceLoader(cfg *config.Config) *reference.Loader {
	return reference.NewLoader(reference.Options{
		Dir:             cfg.Content.ReferenceDir,
		MaxFileBytes:    cfg.Content.ReferenceMaxFileBytes,
		MaxRows:         cfg.Content.ReferenceMaxRows,
		MaxRunesPerFile: cfg.Content.ReferenceMaxRunesPerFile,
	})
}

func ProvideProcessor(cfg *config.Config) *postprocess.Processor {
	return postprocess.NewProcessor(postprocess.Options{
		MinCommentRunes:    cfg.PostProcess.MinCommentRunes,
		StripQuestionMarks: cfg.PostProcess.StripQuestionMarks,
		BodyStripWords:     cfg.PostProcess.BodyStripWords,
	})
}

func ProvideLabeler(cfg *config.Config) *postprocess.Labeler {
	return postprocess.NewLabeler(cfg.PostProcess.LabelPolicy, cfg.PostProcess.LabelPool, nil)
}

// ProvideCopywriterService 提供文案服务
func ProvideCopywriterService(
	cfg *config.Config,
	cat *entity.Catalog,
	models workflowport.ModelResolver,
	titles *workflowchain.TitleChain,
	posts *workflowchain.PostChain,
	hist copywriter.HistoryChecker,
	refs copywriter.ReferenceSource,
	processor *postprocess.Processor,
	labeler *postprocess.Labeler,
) *copywriter.Service {
	gen := cfg.Generation
	return copywriter.NewService(copywriter.Options{
		Provider:          cfg.LLM.DefaultProvider,
		Sentinel:          gen.Sentinel,
		TitleCount:        gen.TitleCount,
		CommentCount:      gen.CommentCount,
		BodyRunes:         gen.BodyRunes,
		ReferenceMaxRunes: gen.ReferenceMaxRunes,
		Title:             decoding(gen.Title),
		Post:              decoding(gen.Post),
	}, cat, models, titles, posts, hist, refs, processor, labeler)
}

func ProvideOpinionAnalyzer(cfg *config.Config, models workflowport.ModelResolver, c *workflowchain.OpinionChain) *opinion.Analyzer {
	return opinion.NewAnalyzer(opinion.Options{
		Provider: cfg.LLM.DefaultProvider,
		Decoding: decoding(cfg.Generation.Opinion),
	}, models, c)
}

func ProvideHealthHandler(cfg *config.Config, client *redis.Client, models handler.ModelResolver) *handler.HealthHandler {
	return handler.NewHealthHandler(client, models, cfg.LLM.DefaultProvider, cfg.App.Version)
}

func ProvideReferenceHandler(cfg *config.Config, svc handler.CopywriterService) *handler.ReferenceHandler {
	return handler.NewReferenceHandler(svc, cfg.Server.HTTP.MaxUploadBytes)
}

func ProvideModelHandler(cfg *config.Config, models handler.ModelResolver) *handler.ModelHandler {
	return handler.NewModelHandler(models, cfg.LLM.DefaultProvider)
}

func decoding(d config.DecodingOptions) workflowmodel.Decoding {
	return workflowmodel.Decoding{Temperature: d.Temperature, MaxTokens: d.MaxTokens}
}
