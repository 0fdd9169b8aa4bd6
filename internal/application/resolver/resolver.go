// Package resolver 在候选模型中找出当前凭证可调用的第一个模型
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/domain/repository"
	workflowport "ptt-copy-ai/internal/workflow/port"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
	"ptt-copy-ai/pkg/metrics"
	"ptt-copy-ai/pkg/tracer"
)

// Prober 以最小代价调用一次模型
type Prober interface {
	Probe(ctx context.Context, provider, model string) error
}

// ProviderOptions 单个 Provider 的候选阶梯
type ProviderOptions struct {
	// Candidates 按能力从高到低排列
	Candidates    []string
	PreferCheaper bool
}

type Options struct {
	Providers      map[string]ProviderOptions
	ListModels     bool
	CacheTTL       time.Duration
	CacheKeyPrefix string
}

type Resolver struct {
	opts   Options
	lister workflowport.ModelLister
	prober Prober
	cache  repository.ResolutionCache
	now    func() time.Time
}

// New 创建解析器；lister 与 cache 可为 nil
func New(opts Options, lister workflowport.ModelLister, prober Prober, cache repository.ResolutionCache) *Resolver {
	if opts.CacheKeyPrefix == "" {
		opts.CacheKeyPrefix = "resolution"
	}
	return &Resolver{
		opts:   opts,
		lister: lister,
		prober: prober,
		cache:  cache,
		now:    time.Now,
	}
}

func (r *Resolver) cacheKey(provider string) string {
	return r.opts.CacheKeyPrefix + ":" + provider
}

// Resolve 返回缓存中的解析结果，未命中时逐个探测候选模型
func (r *Resolver) Resolve(ctx context.Context, provider string) (*entity.Resolution, error) {
	provider = strings.TrimSpace(provider)
	if r.cache == nil || r.opts.CacheTTL <= 0 {
		return r.resolve(ctx, provider)
	}
	return r.cache.GetOrLoad(ctx, r.cacheKey(provider), r.opts.CacheTTL, func(ctx context.Context) (*entity.Resolution, error) {
		return r.resolve(ctx, provider)
	})
}

// Current 只读缓存，不触发探测
func (r *Resolver) Current(ctx context.Context, provider string) (*entity.Resolution, bool, error) {
	if r.cache == nil {
		return nil, false, nil
	}
	return r.cache.Peek(ctx, r.cacheKey(strings.TrimSpace(provider)))
}

// Invalidate 丢弃缓存结果，例如已解析的模型配额耗尽时
func (r *Resolver) Invalidate(ctx context.Context, provider string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, r.cacheKey(strings.TrimSpace(provider))); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to invalidate model resolution")
	}
	return nil
}

// Refresh 丢弃缓存并重新解析
func (r *Resolver) Refresh(ctx context.Context, provider string) (*entity.Resolution, error) {
	if err := r.Invalidate(ctx, provider); err != nil {
		return nil, err
	}
	return r.Resolve(ctx, provider)
}

// Candidates 返回探测顺序与候选来源
//
// 实时列表可用时，阶梯中出现在列表里的模型优先（保持阶梯顺序），其余实时模型按列表顺序追加；
// 列表失败或为空时退回静态阶梯。
func (r *Resolver) Candidates(ctx context.Context, provider string) ([]string, string, error) {
	po, ok := r.opts.Providers[provider]
	if !ok {
		return nil, "", apperrors.New(apperrors.CodeConfigInvalid, "llm provider not configured").WithDetail(provider)
	}
	ladder := dedupe(po.Candidates)
	if po.PreferCheaper {
		reverse(ladder)
	}

	if !r.opts.ListModels || r.lister == nil {
		return ladder, entity.CandidateSourceStatic, nil
	}
	live, err := r.lister.ListModels(ctx, provider)
	if err != nil {
		logger.Warn(ctx, "model listing failed, falling back to static candidates",
			"provider", provider,
			"error", err.Error(),
		)
		return ladder, entity.CandidateSourceStatic, nil
	}
	live = dedupe(live)
	if len(live) == 0 {
		logger.Warn(ctx, "model listing returned nothing, falling back to static candidates", "provider", provider)
		return ladder, entity.CandidateSourceStatic, nil
	}
	return mergeCandidates(ladder, live), entity.CandidateSourceLive, nil
}

func (r *Resolver) resolve(ctx context.Context, provider string) (res *entity.Resolution, err error) {
	ctx, span := tracer.Start(ctx, "resolver.resolve")
	span.SetAttributes(attribute.String("llm.provider", provider))
	defer func() {
		tracer.RecordError(span, err)
		span.End()
	}()

	if r.prober == nil {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "model prober not configured")
	}
	names, source, err := r.Candidates(ctx, provider)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("resolver.source", source),
		attribute.Int("resolver.candidates", len(names)),
	)
	if len(names) == 0 {
		metrics.ModelResolutionTotal.WithLabelValues(provider, source, "failed").Inc()
		return nil, apperrors.New(apperrors.CodeModelResolutionFailed, "no candidate models").WithDetail(provider)
	}

	candidates := make([]entity.ModelCandidate, len(names))
	for i, name := range names {
		candidates[i] = entity.ModelCandidate{Name: name, Rank: i}
	}

	var (
		lastErr  error
		failures []string
	)
	for i := range candidates {
		c := &candidates[i]
		probeErr := r.prober.Probe(ctx, provider, c.Name)
		available := probeErr == nil
		c.Available = &available
		if available {
			metrics.ModelProbeTotal.WithLabelValues(provider, c.Name, "success").Inc()
			metrics.ModelResolutionTotal.WithLabelValues(provider, source, "success").Inc()
			logger.Info(ctx, "model resolved",
				"provider", provider,
				"model", c.Name,
				"source", source,
				"probed", i+1,
			)
			return &entity.Resolution{
				Provider:   provider,
				Model:      c.Name,
				Source:     source,
				Candidates: candidates,
				ResolvedAt: r.now(),
			}, nil
		}

		metrics.ModelProbeTotal.WithLabelValues(provider, c.Name, "failed").Inc()
		c.Error = probeErr.Error()
		lastErr = probeErr
		failures = append(failures, fmt.Sprintf("%s: %s", c.Name, probeErr.Error()))
		logger.Warn(ctx, "model probe failed",
			"provider", provider,
			"model", c.Name,
			"code", string(apperrors.CodeOf(probeErr)),
			"error", probeErr.Error(),
		)

		// 凭证错误对所有候选都一样，不再继续消耗配额
		if apperrors.HasCode(probeErr, apperrors.CodeConfigInvalid) || ctx.Err() != nil {
			break
		}
	}

	metrics.ModelResolutionTotal.WithLabelValues(provider, source, "failed").Inc()
	return nil, apperrors.Wrap(lastErr, apperrors.CodeModelResolutionFailed, "no candidate model is callable").
		WithDetail(strings.Join(failures, "; "))
}

func mergeCandidates(ladder, live []string) []string {
	inLive := make(map[string]struct{}, len(live))
	for _, m := range live {
		inLive[m] = struct{}{}
	}
	inLadder := make(map[string]struct{}, len(ladder))
	out := make([]string, 0, len(live))
	for _, m := range ladder {
		inLadder[m] = struct{}{}
		if _, ok := inLive[m]; ok {
			out = append(out, m)
		}
	}
	for _, m := range live {
		if _, ok := inLadder[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
