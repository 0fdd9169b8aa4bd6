// Package copywriter 编排标题与内文生成：模型解析、参考资料、提示词、后处理与会话状态
package copywriter

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ptt-copy-ai/internal/application/postprocess"
	"ptt-copy-ai/internal/application/reference"
	"ptt-copy-ai/internal/domain/entity"
	llmctx "ptt-copy-ai/internal/domain/service"
	"ptt-copy-ai/internal/workflow/chain"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	workflowport "ptt-copy-ai/internal/workflow/port"
	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
	"ptt-copy-ai/pkg/metrics"
	"ptt-copy-ai/pkg/tracer"
)

// HistoryChecker 已发表标题黑名单
type HistoryChecker interface {
	Contains(headline string) bool
}

// ReferenceSource 参考资料读取
type ReferenceSource interface {
	LoadFolder(ctx context.Context) ([]entity.ReferenceDoc, []entity.SkippedReference)
	LoadUpload(ctx context.Context, name string, r io.Reader) (entity.ReferenceDoc, error)
}

type Options struct {
	Provider          string
	Sentinel          string
	TitleCount        int
	CommentCount      int
	BodyRunes         int
	ReferenceMaxRunes int
	Title             wfmodel.Decoding
	Post              wfmodel.Decoding
}

// TitleRequest 标题生成参数；Topic 可为内容表 key 或自由文本
type TitleRequest struct {
	Tag      string
	Topic    string
	Tone     string
	CoreText string
}

// Upload 一个待读取的上传文件
type Upload struct {
	Name   string
	Reader io.Reader
}

type Service struct {
	opts       Options
	catalog    *entity.Catalog
	resolver   workflowport.ModelResolver
	titles     *chain.TitleChain
	posts      *chain.PostChain
	history    HistoryChecker
	references ReferenceSource
	processor  *postprocess.Processor
	labeler    *postprocess.Labeler

	mu      sync.Mutex
	session *entity.Session
}

// NewService 创建文案服务；history 与 references 可为 nil
func NewService(
	opts Options,
	catalog *entity.Catalog,
	resolver workflowport.ModelResolver,
	titles *chain.TitleChain,
	posts *chain.PostChain,
	history HistoryChecker,
	references ReferenceSource,
	processor *postprocess.Processor,
	labeler *postprocess.Labeler,
) *Service {
	if opts.TitleCount <= 0 {
		opts.TitleCount = 5
	}
	if opts.CommentCount <= 0 {
		opts.CommentCount = 8
	}
	if opts.BodyRunes <= 0 {
		opts.BodyRunes = 150
	}
	if opts.Sentinel == "" {
		opts.Sentinel = "[PTT_END]"
	}
	if processor == nil {
		processor = postprocess.NewProcessor(postprocess.Options{})
	}
	if labeler == nil {
		labeler = postprocess.NewLabeler(postprocess.LabelPolicyRandom, nil, nil)
	}
	return &Service{
		opts:       opts,
		catalog:    catalog,
		resolver:   resolver,
		titles:     titles,
		posts:      posts,
		history:    history,
		references: references,
		processor:  processor,
		labeler:    labeler,
		session:    entity.NewSession(),
	}
}

// Catalog 返回内容表
func (s *Service) Catalog() *entity.Catalog {
	return s.catalog
}

// Snapshot 返回会话副本
func (s *Service) Snapshot() entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Reset 清空会话
func (s *Service) Reset(ctx context.Context) entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()
	logger.Info(ctx, "session reset", "session_id", s.session.ID)
	return s.session.Snapshot()
}

// Select 选择候选标题
func (s *Service) Select(ctx context.Context, title string) (entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Select(strings.TrimSpace(title)); err != nil {
		return entity.Session{}, sessionError(err)
	}
	return s.session.Snapshot(), nil
}

// GenerateTitles 生成候选标题，过滤历史黑名单后整体替换会话中的候选
func (s *Service) GenerateTitles(ctx context.Context, req TitleRequest) (batch *entity.TitleBatch, err error) {
	ctx, span := tracer.Start(s.withSession(ctx), "copywriter.generate_titles")
	start := time.Now()
	defer func() {
		s.observe(ctx, llmctx.WorkflowTitleGenerate, start, err)
		if err != nil {
			tracer.RecordError(span, err)
		}
		span.End()
	}()

	params := entity.GenerationParams{
		Tag:      strings.TrimSpace(req.Tag),
		TopicKey: strings.TrimSpace(req.Topic),
		ToneKey:  strings.TrimSpace(req.Tone),
		CoreText: strings.TrimSpace(req.CoreText),
	}
	topic, tone, err := s.lookup(params)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, s.opts.Provider)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", res.Model))

	refs, skipped := s.collectReferences(ctx)
	out, err := s.titles.Invoke(ctx, &wfmodel.TitleGenerateInput{
		Persona:           s.catalog.Persona,
		Topic:             topic,
		Tone:              tone,
		Tag:               params.Tag,
		CoreText:          params.CoreText,
		References:        refs,
		ReferenceMaxRunes: s.opts.ReferenceMaxRunes,
		Count:             s.opts.TitleCount,
		Options:           s.generateOptions(res.Model, s.opts.Title),
	})
	if err != nil {
		s.invalidateOnQuota(ctx, err)
		return nil, err
	}

	parsed := postprocess.Titles(out.Content, s.opts.TitleCount)
	titles, blacklisted := s.filterHistory(params.Tag, parsed)
	if blacklisted > 0 {
		metrics.TitlesBlacklisted.Add(float64(blacklisted))
		logger.Info(ctx, "titles dropped by history blacklist", "count", blacklisted)
	}
	if len(titles) == 0 {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "model returned no usable titles").
			WithDetail(out.Content)
	}

	s.mu.Lock()
	s.session.SetTitles(params, titles)
	s.mu.Unlock()

	return &entity.TitleBatch{
		Titles:             titles,
		Model:              res.Model,
		Blacklisted:        blacklisted,
		ReferenceTruncated: out.ReferenceTruncated,
		Skipped:            skipped,
	}, nil
}

// GeneratePost 为已选标题生成内文与推文；title 非空时先选择该标题
func (s *Service) GeneratePost(ctx context.Context, title string) (result *entity.GenerationResult, err error) {
	ctx, span := tracer.Start(s.withSession(ctx), "copywriter.generate_post")
	start := time.Now()
	defer func() {
		s.observe(ctx, llmctx.WorkflowPostGenerate, start, err)
		if err != nil {
			tracer.RecordError(span, err)
		}
		span.End()
	}()

	s.mu.Lock()
	if t := strings.TrimSpace(title); t != "" && t != s.session.Selected {
		if err := s.session.Select(t); err != nil {
			s.mu.Unlock()
			return nil, sessionError(err)
		}
	}
	selected := s.session.Selected
	params := s.session.Params
	s.mu.Unlock()

	if selected == "" {
		return nil, sessionError(entity.ErrNoSelection)
	}
	topic, tone, err := s.lookup(params)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, s.opts.Provider)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", res.Model))

	refs, skipped := s.collectReferences(ctx)
	out, err := s.posts.Invoke(ctx, &wfmodel.PostGenerateInput{
		Persona:           s.postPersona(),
		Title:             selected,
		Tag:               params.Tag,
		Topic:             topic,
		Tone:              tone,
		Fillers:           s.catalog.Fillers,
		References:        refs,
		ReferenceMaxRunes: s.opts.ReferenceMaxRunes,
		BodyRunes:         s.opts.BodyRunes,
		Sentinel:          s.opts.Sentinel,
		CommentCount:      s.opts.CommentCount,
		Options:           s.generateOptions(res.Model, s.opts.Post),
	})
	if err != nil {
		s.invalidateOnQuota(ctx, err)
		return nil, err
	}

	processed := s.processor.Process(out.Content, s.opts.Sentinel)
	if !processed.SentinelFound {
		logger.Warn(ctx, "sentinel missing from post response, comments are empty", "sentinel", s.opts.Sentinel)
	}

	result = &entity.GenerationResult{
		Title:              selected,
		Model:              res.Model,
		Raw:                out.Content,
		Body:               processed.Body,
		Comments:           s.labeler.Label(processed.Comments),
		ReferenceTruncated: out.ReferenceTruncated,
		Skipped:            skipped,
		CreatedAt:          time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SetResult(result); err != nil {
		// 生成期间标题被替换或重新选择
		return nil, sessionError(err)
	}
	return result, nil
}

// AddUploads 读取上传文件并追加到会话；全部失败时返回第一个错误
func (s *Service) AddUploads(ctx context.Context, files []Upload) ([]entity.ReferenceDoc, []entity.SkippedReference, error) {
	if len(files) == 0 {
		return nil, nil, apperrors.New(apperrors.CodeInvalidParam, "no files uploaded")
	}
	if s.references == nil {
		return nil, nil, apperrors.New(apperrors.CodeServiceUnavailable, "reference loading is not configured")
	}

	var (
		docs     []entity.ReferenceDoc
		skipped  []entity.SkippedReference
		firstErr error
	)
	for _, f := range files {
		doc, err := s.references.LoadUpload(ctx, f.Name, f.Reader)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			skipped = append(skipped, entity.SkippedReference{
				Name:   f.Name,
				Source: entity.ReferenceSourceUpload,
				Reason: err.Error(),
			})
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, skipped, firstErr
	}

	s.mu.Lock()
	s.session.AddUploads(docs...)
	s.mu.Unlock()
	return docs, skipped, nil
}

// ClearUploads 清空上传资料
func (s *Service) ClearUploads(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ClearUploads()
}

func (s *Service) lookup(params entity.GenerationParams) (wfmodel.TopicSpec, wfmodel.ToneSpec, error) {
	if params.Tag == "" || !s.catalog.HasTag(params.Tag) {
		return wfmodel.TopicSpec{}, wfmodel.ToneSpec{}, apperrors.New(apperrors.CodeInvalidParam, "unknown tag").WithDetail(params.Tag)
	}

	var topic wfmodel.TopicSpec
	if t, ok := s.catalog.Topic(params.TopicKey); ok {
		topic = wfmodel.TopicSpec{Name: t.Name, Context: t.Context, Keywords: t.Keywords, Example: t.Example}
	} else if params.TopicKey != "" {
		topic = wfmodel.TopicSpec{Name: params.TopicKey}
	} else if params.CoreText == "" {
		return wfmodel.TopicSpec{}, wfmodel.ToneSpec{}, apperrors.New(apperrors.CodeInvalidParam, "topic or core text is required")
	}

	t, ok := s.catalog.Tone(params.ToneKey)
	if !ok {
		return wfmodel.TopicSpec{}, wfmodel.ToneSpec{}, apperrors.New(apperrors.CodeInvalidParam, "unknown tone").WithDetail(params.ToneKey)
	}
	return topic, wfmodel.ToneSpec{Name: t.Name, Instruction: t.Instruction}, nil
}

func (s *Service) postPersona() string {
	if strings.TrimSpace(s.catalog.PostPersona) != "" {
		return s.catalog.PostPersona
	}
	return s.catalog.Persona
}

// collectReferences 资料夹文件在前（按文件名），上传文件在后（按上传顺序）
func (s *Service) collectReferences(ctx context.Context) (string, []entity.SkippedReference) {
	s.mu.Lock()
	uploads := append([]entity.ReferenceDoc(nil), s.session.Uploads...)
	s.mu.Unlock()

	if s.references == nil {
		return reference.Compose(uploads), nil
	}
	folder, skipped := s.references.LoadFolder(ctx)
	return reference.Compose(folder, uploads), skipped
}

func (s *Service) filterHistory(tag string, titles []string) ([]string, int) {
	if s.history == nil {
		return titles, 0
	}
	kept := make([]string, 0, len(titles))
	dropped := 0
	for _, t := range titles {
		if s.history.Contains(tag+" "+t) || s.history.Contains(t) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func (s *Service) generateOptions(modelName string, d wfmodel.Decoding) wfmodel.GenerateOptions {
	return d.Options(s.opts.Provider, modelName)
}

// invalidateOnQuota 已解析模型配额耗尽时丢弃解析结果，下次请求重新探测
func (s *Service) invalidateOnQuota(ctx context.Context, err error) {
	if !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		return
	}
	if ierr := s.resolver.Invalidate(ctx, s.opts.Provider); ierr != nil {
		logger.Warn(ctx, "failed to invalidate model resolution", "error", ierr.Error())
		return
	}
	logger.Info(ctx, "model resolution invalidated after quota error", "provider", s.opts.Provider)
}

// withSession 会话 ID 创建后不变，无需加锁
func (s *Service) withSession(ctx context.Context) context.Context {
	return logger.WithContext(ctx, logger.SessionIDKey, s.session.ID)
}

func (s *Service) observe(ctx context.Context, workflow string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = string(apperrors.CodeOf(err))
		logger.Warn(ctx, "generation failed", "workflow", workflow, "error", err.Error())
	}
	metrics.GenerationTotal.WithLabelValues(workflow, status).Inc()
	metrics.GenerationDuration.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, entity.ErrNoSelection):
		return apperrors.Wrap(err, apperrors.CodeNoTitleSelected, "select a title first")
	case errors.Is(err, entity.ErrTitleNotOffered):
		return apperrors.Wrap(err, apperrors.CodeInvalidParam, "title is not one of the current candidates")
	default:
		return err
	}
}
