package copywriter

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt-copy-ai/internal/application/postprocess"
	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/internal/infrastructure/catalog"
	"ptt-copy-ai/internal/infrastructure/history"
	"ptt-copy-ai/internal/workflow/chain"
	wfmodel "ptt-copy-ai/internal/workflow/model"
	"ptt-copy-ai/internal/workflow/node"
	apperrors "ptt-copy-ai/pkg/errors"
)

type scriptedModel struct {
	replies []string
	err     error
	inputs  [][]*schema.Message
	models  []string
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	m.models = append(m.models, *model.GetCommonOptions(&model.Options{Model: new(string)}, opts...).Model)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return schema.AssistantMessage(reply, nil), nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type scriptedFactory struct {
	model *scriptedModel
}

func (f *scriptedFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, nil
}

type fakeResolver struct {
	model         string
	err           error
	resolves      int
	invalidations int
}

func (r *fakeResolver) Resolve(context.Context, string) (*entity.Resolution, error) {
	r.resolves++
	if r.err != nil {
		return nil, r.err
	}
	return &entity.Resolution{Provider: "gemini", Model: r.model}, nil
}

func (r *fakeResolver) Invalidate(context.Context, string) error {
	r.invalidations++
	return nil
}

type fakeReferences struct {
	folder  []entity.ReferenceDoc
	skipped []entity.SkippedReference
}

func (f *fakeReferences) LoadFolder(context.Context) ([]entity.ReferenceDoc, []entity.SkippedReference) {
	return f.folder, f.skipped
}

func (f *fakeReferences) LoadUpload(_ context.Context, name string, r io.Reader) (entity.ReferenceDoc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.ReferenceDoc{}, err
	}
	if !strings.HasSuffix(name, ".txt") {
		return entity.ReferenceDoc{}, apperrors.New(apperrors.CodeReferenceRejected, "reference file rejected").WithDetail(name)
	}
	return entity.ReferenceDoc{Name: name, Source: entity.ReferenceSourceUpload, Kind: entity.ReferenceKindText, Content: string(data)}, nil
}

type fixture struct {
	svc      *Service
	model    *scriptedModel
	resolver *fakeResolver
	refs     *fakeReferences
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)
	hist, err := history.Parse(strings.NewReader("[討論] 舊標題\n不是標題的行\n"))
	require.NoError(t, err)

	m := &scriptedModel{replies: replies}
	factory := &scriptedFactory{model: m}
	res := &fakeResolver{model: "gemini-1.5-flash"}
	refs := &fakeReferences{}

	svc := NewService(
		Options{Provider: "gemini", Sentinel: "[PTT_END]", TitleCount: 5, CommentCount: 3, BodyRunes: 150, Title: wfmodel.Decoding{Temperature: 1.0}},
		cat,
		res,
		chain.NewTitleChain(factory, nil),
		chain.NewPostChain(factory, nil),
		hist,
		refs,
		postprocess.NewProcessor(postprocess.Options{StripQuestionMarks: true, BodyStripWords: []string{"內文"}}),
		postprocess.NewLabeler(postprocess.LabelPolicyRoundRobin, []string{"推", "→"}, rand.New(rand.NewSource(1))),
	)
	return &fixture{svc: svc, model: m, resolver: res, refs: refs}
}

func titleRequest() TitleRequest {
	return TitleRequest{Tag: "[討論]", Topic: "injectables", Tone: "lively"}
}

func TestGenerateTitlesFiltersHistory(t *testing.T) {
	f := newFixture(t, "1. 標題一\n2. 標題二\n- 舊標題\n標題三")

	batch, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"標題一", "標題二", "標題三"}, batch.Titles)
	assert.Equal(t, 1, batch.Blacklisted)
	assert.Equal(t, "gemini-1.5-flash", batch.Model)
	assert.Equal(t, []string{"gemini-1.5-flash"}, f.model.models)

	snap := f.svc.Snapshot()
	assert.Equal(t, batch.Titles, snap.Titles)
	assert.Equal(t, "injectables", snap.Params.TopicKey)
	assert.Empty(t, snap.Selected)
}

func TestGenerateTitlesRejectsUnknownTone(t *testing.T) {
	f := newFixture(t)

	req := titleRequest()
	req.Tone = "furious"
	_, err := f.svc.GenerateTitles(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))
	assert.Zero(t, f.resolver.resolves)
}

func TestGenerateTitlesAcceptsFreeTextTopic(t *testing.T) {
	f := newFixture(t, "皮秒到底有沒有用")

	req := titleRequest()
	req.Topic = "皮秒雷射"
	batch, err := f.svc.GenerateTitles(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"皮秒到底有沒有用"}, batch.Titles)

	require.Len(t, f.model.inputs, 1)
	var prompt strings.Builder
	for _, m := range f.model.inputs[0] {
		prompt.WriteString(m.Content)
	}
	assert.Contains(t, prompt.String(), "皮秒雷射")
}

func TestGenerateTitlesAllBlacklisted(t *testing.T) {
	f := newFixture(t, "舊標題")

	_, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeGenerationFailed, apperrors.CodeOf(err))
}

func TestGeneratePostRequiresSelection(t *testing.T) {
	f := newFixture(t, "標題一")
	_, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.NoError(t, err)

	_, err = f.svc.GeneratePost(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoTitleSelected, apperrors.CodeOf(err))
}

func TestGeneratePostProcessesResponse(t *testing.T) {
	f := newFixture(t,
		"標題一\n標題二",
		"今天去診所打了水光，效果還不錯\n[PTT_END]\n推 | 真的假的\n→ 我也想去看看\n噓: 太貴了吧?\n短",
	)
	f.refs.folder = []entity.ReferenceDoc{{Name: "a.txt", Source: entity.ReferenceSourceFolder, Kind: entity.ReferenceKindText, Content: "水光針價目表"}}
	ctx := context.Background()

	_, err := f.svc.GenerateTitles(ctx, titleRequest())
	require.NoError(t, err)

	result, err := f.svc.GeneratePost(ctx, "標題二")
	require.NoError(t, err)

	assert.Equal(t, "標題二", result.Title)
	assert.Equal(t, "今天去診所打了水光，效果還不錯", result.Body)
	assert.Equal(t, []entity.Comment{
		{Label: "推", Text: "真的假的"},
		{Label: "→", Text: "我也想去看看"},
		{Label: "推", Text: "太貴了吧"},
	}, result.Comments)

	snap := f.svc.Snapshot()
	assert.Equal(t, "標題二", snap.Selected)
	require.NotNil(t, snap.Result)
	assert.Equal(t, result.Body, snap.Result.Body)

	require.Len(t, f.model.inputs, 2)
	var prompt strings.Builder
	for _, m := range f.model.inputs[1] {
		prompt.WriteString(m.Content)
	}
	assert.Contains(t, prompt.String(), "水光針價目表")
	assert.Contains(t, prompt.String(), "[PTT_END]")
}

func TestGeneratePostRejectsUnofferedTitle(t *testing.T) {
	f := newFixture(t, "標題一")
	_, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.NoError(t, err)

	_, err = f.svc.GeneratePost(context.Background(), "別的標題")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.CodeOf(err))
}

func TestQuotaErrorInvalidatesResolution(t *testing.T) {
	f := newFixture(t)
	f.model.err = &node.ProviderStatusError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Err: errors.New("quota exhausted")}

	_, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeQuotaExceeded))
	assert.Equal(t, 1, f.resolver.invalidations)
}

func TestResolutionFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = apperrors.New(apperrors.CodeModelResolutionFailed, "no candidate model is callable")

	_, err := f.svc.GenerateTitles(context.Background(), titleRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeModelResolutionFailed, apperrors.CodeOf(err))
	assert.Empty(t, f.model.inputs)
}

func TestUploadsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	docs, skipped, err := f.svc.AddUploads(ctx, []Upload{
		{Name: "note.txt", Reader: strings.NewReader("診所筆記")},
		{Name: "image.png", Reader: strings.NewReader("x")},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, "image.png", skipped[0].Name)
	assert.Len(t, f.svc.Snapshot().Uploads, 1)

	_, _, err = f.svc.AddUploads(ctx, []Upload{{Name: "bad.png", Reader: strings.NewReader("x")}})
	assert.Equal(t, apperrors.CodeReferenceRejected, apperrors.CodeOf(err))

	f.svc.ClearUploads(ctx)
	assert.Empty(t, f.svc.Snapshot().Uploads)
}

func TestResetClearsSession(t *testing.T) {
	f := newFixture(t, "標題一")
	ctx := context.Background()
	_, err := f.svc.GenerateTitles(ctx, titleRequest())
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, "標題一")
	require.NoError(t, err)

	snap := f.svc.Reset(ctx)
	assert.Empty(t, snap.Titles)
	assert.Empty(t, snap.Selected)
}
