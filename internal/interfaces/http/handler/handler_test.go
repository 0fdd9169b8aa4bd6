package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt-copy-ai/internal/application/copywriter"
	"ptt-copy-ai/internal/domain/entity"
	"ptt-copy-ai/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCopywriter struct {
	titlesErr  error
	postErr    error
	lastTitles copywriter.TitleRequest
	uploaded   []string
}

func (f *fakeCopywriter) Catalog() *entity.Catalog {
	return &entity.Catalog{
		Topics: []entity.Topic{{Key: "surgery", Name: "整形手術"}},
		Tones:  []entity.Tone{{Key: "lively", Name: "活潑", Level: 2}, {Key: "mild", Name: "溫和", Level: 1}},
		Tags:   []string{"[討論]"},
	}
}

func (f *fakeCopywriter) Snapshot() entity.Session { return entity.Session{ID: "s1"} }

func (f *fakeCopywriter) Reset(context.Context) entity.Session { return entity.Session{ID: "s1"} }

func (f *fakeCopywriter) Select(_ context.Context, title string) (entity.Session, error) {
	if title != "標題一" {
		return entity.Session{}, errors.New(errors.CodeInvalidParam, "title is not one of the current candidates")
	}
	return entity.Session{ID: "s1", Selected: title}, nil
}

func (f *fakeCopywriter) GenerateTitles(_ context.Context, req copywriter.TitleRequest) (*entity.TitleBatch, error) {
	f.lastTitles = req
	if f.titlesErr != nil {
		return nil, f.titlesErr
	}
	return &entity.TitleBatch{Titles: []string{"標題一"}, Model: "gemini-1.5-flash"}, nil
}

func (f *fakeCopywriter) GeneratePost(_ context.Context, title string) (*entity.GenerationResult, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	return &entity.GenerationResult{
		Title:    "標題一",
		Body:     "內容",
		Comments: []entity.Comment{{Label: "推", Text: "真的假的"}},
	}, nil
}

func (f *fakeCopywriter) AddUploads(_ context.Context, files []copywriter.Upload) ([]entity.ReferenceDoc, []entity.SkippedReference, error) {
	var docs []entity.ReferenceDoc
	for _, u := range files {
		data, _ := io.ReadAll(u.Reader)
		f.uploaded = append(f.uploaded, u.Name+"="+string(data))
		docs = append(docs, entity.ReferenceDoc{Name: u.Name, Source: entity.ReferenceSourceUpload})
	}
	return docs, nil, nil
}

func (f *fakeCopywriter) ClearUploads(context.Context) {}

type fakeResolver struct {
	err     error
	current *entity.Resolution
}

func (r *fakeResolver) Resolve(context.Context, string) (*entity.Resolution, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &entity.Resolution{Provider: "gemini", Model: "gemini-1.5-pro"}, nil
}

func (r *fakeResolver) Refresh(ctx context.Context, p string) (*entity.Resolution, error) {
	return r.Resolve(ctx, p)
}

func (r *fakeResolver) Current(context.Context, string) (*entity.Resolution, bool, error) {
	return r.current, r.current != nil, nil
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   struct {
		ErrorCode   string   `json:"error_code"`
		CauseCode   string   `json:"cause_code"`
		Details     string   `json:"details"`
		Retryable   bool     `json:"retryable"`
		Suggestions []string `json:"suggestions"`
	} `json:"error"`
}

func serve(r *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionEngine(svc *fakeCopywriter) *gin.Engine {
	h := NewSessionHandler(svc)
	r := gin.New()
	r.GET("/v1/catalog", h.GetCatalog)
	r.POST("/v1/session/titles", h.GenerateTitles)
	r.POST("/v1/session/select", h.SelectTitle)
	r.POST("/v1/session/post", h.GeneratePost)
	return r
}

func TestGenerateTitlesHandler(t *testing.T) {
	svc := &fakeCopywriter{}
	w := serve(sessionEngine(svc), http.MethodPost, "/v1/session/titles",
		strings.NewReader(`{"tag":"[討論]","topic":"surgery","tone":"lively"}`), "application/json")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "標題一")
	assert.Equal(t, "surgery", svc.lastTitles.Topic)
}

func TestGenerateTitlesHandlerValidatesBody(t *testing.T) {
	w := serve(sessionEngine(&fakeCopywriter{}), http.MethodPost, "/v1/session/titles",
		strings.NewReader(`{"topic":"surgery"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerMapsQuotaError(t *testing.T) {
	cause := errors.New(errors.CodeQuotaExceeded, "llm quota exceeded").WithDetail("RESOURCE_EXHAUSTED: daily limit")
	svc := &fakeCopywriter{titlesErr: cause}
	w := serve(sessionEngine(svc), http.MethodPost, "/v1/session/titles",
		strings.NewReader(`{"tag":"[討論]","topic":"surgery","tone":"lively"}`), "application/json")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(errors.CodeQuotaExceeded), body.Error.ErrorCode)
	assert.Contains(t, body.Error.Details, "RESOURCE_EXHAUSTED")
	assert.True(t, body.Error.Retryable)
}

func TestHandlerReportsQuotaBehindResolutionFailure(t *testing.T) {
	quota := errors.New(errors.CodeQuotaExceeded, "llm quota exceeded").WithDetail("RESOURCE_EXHAUSTED")
	svc := &fakeCopywriter{titlesErr: errors.Wrap(quota, errors.CodeModelResolutionFailed, "no candidate model is callable")}
	w := serve(sessionEngine(svc), http.MethodPost, "/v1/session/titles",
		strings.NewReader(`{"tag":"[討論]","topic":"surgery","tone":"lively"}`), "application/json")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(errors.CodeModelResolutionFailed), body.Error.ErrorCode)
	assert.Equal(t, string(errors.CodeQuotaExceeded), body.Error.CauseCode)
	assert.True(t, body.Error.Retryable)
	assert.Contains(t, body.Error.Suggestions, "wait for the quota to reset")
}

func TestHandlerMapsUnknownErrorTo500(t *testing.T) {
	svc := &fakeCopywriter{postErr: io.ErrUnexpectedEOF}
	w := serve(sessionEngine(svc), http.MethodPost, "/v1/session/post", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGeneratePostHandlerFormatsPTT(t *testing.T) {
	w := serve(sessionEngine(&fakeCopywriter{}), http.MethodPost, "/v1/session/post", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Title     string `json:"title"`
			Formatted string `json:"formatted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "標題一", body.Data.Title)
	assert.Equal(t, "標題一\n\n內容\n\n推 | 真的假的", body.Data.Formatted)
}

func TestSelectTitleHandler(t *testing.T) {
	r := sessionEngine(&fakeCopywriter{})
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/v1/session/select", strings.NewReader(`{"title":"標題一"}`), "application/json").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/v1/session/select", strings.NewReader(`{"title":"其他"}`), "application/json").Code)
}

func TestCatalogHandlerOrdersTones(t *testing.T) {
	w := serve(sessionEngine(&fakeCopywriter{}), http.MethodGet, "/v1/catalog", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"mild"`), strings.Index(body, `"lively"`))
}

func TestReferenceUploadHandler(t *testing.T) {
	svc := &fakeCopywriter{}
	h := NewReferenceHandler(svc, 1<<20)
	r := gin.New()
	r.POST("/v1/session/references", h.Upload)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "note.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("診所筆記"))
	require.NoError(t, mw.Close())

	w := serve(r, http.MethodPost, "/v1/session/references", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"note.txt=診所筆記"}, svc.uploaded)

	w = serve(r, http.MethodPost, "/v1/session/references", strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelHandler(t *testing.T) {
	res := &fakeResolver{}
	h := NewModelHandler(res, "gemini")
	r := gin.New()
	r.GET("/v1/models", h.GetResolution)

	w := serve(r, http.MethodGet, "/v1/models", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gemini-1.5-pro")

	res.err = errors.New(errors.CodeModelResolutionFailed, "no candidate model is callable")
	w = serve(r, http.MethodGet, "/v1/models", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyWithoutRedis(t *testing.T) {
	h := NewHealthHandler(nil, &fakeResolver{current: &entity.Resolution{Model: "gemini-1.5-pro"}}, "gemini", "v1")
	r := gin.New()
	r.GET("/ready", h.Ready)

	w := serve(r, http.MethodGet, "/ready", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)
	assert.Contains(t, w.Body.String(), "gemini-1.5-pro")
}
