package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screening-go/internal/api/handler"
	"resume-screening-go/internal/config"
	"resume-screening-go/internal/metrics"
	"resume-screening-go/internal/parser"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/reference"
	"resume-screening-go/internal/skills"
)

const testAPIKey = "secret-key"

func newTestServer(t *testing.T, keys []string) *server.Hertz {
	t.Helper()
	catalog, err := reference.NewCatalog()
	require.NoError(t, err)
	vocab, err := skills.NewVocabulary(catalog.VocabularySource())
	require.NoError(t, err)

	analyzer := processor.NewSkillAnalyzer(vocab, nil, nil,
		processor.WithTextExtractor(parser.NewDocumentExtractor(nil)),
		processor.WithCatalog(catalog),
	)
	svc := processor.NewResumeService(analyzer, nil, config.RabbitMQConfig{})

	h := server.New()
	RegisterRoutes(h, handler.NewHandler(svc, catalog, nil), Options{APIKeys: keys, Metrics: metrics.New()})
	return h
}

type part struct {
	field, filename string
	content         []byte
}

func multipartBody(t *testing.T, parts []part, fields map[string]string) (*ut.Body, ut.Header) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: w.FormDataContentType()}
}

func jsonBody(t *testing.T, v any) (*ut.Body, ut.Header) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return &ut.Body{Body: bytes.NewReader(data), Len: len(data)},
		ut.Header{Key: "Content-Type", Value: "application/json"}
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealthIsPublic(t *testing.T) {
	h := newTestServer(t, []string{testAPIKey})

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil)
	resp := w.Result()
	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, "healthy", decode(t, resp.Body())["status"])
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
}

func TestAPIKeyRequired(t *testing.T) {
	h := newTestServer(t, []string{testAPIKey})

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/model/status", nil)
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/model/status", nil,
		ut.Header{Key: "X-API-Key", Value: "wrong"})
	assert.Equal(t, consts.StatusUnauthorized, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/model/status", nil,
		ut.Header{Key: "X-API-Key", Value: testAPIKey})
	resp := w.Result()
	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, false, decode(t, resp.Body())["ml_trained"])
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil,
		ut.Header{Key: HeaderRequestID, Value: "req-123"})
	assert.Equal(t, "req-123", w.Result().Header.Get(HeaderRequestID))
}

func TestExtractSkills(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := jsonBody(t, map[string]string{"job_description": "Looking for a Python engineer with Docker and AWS"})
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/skills/extract", body, hdr)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	out := decode(t, resp.Body())
	assert.Contains(t, out["skills"], "Python")
	assert.Equal(t, "traditional", out["method"])

	body, hdr = jsonBody(t, map[string]string{})
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/skills/extract", body, hdr)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
}

func TestSearchSkills(t *testing.T) {
	h := newTestServer(t, nil)

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/skills/search?q=python", nil)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.NotEmpty(t, decode(t, resp.Body())["skills"])

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/skills/search", nil)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
}

func TestAnalyzeResume(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t, []part{{"file", "cv.txt", []byte("Python developer with 5 years of experience, Master of Science")}}, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/analyze", body, hdr)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	out := decode(t, resp.Body())
	assert.Equal(t, "cv.txt", out["filename"])
	assert.Equal(t, "5 years", out["experience"])
	assert.Equal(t, "Master's Degree", out["education"])
	assert.Contains(t, out["skills"], "Python")
	assert.NotEmpty(t, out["id"])
}

func TestAnalyzeResumeRejectsInput(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t, nil, map[string]string{"other": "x"})
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/analyze", body, hdr)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	body, hdr = multipartBody(t, []part{{"file", "cv.exe", []byte("MZ")}}, nil)
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/analyze", body, hdr)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())

	// 损坏的 docx
	body, hdr = multipartBody(t, []part{{"file", "cv.docx", []byte("not a zip")}}, nil)
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/analyze", body, hdr)
	resp := w.Result()
	assert.Equal(t, consts.StatusUnprocessableEntity, resp.StatusCode())
	assert.NotEmpty(t, decode(t, resp.Body())["error"])
}

func TestBatchAnalyzeSync(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t, []part{
		{"files", "a.txt", []byte("Java and SQL")},
		{"files", "b.docx", []byte("broken")},
	}, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/batch", body, hdr)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))

	out := decode(t, resp.Body())
	assert.EqualValues(t, 2, out["total_resumes"])
	assert.Equal(t, "partial", out["status"])
	results := out["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0].(map[string]any)["success"])
	assert.Equal(t, "corrupt_document", results[1].(map[string]any)["error_kind"])
}

func TestBatchAnalyzeSync_InvalidTypeIsPerItem(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t, []part{
		{"files", "a.txt", []byte("Python and Docker")},
		{"files", "b.exe", []byte("MZ")},
		{"files", "c.txt", []byte("Java")},
	}, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/batch", body, hdr)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))

	out := decode(t, resp.Body())
	assert.EqualValues(t, 3, out["total_resumes"])
	assert.EqualValues(t, 2, out["succeeded"])
	assert.EqualValues(t, 1, out["failed"])
	assert.Equal(t, "partial", out["status"])

	results := out["results"].([]any)
	require.Len(t, results, 3)
	for i, name := range []string{"a.txt", "b.exe", "c.txt"} {
		item := results[i].(map[string]any)
		assert.EqualValues(t, i, item["index"])
		assert.Equal(t, name, item["filename"])
	}
	assert.Equal(t, true, results[0].(map[string]any)["success"])
	assert.Equal(t, false, results[1].(map[string]any)["success"])
	assert.Equal(t, "unsupported_format", results[1].(map[string]any)["error_kind"])
	assert.Equal(t, true, results[2].(map[string]any)["success"])
}

func TestBatchAnalyzeAsyncUnavailable(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t, []part{{"files", "a.txt", []byte("Go")}}, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/batch?async=true", body, hdr)
	assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/resumes/batch/abc", nil)
	assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode())
}

func TestBatchAnalyzeNoFiles(t *testing.T) {
	h := newTestServer(t, nil)
	body, hdr := multipartBody(t, nil, map[string]string{"x": "y"})
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/batch", body, hdr)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
}

func TestMatchResume(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := multipartBody(t,
		[]part{{"resume_file", "cv.txt", []byte("Python and Docker")}},
		map[string]string{"job_description": "Python, Docker, Kubernetes and AWS"})
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/match", body, hdr)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	out := decode(t, resp.Body())
	assert.Subset(t, out["matched_skills"], []any{"python", "docker"})
	assert.Greater(t, out["match_score"].(float64), 0.0)
	assert.Less(t, out["match_score"].(float64), 100.0)

	body, hdr = multipartBody(t, []part{{"resume_file", "cv.txt", []byte("Python")}}, nil)
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resumes/match", body, hdr)
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
}

func TestJobsEndpoints(t *testing.T) {
	h := newTestServer(t, nil)

	body, hdr := jsonBody(t, map[string]any{"skills": []string{}})
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/jobs/recommend", body, hdr)
	resp := w.Result()
	assert.Equal(t, consts.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "No skills provided", decode(t, resp.Body())["error"])

	body, hdr = jsonBody(t, map[string]any{"skills": []string{"Python", "React", "Docker"}})
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/jobs/recommend", body, hdr)
	resp = w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Contains(t, decode(t, resp.Body()), "recommendations")

	body, hdr = jsonBody(t, map[string]any{"skills": []string{"Python", "Docker"}})
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/jobs/rank", body, hdr)
	resp = w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Len(t, decode(t, resp.Body())["rankings"], 14)

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/jobs/templates", nil)
	resp = w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Len(t, decode(t, resp.Body())["titles"], 14)

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/jobs/templates/DevOps%20Engineer/skills", nil)
	resp = w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))
	assert.NotEmpty(t, decode(t, resp.Body())["skills"])

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/jobs/templates/astronaut/skills", nil)
	assert.Equal(t, consts.StatusNotFound, w.Result().StatusCode())
}

func TestTrainModelWithoutCorpus(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/model/train", nil)
	assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode())
}
