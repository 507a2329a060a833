package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/store"
)

// synonymEmbedder puts each concept on its own axis.
type synonymEmbedder struct{}

var synonymAxes = map[string]int{
	"cat": 0, "feline": 0, "mat": 1, "rug": 1, "dogs": 2, "loyal": 3, "animals": 3,
}

func (synonymEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 5)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if axis, ok := synonymAxes[w]; ok {
			vec[axis]++
		}
	}
	vec[4] = 0.1
	return vec, nil
}

func (synonymEmbedder) Dimensions() int   { return 5 }
func (synonymEmbedder) ModelName() string { return "synonyms" }

// wrongDimEmbedder always returns one dimension too many.
type wrongDimEmbedder struct{}

func (wrongDimEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}
func (wrongDimEmbedder) Dimensions() int   { return 3 }
func (wrongDimEmbedder) ModelName() string { return "wrong" }

func newTestServer(t *testing.T, emb store.Embedder) (*Server, *store.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st, err := store.New(emb, store.WithLogger(logger))
	require.NoError(t, err)
	srv := NewServer(st, &config.ServerConfig{Host: "localhost", Port: 8000}, 3, logger)
	return srv, st
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandlers_InsertAndQueryScenario(t *testing.T) {
	srv, _ := newTestServer(t, synonymEmbedder{})
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/query", map[string]interface{}{"query": "anything", "k": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/insert", models.InsertRequest{Text: "the cat sat on the mat"})
	require.Equal(t, http.StatusCreated, w.Code)
	ins := decode[models.InsertResponse](t, w)
	assert.Equal(t, 0, ins.Position)
	assert.Equal(t, "ok", ins.Status)

	w = do(t, h, http.MethodPost, "/insert", models.InsertRequest{Text: "dogs are loyal animals"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[models.InsertResponse](t, w).Position)

	w = do(t, h, http.MethodPost, "/query", map[string]interface{}{"query": "feline on a rug", "k": 1})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.QueryResponse](t, w)
	assert.Equal(t, []string{"the cat sat on the mat"}, resp.Results)
	assert.Nil(t, resp.Matches)
}

func TestHandlers_QueryDefaultKAndScores(t *testing.T) {
	srv, st := newTestServer(t, embedding.NewMockEmbedder(8))
	for _, txt := range []string{"a", "b", "c", "d"} {
		_, err := st.Insert(context.Background(), txt)
		require.NoError(t, err)
	}
	w := do(t, srv.Handler(), http.MethodPost, "/query", map[string]interface{}{"query": "a", "with_scores": true})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.QueryResponse](t, w)
	assert.Len(t, resp.Results, 3)
	require.Len(t, resp.Matches, 3)
	assert.Equal(t, "a", resp.Matches[0].Text)
	assert.Equal(t, 0, resp.Matches[0].Position)
	assert.InDelta(t, 1.0, resp.Matches[0].Score, 1e-5)
	for i, m := range resp.Matches {
		assert.Equal(t, resp.Results[i], m.Text)
	}
}

func TestHandlers_BadRequests(t *testing.T) {
	srv, st := newTestServer(t, embedding.NewMockEmbedder(8))
	h := srv.Handler()

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"insert malformed json", "/insert", "{"},
		{"insert blank text", "/insert", models.InsertRequest{Text: "   "}},
		{"query malformed json", "/query", "not json"},
		{"query zero k", "/query", map[string]interface{}{"query": "x", "k": 0}},
		{"query negative k", "/query", map[string]interface{}{"query": "x", "k": -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[models.ErrorResponse](t, w).Error)
		})
	}

	_, err := st.Insert(context.Background(), "present")
	require.NoError(t, err)
	w := do(t, h, http.MethodPost, "/query", map[string]interface{}{"query": " ", "k": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code, "blank query on a populated store")
}

func TestHandlers_GetRecord(t *testing.T) {
	srv, st := newTestServer(t, embedding.NewMockEmbedder(8))
	h := srv.Handler()
	_, err := st.Insert(context.Background(), "stored verbatim ")
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/records/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[models.RecordResponse](t, w)
	assert.Equal(t, "stored verbatim ", rec.Text)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/records/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/records/-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/records/abc", nil).Code)
}

func TestHandlers_DimensionMismatchHalts(t *testing.T) {
	srv, _ := newTestServer(t, wrongDimEmbedder{})
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/insert", models.InsertRequest{Text: "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, h, http.MethodPost, "/insert", models.InsertRequest{Text: "y"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[models.StatusResponse](t, w)
	assert.True(t, st.Halted)
	assert.Equal(t, "EMPTY", st.State)
}

func TestHandlers_Status(t *testing.T) {
	srv, st := newTestServer(t, embedding.NewMockEmbedder(8))
	h := srv.Handler()
	_, err := st.Insert(context.Background(), "one")
	require.NoError(t, err)

	w := do(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.StatusResponse](t, w)
	assert.Equal(t, st.ID(), resp.InstanceID)
	assert.Equal(t, 1, resp.Records)
	assert.Equal(t, 8, resp.Dimensions)
	assert.Equal(t, "POPULATED", resp.State)
	assert.Equal(t, "flat", resp.IndexType)
	assert.Equal(t, "mock", resp.Model)
	assert.Nil(t, resp.Aligned)

	w = do(t, h, http.MethodGet, "/status?verify=true", nil)
	resp = decode[models.StatusResponse](t, w)
	require.NotNil(t, resp.Aligned)
	assert.True(t, *resp.Aligned)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{context.Canceled, statusClientClosedRequest},
		{fmt.Errorf("embed: %w", context.Canceled), statusClientClosedRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{store.ErrInvalidInput, http.StatusBadRequest},
		{store.ErrStoreHalted, http.StatusServiceUnavailable},
		{store.ErrEmbedding, http.StatusBadGateway},
		{store.ErrPositionNotFound, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}

func TestHandlers_InsertClientGone(t *testing.T) {
	srv, st := newTestServer(t, embedding.NewMockEmbedder(8))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := httptest.NewRequest(http.MethodPost, "/insert", strings.NewReader(`{"text":"hello"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, statusClientClosedRequest, w.Code)
	assert.Equal(t, 0, st.Size())
}

func TestHandlers_Health(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewMockEmbedder(8))
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_ServeAndStop(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewMockEmbedder(8))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-done, "graceful stop is not an error")
}
