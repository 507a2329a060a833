package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/server"
	"github.com/hyperjump/ragstore/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.New(embedding.NewMockEmbedder(8))
	require.NoError(t, err)
	srv := server.NewServer(st, &config.ServerConfig{}, 2, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.Health(ctx))

	resp, err := c.Query(ctx, "anything", 5, false)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	for i, txt := range []string{"alpha", "beta", "gamma"} {
		pos, err := c.Insert(ctx, txt)
		require.NoError(t, err)
		assert.Equal(t, i, pos)
	}

	resp, err = c.Query(ctx, "beta", 0, true)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2, "server default k applies")
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "beta", resp.Results[0])
	assert.Equal(t, 1, resp.Matches[0].Position)

	rec, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "gamma", rec.Text)

	st, err := c.Status(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, "POPULATED", st.State)
	require.NotNil(t, st.Aligned)
	assert.True(t, *st.Aligned)
}

func TestClient_APIError(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Insert(ctx, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid input")

	_, err = c.Get(ctx, 9)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_Unreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Insert(context.Background(), "x")
	assert.Error(t, err)
}
