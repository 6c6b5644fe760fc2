package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewNotConfigured(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{Token: "secret"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := New(Config{Token: "secret", DatabaseID: "db-1"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestPush(t *testing.T) {
	var captured []byte
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		captured, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"object":"page","id":"page-123"}`)
	}))
	defer srv.Close()

	c, err := New(Config{Token: "secret", DatabaseID: "db-1", BaseURL: srv.URL})
	require.NoError(t, err)
	c.SetHTTPClient(srv.Client())

	pageID, err := c.Push(context.Background(), Record{
		Ticker:    "AAPL",
		Side:      "Long",
		Entry:     100,
		Stop:      96,
		Target:    108,
		Shares:    250,
		RMultiple: 2.0,
		Notes:     "breakout watch",
		Report:    "para one\n\npara two",
	})
	require.NoError(t, err)
	assert.Equal(t, "page-123", pageID)

	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "2022-06-28", headers.Get("Notion-Version"))
	assert.NotEmpty(t, headers.Get("Idempotency-Key"))

	require.True(t, json.Valid(captured))
	body := gjson.ParseBytes(captured)
	assert.Equal(t, "db-1", body.Get("parent.database_id").String())
	assert.Equal(t, "AAPL", body.Get("properties.Name.title.0.text.content").String())
	assert.Equal(t, "Long", body.Get("properties.Side.select.name").String())
	assert.InDelta(t, 100, body.Get("properties.Entry.number").Float(), 1e-9)
	assert.InDelta(t, 250, body.Get("properties.Shares.number").Float(), 1e-9)
	assert.Equal(t, "Idea", body.Get("properties.Status.select.name").String())
	assert.Equal(t, "breakout watch", body.Get("properties.Notes.rich_text.0.text.content").String())
	// 报告两段落进页面 body
	require.Equal(t, int64(2), body.Get("children.#").Int())
	assert.Equal(t, "para one", body.Get("children.0.paragraph.rich_text.0.text.content").String())
}

func TestPushServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"object":"error","message":"validation failed"}`)
	}))
	defer srv.Close()

	c, err := New(Config{Token: "secret", DatabaseID: "db-1", BaseURL: srv.URL})
	require.NoError(t, err)
	c.SetHTTPClient(srv.Client())

	_, err = c.Push(context.Background(), Record{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "validation failed")
}
