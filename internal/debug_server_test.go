package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSearchHandler_Returns_Matching_Message_IDs(t *testing.T) {
	req := require.New(t)

	// Given a search function scoped to one conversation
	conversationID := uuid.New()
	matchID := uuid.New()
	handler := SearchHandler(func(_ context.Context, terms string, conversation uuid.UUID, limit int) ([]uuid.UUID, uint64, error) {
		req.Equal("delivery", terms)
		req.Equal(conversationID, conversation)
		req.Equal(5, limit)
		return []uuid.UUID{matchID}, 1, nil
	})

	// When querying the search endpoint
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/search?q=delivery&conversation="+conversationID.String()+"&limit=5", nil)
	handler(recorder, request)

	// Then the match is returned as JSON
	req.Equal(http.StatusOK, recorder.Code)
	var body struct {
		Query      string   `json:"query"`
		Total      uint64   `json:"total"`
		MessageIDs []string `json:"messageIds"`
	}
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	req.Equal("delivery", body.Query)
	req.Equal(uint64(1), body.Total)
	req.Equal([]string{matchID.String()}, body.MessageIDs)
}

func TestSearchHandler_Rejects_Missing_Query(t *testing.T) {
	req := require.New(t)

	// Given a handler whose search function must never run
	handler := SearchHandler(func(context.Context, string, uuid.UUID, int) ([]uuid.UUID, uint64, error) {
		t.Fatal("search should not be called without a query")
		return nil, 0, nil
	})

	// When querying without q
	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodGet, "/search", nil))

	// Then the request is rejected
	req.Equal(http.StatusBadRequest, recorder.Code)
}
