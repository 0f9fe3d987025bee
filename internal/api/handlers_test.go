package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/chat-history/internal/core"
	"gwi.com/chat-history/internal/store"
)

// failingRepo simulates a store outage on every call.
type failingRepo struct {
	err error
}

func (f *failingRepo) CreateUser(ctx context.Context, name string) (*store.User, error) {
	return nil, &store.StorageError{Op: "create user", Err: f.err}
}

func (f *failingRepo) GetUser(ctx context.Context, id string) (*store.User, error) {
	return nil, &store.StorageError{Op: "get user", Err: f.err}
}

func (f *failingRepo) CreateChatEntry(ctx context.Context, userID, userInput, appResponse string) (*store.ChatEntry, error) {
	return nil, &store.StorageError{Op: "create chat entry", Err: f.err}
}

func (f *failingRepo) ListChatHistory(ctx context.Context, userID string, order store.Order) ([]store.ChatEntry, error) {
	return nil, &store.StorageError{Op: "list chat history", Err: f.err}
}

func (f *failingRepo) Ping(ctx context.Context) error { return f.err }

func (f *failingRepo) Close() error { return nil }

type staticResponder struct {
	reply string
	err   error
}

func (s staticResponder) Respond(ctx context.Context, history []store.ChatEntry, userInput string) (string, error) {
	return s.reply, s.err
}

func newTestRouter(t *testing.T, repo store.Repository, responder core.Responder) (http.Handler, *bytes.Buffer) {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	cs := core.NewChatService(repo, responder, logger)
	return NewRouter(NewAPIHandler(cs, logger), []string{"*"}), logs
}

func newSQLiteRouter(t *testing.T, responder core.Responder) (http.Handler, *bytes.Buffer) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newTestRouter(t, db, responder)
}

func doRequest(t *testing.T, router http.Handler, method, endpoint string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	switch p := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(p))
	default:
		data, err := json.Marshal(p)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, endpoint, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestChatHistoryScenario(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Yamada"})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[store.User](t, rec)
	assert.Equal(t, "Yamada", user.Name)
	require.NotEmpty(t, user.ID)

	rec = doRequest(t, router, http.MethodPost, "/api/chat", CreateChatEntryRequest{
		UserID:      user.ID,
		UserInput:   "hello",
		AppResponse: "hi there",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[store.ChatEntry](t, rec)
	assert.Equal(t, user.ID, entry.UserID)
	assert.Equal(t, "hello", entry.UserInput)
	assert.Equal(t, "hi there", entry.AppResponse)

	rec = doRequest(t, router, http.MethodGet, "/api/chat/"+user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]store.ChatEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)

	rec = doRequest(t, router, http.MethodGet, "/api/chat/unknown-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/users/"+user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user, decode[store.User](t, rec))
}

func TestChatHistoryJSONFields(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/chat", CreateChatEntryRequest{
		UserID:      "u1",
		UserInput:   "hello",
		AppResponse: "hi",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	for _, key := range []string{"id", "userId", "userInput", "appResponse", "createdAt"} {
		assert.Contains(t, raw, key)
	}
}

func TestChatHistoryOrderParam(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	var ids []string
	for _, input := range []string{"first", "second", "third"} {
		rec := doRequest(t, router, http.MethodPost, "/api/chat", CreateChatEntryRequest{
			UserID: "u1", UserInput: input, AppResponse: "ok",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		ids = append(ids, decode[store.ChatEntry](t, rec).ID)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/chat/u1", nil)
	asc := decode[[]store.ChatEntry](t, rec)
	require.Len(t, asc, 3)
	assert.Equal(t, ids, []string{asc[0].ID, asc[1].ID, asc[2].ID})

	rec = doRequest(t, router, http.MethodGet, "/api/chat/u1?order=DESC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decode[[]store.ChatEntry](t, rec)
	require.Len(t, desc, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{desc[0].ID, desc[1].ID, desc[2].ID})

	rec = doRequest(t, router, http.MethodGet, "/api/chat/u1?order=random", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresenceChecks(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	cases := []struct {
		name     string
		endpoint string
		payload  any
	}{
		{"user missing name", "/api/users", CreateUserRequest{}},
		{"user malformed body", "/api/users", "{not json"},
		{"chat missing user", "/api/chat", CreateChatEntryRequest{UserInput: "hi", AppResponse: "hello"}},
		{"chat missing response", "/api/chat", CreateChatEntryRequest{UserID: "u1", UserInput: "hi"}},
		{"chat malformed body", "/api/chat", "[]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, tc.endpoint, tc.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestUserIDWithReservedCharacters(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	cases := []struct {
		userID   string
		endpoint string
	}{
		{"team/alice", "/api/chat/team%2Falice"},
		{"50%off", "/api/chat/50%25off"},
		{"a b/c", "/api/chat/a%20b%2Fc"},
	}
	for _, tc := range cases {
		t.Run(tc.userID, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/chat", CreateChatEntryRequest{
				UserID: tc.userID, UserInput: "hello", AppResponse: "hi",
			})
			require.Equal(t, http.StatusOK, rec.Code)
			entry := decode[store.ChatEntry](t, rec)

			rec = doRequest(t, router, http.MethodGet, tc.endpoint, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			history := decode[[]store.ChatEntry](t, rec)
			require.Len(t, history, 1)
			assert.Equal(t, entry.ID, history[0].ID)
			assert.Equal(t, tc.userID, history[0].UserID)
		})
	}
}

func TestMistypedBodyGetsEndpointMessage(t *testing.T) {
	router, logs := newSQLiteRouter(t, staticResponder{reply: "generated"})

	cases := []struct {
		endpoint string
		body     string
		message  string
	}{
		{"/api/users", `{"name":5}`, "Failed to create user"},
		{"/api/chat", `{"userId":1,"userInput":"hi","appResponse":"hello"}`, "Failed to save chat history"},
		{"/api/chat/reply", `{"userId":"u1","userInput":true}`, "Failed to generate reply"},
	}
	for _, tc := range cases {
		t.Run(tc.endpoint, func(t *testing.T) {
			logs.Reset()
			rec := doRequest(t, router, http.MethodPost, tc.endpoint, tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, ErrorResponse{Error: tc.message}, decode[ErrorResponse](t, rec))
			assert.Contains(t, logs.String(), "cannot unmarshal")
		})
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	rec := httptest.NewRecorder()
	writeJSON(rec, logger, http.StatusOK, make(chan int))

	assert.Contains(t, logs.String(), "failed to encode response")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestStoreOutageIsHidden(t *testing.T) {
	outage := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	router, logs := newTestRouter(t, &failingRepo{err: outage}, nil)

	cases := []struct {
		method   string
		endpoint string
		payload  any
		message  string
	}{
		{http.MethodPost, "/api/users", CreateUserRequest{Name: "Yamada"}, "Failed to create user"},
		{http.MethodPost, "/api/chat", CreateChatEntryRequest{UserID: "u1", UserInput: "hi", AppResponse: "hello"}, "Failed to save chat history"},
		{http.MethodGet, "/api/chat/u1", nil, "Failed to fetch chat history"},
		{http.MethodGet, "/api/users/u1", nil, "Failed to fetch user"},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			logs.Reset()
			rec := doRequest(t, router, tc.method, tc.endpoint, tc.payload)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, ErrorResponse{Error: tc.message}, decode[ErrorResponse](t, rec))
			assert.NotContains(t, rec.Body.String(), "connection refused")

			assert.Contains(t, logs.String(), "connection refused")
			assert.Contains(t, logs.String(), `"level":"ERROR"`)
		})
	}
}

func TestGetUserNotFound(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/users/unknown-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode[ErrorResponse](t, rec).Error)
}

func TestReplyEndpoint(t *testing.T) {
	router, _ := newSQLiteRouter(t, staticResponder{reply: "generated"})

	rec := doRequest(t, router, http.MethodPost, "/api/chat/reply", ReplyRequest{UserID: "u1", UserInput: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[store.ChatEntry](t, rec)
	assert.Equal(t, "generated", entry.AppResponse)
	assert.Equal(t, "hello", entry.UserInput)

	rec = doRequest(t, router, http.MethodGet, "/api/chat/u1", nil)
	history := decode[[]store.ChatEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)

	rec = doRequest(t, router, http.MethodPost, "/api/chat/reply", ReplyRequest{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplyEndpointResponderFailure(t *testing.T) {
	router, logs := newSQLiteRouter(t, staticResponder{err: errors.New("upstream 429")})

	rec := doRequest(t, router, http.MethodPost, "/api/chat/reply", ReplyRequest{UserID: "u1", UserInput: "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate reply", decode[ErrorResponse](t, rec).Error)
	assert.Contains(t, logs.String(), "upstream 429")
}

func TestReplyEndpointDisabledWithoutResponder(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/chat/reply", ReplyRequest{UserID: "u1", UserInput: "hello"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRootGreeting(t *testing.T) {
	router, _ := newSQLiteRouter(t, nil)

	rec := doRequest(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, greeting, rec.Body.String())
}

func TestHealthRouter(t *testing.T) {
	router := NewHealthRouter([]string{"*"})

	rec := doRequest(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Message: healthMessage}, decode[HealthResponse](t, rec))

	rec = doRequest(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Yamada"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := NewHealthRouter([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.True(t, strings.HasPrefix(rec.Header().Get("Access-Control-Allow-Origin"), "http://localhost:5173"))
}
