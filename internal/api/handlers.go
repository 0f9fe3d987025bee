package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"gwi.com/chat-history/internal/core"
	"gwi.com/chat-history/internal/store"
)

const (
	greeting      = "Chat history API is running"
	healthMessage = "Server is running"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type APIHandler struct {
	chatService *core.ChatService
	logger      *slog.Logger
}

func NewAPIHandler(cs *core.ChatService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{chatService: cs, logger: logger}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, h.logger, status, data)
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, h.logger, status, ErrorResponse{Error: message})
}

// decodeBody reads a JSON request body. A body that does not decode gets the
// endpoint's own failure message; the decoder's detail only goes to the log.
func (h *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, dest any, failure string) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.logger.Warn("failed to decode request body", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusBadRequest, failure)
		return false
	}
	return true
}

// userIDParam returns the decoded userID path segment. chi matches on the raw
// path whenever it differs from the decoded one, so an id like "team/alice"
// arrives as "team%2Falice".
func (h *APIHandler) userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if r.URL.RawPath == "" {
		return userID, true
	}
	decoded, err := url.PathUnescape(userID)
	if err != nil {
		h.logger.Warn("invalid user id in path", "user_id", userID, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid user id")
		return "", false
	}
	return decoded, true
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(greeting))
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, slog.Default(), http.StatusOK, HealthResponse{Message: healthMessage})
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeBody(w, r, &req, "Failed to create user") {
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := h.chatService.CreateUser(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to create user", "name", req.Name, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.chatService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to fetch user", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

type CreateChatEntryRequest struct {
	UserID      string `json:"userId"`
	UserInput   string `json:"userInput"`
	AppResponse string `json:"appResponse"`
}

func (h *APIHandler) CreateChatEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateChatEntryRequest
	if !h.decodeBody(w, r, &req, "Failed to save chat history") {
		return
	}
	if req.UserID == "" || req.UserInput == "" || req.AppResponse == "" {
		h.writeError(w, http.StatusBadRequest, "userId, userInput and appResponse are required")
		return
	}

	entry, err := h.chatService.SaveChatEntry(r.Context(), req.UserID, req.UserInput, req.AppResponse)
	if err != nil {
		h.logger.Error("failed to save chat history", "user_id", req.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save chat history")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

type ChatHistoryQuery struct {
	Order string `schema:"order"`
}

func (h *APIHandler) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var query ChatHistoryQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	order := store.Ascending
	if query.Order != "" {
		order = store.Order(strings.ToLower(query.Order))
		if !order.Valid() {
			h.writeError(w, http.StatusBadRequest, "order must be asc or desc")
			return
		}
	}

	history, err := h.chatService.ChatHistory(r.Context(), userID, order)
	if err != nil {
		h.logger.Error("failed to fetch chat history", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch chat history")
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

type ReplyRequest struct {
	UserID    string `json:"userId"`
	UserInput string `json:"userInput"`
}

func (h *APIHandler) ReplyHandler(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if !h.decodeBody(w, r, &req, "Failed to generate reply") {
		return
	}
	if req.UserID == "" || req.UserInput == "" {
		h.writeError(w, http.StatusBadRequest, "userId and userInput are required")
		return
	}

	entry, err := h.chatService.Reply(r.Context(), req.UserID, req.UserInput)
	if err != nil {
		h.logger.Error("failed to generate reply", "user_id", req.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to generate reply")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}
