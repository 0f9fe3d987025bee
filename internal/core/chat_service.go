package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gwi.com/chat-history/internal/store"
)

var ErrResponderUnavailable = errors.New("no responder configured")

// Responder produces the app's answer to a user's input, given that user's
// earlier turns oldest first.
type Responder interface {
	Respond(ctx context.Context, history []store.ChatEntry, userInput string) (string, error)
}

type ChatService struct {
	repo      store.Repository
	responder Responder
	logger    *slog.Logger
}

// NewChatService wires the service to its store. responder may be nil, in
// which case Reply returns ErrResponderUnavailable.
func NewChatService(repo store.Repository, responder Responder, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		repo:      repo,
		responder: responder,
		logger:    logger,
	}
}

func (s *ChatService) HasResponder() bool {
	return s.responder != nil
}

func (s *ChatService) CreateUser(ctx context.Context, name string) (*store.User, error) {
	return s.repo.CreateUser(ctx, name)
}

func (s *ChatService) GetUser(ctx context.Context, id string) (*store.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *ChatService) SaveChatEntry(ctx context.Context, userID, userInput, appResponse string) (*store.ChatEntry, error) {
	return s.repo.CreateChatEntry(ctx, userID, userInput, appResponse)
}

func (s *ChatService) ChatHistory(ctx context.Context, userID string, order store.Order) ([]store.ChatEntry, error) {
	return s.repo.ListChatHistory(ctx, userID, order)
}

// Reply asks the responder for an answer to userInput and records the turn.
// Nothing is stored when the responder fails.
func (s *ChatService) Reply(ctx context.Context, userID, userInput string) (*store.ChatEntry, error) {
	if s.responder == nil {
		return nil, ErrResponderUnavailable
	}

	history, err := s.repo.ListChatHistory(ctx, userID, store.Ascending)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	appResponse, err := s.responder.Respond(ctx, history, userInput)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	s.logger.Debug("generated response", "user_id", userID, "history_len", len(history))

	entry, err := s.repo.CreateChatEntry(ctx, userID, userInput, appResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to store chat entry: %w", err)
	}
	return entry, nil
}
