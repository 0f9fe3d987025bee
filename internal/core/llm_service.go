package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gwi.com/chat-history/internal/store"
)

const (
	maxHistoryTurns = 10

	chatSystemInstruction = "You are a friendly conversational assistant. " +
		"Keep your answers concise and consistent with the earlier turns of the conversation."

	emptyResponseFallback = "I'm sorry, I couldn't generate a response at this time. Please try again."
)

// LLMService is a Responder backed by Gemini.
type LLMService struct {
	client    *genai.Client
	modelName string
}

func NewLLMService(ctx context.Context, apiKey, modelName string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:    client,
		modelName: modelName,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			slog.Error("error closing GenAI client", "error", err)
		}
	}
}

func (s *LLMService) Respond(ctx context.Context, history []store.ChatEntry, userInput string) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction)},
	}

	chatSession := model.StartChat()
	chatSession.History = buildPromptHistory(history)

	resp, err := chatSession.SendMessage(ctx, genai.Text(userInput))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		slog.Warn("gemini response was empty or had no valid candidates")
		return emptyResponseFallback, nil
	}

	text := responseText(resp.Candidates[0].Content)
	if text == "" {
		slog.Warn("gemini response had no text parts")
		return emptyResponseFallback, nil
	}
	return text, nil
}

// buildPromptHistory turns the most recent stored turns into alternating
// user/model contents, oldest first.
func buildPromptHistory(history []store.ChatEntry) []*genai.Content {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	contents := make([]*genai.Content, 0, 2*len(history))
	for _, entry := range history {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(entry.UserInput)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(entry.AppResponse)}},
		)
	}
	return contents
}

func responseText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		} else {
			slog.Debug("skipping non-text gemini response part", "type", fmt.Sprintf("%T", part))
		}
	}
	return b.String()
}
