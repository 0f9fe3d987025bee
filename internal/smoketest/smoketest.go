// Package smoketest runs the create-user, save-turn, read-back scenario against
// either the store directly or a running API server.
package smoketest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"gwi.com/chat-history/internal/store"
)

const (
	UserName    = "Yamada"
	UserInput   = "Hello, how are you?"
	AppResponse = "I'm fine, thank you."
)

type Result struct {
	User    store.User
	Entry   store.ChatEntry
	History []store.ChatEntry
}

func (r *Result) verify() error {
	if r.User.ID == "" || r.User.Name != UserName {
		return fmt.Errorf("unexpected user %+v", r.User)
	}
	if r.Entry.UserID != r.User.ID || r.Entry.UserInput != UserInput || r.Entry.AppResponse != AppResponse {
		return fmt.Errorf("unexpected chat entry %+v", r.Entry)
	}
	if len(r.History) == 0 || r.History[0].ID != r.Entry.ID {
		return fmt.Errorf("newest history entry is not the one just saved (got %d entries)", len(r.History))
	}
	return nil
}

// RunStore talks to the store directly.
func RunStore(ctx context.Context, repo store.Repository, logger *slog.Logger) (*Result, error) {
	user, err := repo.CreateUser(ctx, UserName)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.Info("created user", "id", user.ID, "name", user.Name)

	entry, err := repo.CreateChatEntry(ctx, user.ID, UserInput, AppResponse)
	if err != nil {
		return nil, fmt.Errorf("save chat entry: %w", err)
	}
	logger.Info("saved chat entry", "id", entry.ID, "user_id", entry.UserID)

	found, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	logger.Info("found user", "id", found.ID, "name", found.Name)

	history, err := repo.ListChatHistory(ctx, user.ID, store.Descending)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	logger.Info("fetched chat history", "user_id", user.ID, "entries", len(history))

	res := &Result{User: *found, Entry: *entry, History: history}
	return res, res.verify()
}

type apiError struct {
	Error string `json:"error"`
}

type APIClient struct {
	client *resty.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *APIClient) do(req *resty.Request, method, endpoint string) error {
	var errResp apiError
	res, err := req.SetError(&errResp).Execute(method, endpoint)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, res.StatusCode(), errResp.Error)
	}
	return nil
}

// RunAPI runs the same scenario over HTTP.
func (c *APIClient) RunAPI(ctx context.Context, logger *slog.Logger) (*Result, error) {
	var res Result

	err := c.do(c.client.R().SetContext(ctx).
		SetBody(map[string]string{"name": UserName}).
		SetResult(&res.User), resty.MethodPost, "/api/users")
	if err != nil {
		return nil, err
	}
	logger.Info("created user", "id", res.User.ID, "name", res.User.Name)

	err = c.do(c.client.R().SetContext(ctx).
		SetBody(map[string]string{
			"userId":      res.User.ID,
			"userInput":   UserInput,
			"appResponse": AppResponse,
		}).
		SetResult(&res.Entry), resty.MethodPost, "/api/chat")
	if err != nil {
		return nil, err
	}
	logger.Info("saved chat entry", "id", res.Entry.ID, "user_id", res.Entry.UserID)

	var found store.User
	err = c.do(c.client.R().SetContext(ctx).
		SetPathParam("userID", res.User.ID).
		SetResult(&found), resty.MethodGet, "/api/users/{userID}")
	if err != nil {
		return nil, err
	}
	logger.Info("found user", "id", found.ID, "name", found.Name)

	err = c.do(c.client.R().SetContext(ctx).
		SetPathParam("userID", res.User.ID).
		SetQueryParam("order", string(store.Descending)).
		SetResult(&res.History), resty.MethodGet, "/api/chat/{userID}")
	if err != nil {
		return nil, err
	}
	logger.Info("fetched chat history", "user_id", res.User.ID, "entries", len(res.History))

	return &res, res.verify()
}
