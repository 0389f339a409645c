package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"learn-quiz-service/internal/domain"
)

// Client talks to the quiz HTTP API on behalf of one authenticated user.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func New(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a decoded error envelope. It unwraps to the matching domain
// sentinel so callers can use errors.Is across the wire.
type APIError struct {
	Status  int
	Code    domain.Kind
	Message string
	err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

func (c *Client) FetchQuiz(ctx context.Context, quizID, lang string, mode domain.Mode) (domain.IssuedQuiz, error) {
	q := url.Values{}
	if lang != "" {
		q.Set("lang", lang)
	}
	if mode != "" {
		q.Set("mode", string(mode))
	}
	path := "/quiz/" + url.PathEscape(quizID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out domain.IssuedQuiz
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Submit(ctx context.Context, quizID, token string, answers []domain.AnswerSubmission, lang string) (domain.SubmitResult, error) {
	if answers == nil {
		answers = []domain.AnswerSubmission{}
	}
	body := map[string]any{"token": token, "answers": answers, "lang": lang}
	var out domain.SubmitResult
	err := c.do(ctx, http.MethodPost, "/quiz/"+url.PathEscape(quizID)+"/submit", body, &out)
	return out, err
}

func (c *Client) Attempts(ctx context.Context, limit int) ([]domain.Attempt, error) {
	path := "/attempts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Attempts []domain.Attempt `json:"attempts"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Attempts, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    domain.Kind `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: domain.KindInternal, Message: resp.Status}
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	apiErr.err = domain.SentinelFor(apiErr.Code, apiErr.Message)
	return apiErr
}
