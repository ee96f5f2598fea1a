package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/campushub/internal/model"
)

// GetQuestion retrieves a single question by id.
func (c *Client) GetQuestion(
	ctx context.Context,
	token string,
	id string,
) (*model.Question, error) {
	var resp questionResponse
	path := "/questions/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("getting question %s: %w", id, err)
	}
	if resp.Question == nil {
		return nil, &StatusError{
			StatusCode: http.StatusNotFound,
			Method:     http.MethodGet,
			Path:       path,
			Message:    "question not found",
		}
	}

	q := resp.Question.toModel()
	if q.ID == "" {
		q.ID = id
	}
	return &q, nil
}

// ListAnswers retrieves the answers posted under a question.
func (c *Client) ListAnswers(
	ctx context.Context,
	token string,
	questionID string,
) ([]model.Answer, error) {
	var resp answersResponse
	path := "/answers/question/" + url.PathEscape(questionID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing answers for question %s: %w", questionID, err)
	}

	answers := make([]model.Answer, 0, len(resp.Answers))
	for _, r := range resp.Answers {
		answers = append(answers, r.toModel())
	}
	return answers, nil
}
