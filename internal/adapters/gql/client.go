package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/shared/config"
)

// ApiError is an RPC-level application error: the transport succeeded but
// the backend answered with a non-empty errors payload.
type ApiError struct {
	Op     string
	Detail string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Detail)
}

// ErrDeletionRefused means the delete call succeeded but the server
// declined. Distinct from a transport failure and terminal: callers must
// not retry it.
var ErrDeletionRefused = errors.New("backend refused to delete review")

const (
	loginMutation = `mutation LoginUser($email: String!, $password: String!) {
  loginUser(input: {email: $email, password: $password})
}`

	updateReviewMutation = `mutation UpdateReview($id: UUID!, $approved: Boolean!) {
  updateReview(input: {id: $id, approved: $approved}) { id }
}`

	deleteReviewMutation = `mutation DeleteReview($id: UUID!) {
  deleteReview(id: $id)
}`

	unapprovedReviewsQuery = `query UnapprovedReviews {
  reviews(filter: {approved: false}) {
    id
    occurrence { id dish { nameDe } }
    displayName
    stars
    text
    createdAt
    images { id }
  }
}`
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// Client issues authenticated GraphQL RPCs against the Mensatt backend.
// Stateless apart from its token source.
type Client struct {
	url        string
	email      string
	password   string
	httpClient *http.Client
	tokens     *TokenSource
	log        zerolog.Logger
}

// NewClient creates a backend client with its own token source.
func NewClient(cfg config.GraphQLConfig, creds config.MensattConfig, baseLogger *zerolog.Logger) *Client {
	c := &Client{
		url:        cfg.HTTPSURL,
		email:      creds.Email,
		password:   creds.Password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        baseLogger.With().Str("component", "gql_client").Logger(),
	}
	c.tokens = NewTokenSource(c.Login, cfg.TokenMargin, baseLogger)
	return c
}

// do posts one GraphQL operation and returns the raw data payload. A
// non-empty errors array maps to *ApiError. An empty token skips the
// Authorization header (login only).
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, token string) (json.RawMessage, error) {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var gr gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(gr.Errors) > 0 {
		return nil, &ApiError{Op: op, Detail: gr.Errors[0].Message}
	}
	return gr.Data, nil
}

// authed runs an operation with a fresh bearer token attached.
func (c *Client) authed(ctx context.Context, op, query string, vars map[string]any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.do(ctx, op, query, vars, token)
}

// Login performs the login mutation and returns the raw JWT. Called by the
// token source; not part of the ReviewAPI port.
func (c *Client) Login(ctx context.Context) (string, error) {
	data, err := c.do(ctx, "login", loginMutation, map[string]any{
		"email":    c.email,
		"password": c.password,
	}, "")
	if err != nil {
		return "", err
	}

	var payload struct {
		LoginUser string `json:"loginUser"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("login: decode payload: %w", err)
	}
	if payload.LoginUser == "" {
		return "", &ApiError{Op: "login", Detail: "empty token in response"}
	}
	c.log.Info().Msg("Logged in to backend")
	return payload.LoginUser, nil
}

// ListUnapproved returns all reviews awaiting moderation.
func (c *Client) ListUnapproved(ctx context.Context) ([]domain.Review, error) {
	data, err := c.authed(ctx, "list unapproved reviews", unapprovedReviewsQuery, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Reviews []wireReview `json:"reviews"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("list unapproved reviews: decode payload: %w", err)
	}

	reviews := make([]domain.Review, 0, len(payload.Reviews))
	for i := range payload.Reviews {
		reviews = append(reviews, payload.Reviews[i].toDomain())
	}
	return reviews, nil
}

// SetApproved approves or rejects a review.
func (c *Client) SetApproved(ctx context.Context, id string, approved bool) error {
	_, err := c.authed(ctx, "update review", updateReviewMutation, map[string]any{
		"id":       id,
		"approved": approved,
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("review_id", id).Bool("approved", approved).Msg("Updated review")
	return nil
}

// DeleteReview deletes a review. A successful call whose payload is false
// means the server declined; that is ErrDeletionRefused, not a transport
// error, and must not be retried.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	data, err := c.authed(ctx, "delete review", deleteReviewMutation, map[string]any{"id": id})
	if err != nil {
		return err
	}

	var payload struct {
		DeleteReview bool `json:"deleteReview"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("delete review: decode payload: %w", err)
	}
	if !payload.DeleteReview {
		return fmt.Errorf("delete review %s: %w", id, ErrDeletionRefused)
	}
	c.log.Info().Str("review_id", id).Msg("Deleted review")
	return nil
}
