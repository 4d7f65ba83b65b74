package gql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensatt/notifier/internal/shared/config"
)

type recordedRequest struct {
	auth  string
	query string
	vars  map[string]any
}

// newBackend starts a fake GraphQL endpoint. responses are served in order;
// each request is recorded.
func newBackend(t *testing.T, responses ...string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		recorded = append(recorded, recordedRequest{
			auth:  r.Header.Get("Authorization"),
			query: req.Query,
			vars:  req.Variables,
		})

		require.Less(t, i, len(responses), "unexpected extra request")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responses[i]))
		i++
	}))
	t.Cleanup(srv.Close)
	return srv, &recorded
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	nopLogger := zerolog.Nop()
	return NewClient(
		config.GraphQLConfig{HTTPSURL: url, TokenMargin: 30 * time.Second},
		config.MensattConfig{Email: "bot@mensatt.de", Password: "hunter2"},
		&nopLogger,
	)
}

func loginResponse(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return `{"data":{"loginUser":"` + signed + `"}}`
}

func TestClientLogin(t *testing.T) {
	srv, recorded := newBackend(t, loginResponse(t))
	client := newTestClient(t, srv.URL)

	token, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.Len(t, *recorded, 1)
	req := (*recorded)[0]
	assert.Empty(t, req.auth, "login must not carry an Authorization header")
	assert.Equal(t, "bot@mensatt.de", req.vars["email"])
	assert.Equal(t, "hunter2", req.vars["password"])
}

func TestClientSetApproved(t *testing.T) {
	srv, recorded := newBackend(t,
		loginResponse(t),
		`{"data":{"updateReview":{"id":"r1"}}}`,
	)
	client := newTestClient(t, srv.URL)

	require.NoError(t, client.SetApproved(context.Background(), "r1", true))

	require.Len(t, *recorded, 2)
	update := (*recorded)[1]
	assert.Contains(t, update.auth, "Bearer ")
	assert.Equal(t, "r1", update.vars["id"])
	assert.Equal(t, true, update.vars["approved"])
}

func TestClientSetApproved_TokenIsReused(t *testing.T) {
	srv, recorded := newBackend(t,
		loginResponse(t),
		`{"data":{"updateReview":{"id":"r1"}}}`,
		`{"data":{"updateReview":{"id":"r2"}}}`,
	)
	client := newTestClient(t, srv.URL)

	require.NoError(t, client.SetApproved(context.Background(), "r1", true))
	require.NoError(t, client.SetApproved(context.Background(), "r2", false))

	// One login, two mutations. No re-login between calls.
	require.Len(t, *recorded, 3)
	assert.Equal(t, (*recorded)[1].auth, (*recorded)[2].auth)
}

func TestClientDeleteReview(t *testing.T) {
	srv, _ := newBackend(t,
		loginResponse(t),
		`{"data":{"deleteReview":true}}`,
	)
	client := newTestClient(t, srv.URL)

	require.NoError(t, client.DeleteReview(context.Background(), "r1"))
}

func TestClientDeleteReview_Refused(t *testing.T) {
	srv, _ := newBackend(t,
		loginResponse(t),
		`{"data":{"deleteReview":false}}`,
	)
	client := newTestClient(t, srv.URL)

	err := client.DeleteReview(context.Background(), "r1")
	require.ErrorIs(t, err, ErrDeletionRefused)
}

func TestClientGraphQLErrors(t *testing.T) {
	srv, _ := newBackend(t,
		loginResponse(t),
		`{"data":null,"errors":[{"message":"review not found"}]}`,
	)
	client := newTestClient(t, srv.URL)

	err := client.SetApproved(context.Background(), "nope", true)
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "update review", apiErr.Op)
	assert.Equal(t, "review not found", apiErr.Detail)
}

func TestClientListUnapproved(t *testing.T) {
	srv, _ := newBackend(t,
		loginResponse(t),
		`{"data":{"reviews":[
			{
				"id":"r1",
				"occurrence":{"id":"o1","dish":{"nameDe":"Currywurst"}},
				"displayName":"alice",
				"stars":4,
				"text":"lecker",
				"createdAt":"2024-05-14T12:30:00Z",
				"images":[{"id":"img1"}]
			},
			{
				"id":"r2",
				"occurrence":{"id":"o2","dish":{"nameDe":"Pasta"}},
				"displayName":null,
				"stars":2,
				"text":"",
				"createdAt":"2024-05-14T13:00:00Z",
				"images":[]
			}
		]}}`,
	)
	client := newTestClient(t, srv.URL)

	reviews, err := client.ListUnapproved(context.Background())
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	first := reviews[0]
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, "o1", first.OccurrenceID)
	assert.Equal(t, "Currywurst", first.DishName)
	assert.Equal(t, 4, first.Stars)
	assert.Equal(t, "alice", first.DisplayName)
	assert.Equal(t, "lecker", first.Text)
	assert.True(t, first.HasImage())
	assert.Equal(t, "img1", first.FirstImageID())

	second := reviews[1]
	assert.Empty(t, second.DisplayName)
	assert.False(t, second.HasImage())
}

func TestClientUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
