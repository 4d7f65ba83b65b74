package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/shared/config"
)

// graphql-transport-ws frame types, per the protocol spec.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
	msgPing           = "ping"
	msgPong           = "pong"
)

const reviewCreatedSubscription = `subscription ReviewCreated {
  reviewCreated {
    id
    occurrence { id dish { nameDe } }
    displayName
    stars
    text
    createdAt
    images { id }
  }
}`

// ackTimeout bounds the connection_init handshake.
const ackTimeout = 15 * time.Second

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Listener maintains the persistent reviewCreated subscription and forwards
// each decoded review to the output channel, in receive order. A full
// channel blocks the read loop: a slow consumer pauses ingestion instead of
// dropping events or buffering without bound.
type Listener struct {
	wsURL       string
	retryPeriod time.Duration
	out         chan<- domain.Review
	log         zerolog.Logger
}

// NewListener creates a listener that forwards reviews to out.
func NewListener(cfg config.GraphQLConfig, out chan<- domain.Review, baseLogger *zerolog.Logger) *Listener {
	return &Listener{
		wsURL:       cfg.WsURL,
		retryPeriod: cfg.RetryBackoff,
		out:         out,
		log:         baseLogger.With().Str("component", "review_listener").Logger(),
	}
}

// Run supervises the subscription until ctx is cancelled. Every transport
// failure is retried after a fixed backoff; it never gives up on its own,
// so a returned error other than ctx.Err() is process-fatal for the caller.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.WithContext(backoff.NewConstantBackOff(l.retryPeriod), ctx)

	op := func() error {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			// The server completing the stream is as fatal as an error:
			// the subscription must be re-established either way.
			err = errors.New("subscription stream ended")
		}
		l.log.Error().Err(err).
			Dur("retry_in", l.retryPeriod).
			Msg("Review subscription failed, reconnecting after backoff")
		return err
	}

	return backoff.Retry(op, bo)
}

// listen performs one full connect / handshake / subscribe / stream cycle.
// It returns when the stream ends or errors.
func (l *Listener) listen(ctx context.Context) error {
	header := http.Header{}
	header.Set("Sec-WebSocket-Protocol", "graphql-transport-ws")

	l.log.Info().Str("url", l.wsURL).Msg("Establishing websocket connection")
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Close the connection when ctx is cancelled so the blocked read
	// returns; this is the listener's only cancellation path mid-read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := l.handshake(conn); err != nil {
		return err
	}

	if err := conn.WriteJSON(wsMessage{
		ID:      "1",
		Type:    msgSubscribe,
		Payload: mustMarshal(gqlRequest{Query: reviewCreatedSubscription}),
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	l.log.Info().Msg("Subscribed to review creation")

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch msg.Type {
		case msgNext:
			if err := l.handleNext(ctx, msg.Payload); err != nil {
				return err
			}
		case msgPing:
			if err := conn.WriteJSON(wsMessage{Type: msgPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		case msgError:
			return fmt.Errorf("subscription error frame: %s", string(msg.Payload))
		case msgComplete:
			return nil
		default:
			l.log.Warn().Str("type", msg.Type).Msg("Ignoring unexpected frame")
		}
	}
}

// handshake sends connection_init and waits for connection_ack.
func (l *Listener) handshake(conn *websocket.Conn) error {
	if err := conn.WriteJSON(wsMessage{Type: msgConnectionInit}); err != nil {
		return fmt.Errorf("connection_init: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(ackTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("await connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := conn.WriteJSON(wsMessage{Type: msgPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		default:
			return fmt.Errorf("expected connection_ack, got %q", msg.Type)
		}
	}
}

// handleNext decodes one next frame. A frame with errors and no data is
// logged and skipped; it does not tear down the stream.
func (l *Listener) handleNext(ctx context.Context, payload json.RawMessage) error {
	var frame struct {
		Data *struct {
			ReviewCreated *wireReview `json:"reviewCreated"`
		} `json:"data"`
		Errors []gqlError `json:"errors"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		return fmt.Errorf("decode next frame: %w", err)
	}

	if frame.Data == nil || frame.Data.ReviewCreated == nil {
		if len(frame.Errors) > 0 {
			l.log.Warn().
				Str("error", frame.Errors[0].Message).
				Msg("Subscription message carried errors and no payload, skipping")
		} else {
			l.log.Warn().Msg("Subscription message carried no review, skipping")
		}
		return nil
	}

	review := frame.Data.ReviewCreated.toDomain()
	l.log.Info().Str("review_id", review.ID).Msg("Received new review")

	select {
	case l.out <- review:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
