package scrapeapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// Event names broadcast by the engine over the websocket.
const (
	EventJobUpdate = "job_update"
	EventConnected = "connected"
)

// Envelope frames every websocket message from the engine.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSTransport subscribes to the engine's broadcast websocket. Updates for
// all jobs arrive on one connection; filtering by job id happens downstream.
type WSTransport struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWSTransport creates a push transport against the given engine base URL
// (http/https scheme; it is rewritten to ws/wss for the dial).
func NewWSTransport(baseURL string) *WSTransport {
	return &WSTransport{
		baseURL: baseURL,
		dialer:  websocket.DefaultDialer,
	}
}

// Subscribe dials the engine and returns a channel of status updates. The
// channel is closed when the connection drops or ctx is cancelled; callers
// are expected to degrade to poll-only at that point.
func (t *WSTransport) Subscribe(ctx context.Context) (<-chan model.JobStatus, error) {
	wsURL, err := t.dialURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := t.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeapi: dial websocket")
	}

	updates := make(chan model.JobStatus)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(updates)
		defer conn.Close()

		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if ctx.Err() == nil {
					zap.L().Debug("push transport read failed, degrading to poll-only", zap.Error(err))
				}
				return
			}

			switch env.Event {
			case EventConnected:
				zap.L().Debug("push transport connected")
			case EventJobUpdate:
				var status model.JobStatus
				if err := json.Unmarshal(env.Data, &status); err != nil {
					zap.L().Debug("push transport dropped malformed update", zap.Error(err))
					continue
				}
				select {
				case updates <- status:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

func (t *WSTransport) dialURL() (string, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", eris.Wrap(err, "scrapeapi: parse base url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
