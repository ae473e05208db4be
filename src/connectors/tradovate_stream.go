package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/mapper"
)

// OrderUpdateHandler receives normalized order updates from the stream.
// Handlers must not block; the read loop is single-threaded.
type OrderUpdateHandler func(broker.OrderResult)

// TradovateStream consumes the user sync websocket and surfaces order status
// transitions without polling. Fills land here minutes before a list-orders
// poll would catch them.
type TradovateStream struct {
	wsURL   string
	conn    *websocket.Conn
	handler OrderUpdateHandler
}

func NewTradovateStream(wsURL string, handler OrderUpdateHandler) *TradovateStream {
	return &TradovateStream{wsURL: wsURL, handler: handler}
}

// Run connects, authorizes and pumps order events until the context is
// cancelled or the connection drops. Callers are expected to reconnect with
// backoff; Run itself makes a single attempt.
func (s *TradovateStream) Run(ctx context.Context, accessToken string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: tradovate stream dial: %v", broker.ErrBrokerUnavailable, err)
	}
	s.conn = conn
	defer conn.Close()

	// Tradovate sockets speak a SockJS-like frame protocol: the authorization
	// request goes out as a plain text frame.
	authFrame := fmt.Sprintf("authorize\n1\n\n%s", accessToken)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(authFrame)); err != nil {
		return fmt.Errorf("%w: tradovate stream auth write: %v", broker.ErrBrokerUnavailable, err)
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: tradovate stream read: %v", broker.ErrBrokerUnavailable, err)
		}
		s.dispatch(payload)
	}
}

type tradovateEventFrame struct {
	Events []struct {
		EventType string          `json:"e"`
		Data      json.RawMessage `json:"d"`
	} `json:"-"`
}

func (s *TradovateStream) dispatch(payload []byte) {
	text := string(payload)
	if len(text) == 0 {
		return
	}

	// Heartbeat frames are a single "h"; open frames "o". Data frames start
	// with "a" followed by a JSON array.
	switch text[0] {
	case 'h', 'o', 'c':
		return
	case 'a':
		text = strings.TrimPrefix(text, "a")
	default:
		return
	}

	var frames []struct {
		EventType string `json:"e"`
		Data      struct {
			Orders []mapper.TradovateOrder `json:"orders"`
		} `json:"d"`
	}
	if err := json.Unmarshal([]byte(text), &frames); err != nil {
		logger.WithError(err).Debug("undecodable stream frame, skipping")
		return
	}

	for _, frame := range frames {
		if frame.EventType != "props" && frame.EventType != "usersync" {
			continue
		}
		for i := range frame.Data.Orders {
			update := mapper.MapTradovateOrder(&frame.Data.Orders[i])
			logger.WithFields(map[string]interface{}{
				"broker_order_id": update.BrokerOrderID,
				"status":          update.Status,
			}).Debug("order update from stream")

			if s.handler != nil {
				s.handler(update)
			}
		}
	}
}
