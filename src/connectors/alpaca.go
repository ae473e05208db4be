package connectors

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/mapper"
	"tradeorchestrator/src/model"
)

const alpacaBrokerName = "alpaca"

// AlpacaConnector implements the trading contract against the Alpaca REST
// API. Alpaca addresses instruments by symbol directly, so no instrument
// resolution step is needed on this backend.
type AlpacaConnector struct {
	http     *resty.Client
	maxPages int
}

func NewAlpacaConnector(cfg Config) *AlpacaConnector {
	client := newRestyClient(cfg.AlpacaBaseURL, cfg.RequestTimeout, cfg.RateLimitPerMin).
		SetHeader("APCA-API-KEY-ID", cfg.AlpacaKeyID).
		SetHeader("APCA-API-SECRET-KEY", cfg.AlpacaSecretKey)

	if cfg.AlpacaKeyID == "" {
		logger.Warn("No Alpaca key id configured, requests will be unauthenticated")
	}

	return &AlpacaConnector{http: client, maxPages: cfg.MaxPages}
}

func (c *AlpacaConnector) Name() string { return alpacaBrokerName }

func (c *AlpacaConnector) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	var acct mapper.AlpacaAccount
	resp, err := c.http.R().SetContext(ctx).SetResult(&acct).Get("/v2/account")
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return model.AccountInfo{}, cerr
	}
	return mapper.MapAlpacaAccount(&acct, time.Now().UTC()), nil
}

func (c *AlpacaConnector) GetPositions(ctx context.Context) ([]model.BrokerPosition, error) {
	var raw []mapper.AlpacaPosition
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get("/v2/positions")
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return nil, cerr
	}

	positions := make([]model.BrokerPosition, 0, len(raw))
	for i := range raw {
		positions = append(positions, mapper.MapAlpacaPosition(&raw[i]))
	}
	return positions, nil
}

func (c *AlpacaConnector) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	body := map[string]interface{}{
		"symbol":          req.Symbol,
		"side":            req.Side,
		"type":            req.OrderType,
		"client_order_id": req.ClientOrderID,
		"time_in_force":   req.TimeInForce,
	}
	if body["time_in_force"] == "" {
		body["time_in_force"] = "day"
	}
	if !req.Quantity.IsZero() {
		body["qty"] = req.Quantity.String()
	} else {
		body["notional"] = req.Notional.String()
	}
	if req.LimitPrice != nil {
		body["limit_price"] = req.LimitPrice.String()
	}
	if req.StopPrice != nil {
		body["stop_price"] = req.StopPrice.String()
	}

	var order mapper.AlpacaOrder
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&order).Post("/v2/orders")
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return broker.OrderResult{}, cerr
	}
	return mapper.MapAlpacaOrder(&order), nil
}

func (c *AlpacaConnector) CancelOrder(ctx context.Context, brokerOrderID string) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/v2/orders/" + brokerOrderID)
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("alpaca order %s not found", brokerOrderID)
	}
	return classifyResponse(alpacaBrokerName, resp, err)
}

func (c *AlpacaConnector) GetOrder(ctx context.Context, brokerOrderID string) (broker.OrderResult, error) {
	var order mapper.AlpacaOrder
	resp, err := c.http.R().SetContext(ctx).SetResult(&order).Get("/v2/orders/" + brokerOrderID)
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return broker.OrderResult{}, cerr
	}
	return mapper.MapAlpacaOrder(&order), nil
}

// ListOrders pages through the orders endpoint until a short page or the
// page cap. The cap guards against a backend that keeps returning full pages.
func (c *AlpacaConnector) ListOrders(ctx context.Context, filter broker.ListOrdersFilter) ([]broker.OrderResult, error) {
	const pageSize = 100

	status := filter.Status
	if status == "" {
		status = "all"
	}

	var out []broker.OrderResult
	after := filter.Since

	for page := 0; ; page++ {
		if page >= c.maxPages {
			return nil, fmt.Errorf("alpaca ListOrders exceeded page cap %d", c.maxPages)
		}

		req := c.http.R().SetContext(ctx).
			SetQueryParam("status", status).
			SetQueryParam("limit", fmt.Sprintf("%d", pageSize)).
			SetQueryParam("direction", "asc")
		if !after.IsZero() {
			req.SetQueryParam("after", after.Format(time.RFC3339Nano))
		}

		var raw []mapper.AlpacaOrder
		resp, err := req.SetResult(&raw).Get("/v2/orders")
		if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
			return nil, cerr
		}

		for i := range raw {
			out = append(out, mapper.MapAlpacaOrder(&raw[i]))
		}

		if len(raw) < pageSize {
			break
		}
		if raw[len(raw)-1].SubmittedAt != nil {
			after = *raw[len(raw)-1].SubmittedAt
		}

		if filter.Limit > 0 && len(out) >= filter.Limit {
			out = out[:filter.Limit]
			break
		}
	}

	return out, nil
}

func (c *AlpacaConnector) GetClock(ctx context.Context) (model.Clock, error) {
	var clock mapper.AlpacaClock
	resp, err := c.http.R().SetContext(ctx).SetResult(&clock).Get("/v2/clock")
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return model.Clock{}, cerr
	}
	return mapper.MapAlpacaClock(&clock), nil
}

// AlpacaMarketData implements the market-data contract against the Alpaca
// data API, which lives on a separate host from the trading API.
type AlpacaMarketData struct {
	http     *resty.Client
	maxPages int
}

func NewAlpacaMarketData(cfg Config) *AlpacaMarketData {
	client := newRestyClient(cfg.AlpacaDataBaseURL, cfg.RequestTimeout, cfg.RateLimitPerMin).
		SetHeader("APCA-API-KEY-ID", cfg.AlpacaKeyID).
		SetHeader("APCA-API-SECRET-KEY", cfg.AlpacaSecretKey)

	return &AlpacaMarketData{http: client, maxPages: cfg.MaxPages}
}

func (m *AlpacaMarketData) Name() string { return alpacaBrokerName }

func alpacaTimeframe(tf model.Timeframe) string {
	switch tf {
	case model.TimeframeMinute:
		return "1Min"
	case model.Timeframe5Minute:
		return "5Min"
	case model.Timeframe15Minute:
		return "15Min"
	case model.Timeframe30Minute:
		return "30Min"
	case model.TimeframeHour:
		return "1Hour"
	case model.TimeframeDay:
		return "1Day"
	case model.TimeframeWeek:
		return "1Week"
	}
	return "1Day"
}

type alpacaBarsPage struct {
	Bars          []mapper.AlpacaBar `json:"bars"`
	NextPageToken *string            `json:"next_page_token"`
}

type alpacaMultiBarsPage struct {
	Bars          map[string][]mapper.AlpacaBar `json:"bars"`
	NextPageToken *string                       `json:"next_page_token"`
}

func (m *AlpacaMarketData) GetBars(ctx context.Context, symbol string, start, end time.Time, tf model.Timeframe) ([]model.Bar, error) {
	var out []model.Bar
	pageToken := ""

	for page := 0; ; page++ {
		if page >= m.maxPages {
			return nil, fmt.Errorf("alpaca GetBars exceeded page cap %d", m.maxPages)
		}

		req := m.http.R().SetContext(ctx).
			SetQueryParam("timeframe", alpacaTimeframe(tf)).
			SetQueryParam("start", start.Format(time.RFC3339)).
			SetQueryParam("end", end.Format(time.RFC3339)).
			SetQueryParam("limit", "1000")
		if pageToken != "" {
			req.SetQueryParam("page_token", pageToken)
		}

		var pageResp alpacaBarsPage
		resp, err := req.SetResult(&pageResp).Get("/v2/stocks/" + symbol + "/bars")
		if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
			return nil, cerr
		}

		for _, b := range pageResp.Bars {
			out = append(out, mapper.MapAlpacaBar(symbol, b))
		}

		if pageResp.NextPageToken == nil || *pageResp.NextPageToken == "" {
			break
		}
		pageToken = *pageResp.NextPageToken
	}

	return out, nil
}

func (m *AlpacaMarketData) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, tf model.Timeframe) (map[string][]model.Bar, error) {
	out := make(map[string][]model.Bar, len(symbols))
	pageToken := ""
	joined := ""
	for i, s := range symbols {
		if i > 0 {
			joined += ","
		}
		joined += s
	}

	for page := 0; ; page++ {
		if page >= m.maxPages {
			return nil, fmt.Errorf("alpaca GetBarsMulti exceeded page cap %d", m.maxPages)
		}

		req := m.http.R().SetContext(ctx).
			SetQueryParam("symbols", joined).
			SetQueryParam("timeframe", alpacaTimeframe(tf)).
			SetQueryParam("start", start.Format(time.RFC3339)).
			SetQueryParam("end", end.Format(time.RFC3339)).
			SetQueryParam("limit", "1000")
		if pageToken != "" {
			req.SetQueryParam("page_token", pageToken)
		}

		var pageResp alpacaMultiBarsPage
		resp, err := req.SetResult(&pageResp).Get("/v2/stocks/bars")
		if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
			return nil, cerr
		}

		for symbol, bars := range pageResp.Bars {
			for _, b := range bars {
				out[symbol] = append(out[symbol], mapper.MapAlpacaBar(symbol, b))
			}
		}

		if pageResp.NextPageToken == nil || *pageResp.NextPageToken == "" {
			break
		}
		pageToken = *pageResp.NextPageToken
	}

	return out, nil
}

func (m *AlpacaMarketData) GetSnapshot(ctx context.Context, symbol string) (model.Snapshot, error) {
	var snap mapper.AlpacaSnapshot
	resp, err := m.http.R().SetContext(ctx).SetResult(&snap).Get("/v2/stocks/" + symbol + "/snapshot")
	if cerr := classifyResponse(alpacaBrokerName, resp, err); cerr != nil {
		return model.Snapshot{}, cerr
	}
	return mapper.MapAlpacaSnapshot(symbol, &snap), nil
}
