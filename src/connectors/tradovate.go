package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/instruments"
	"tradeorchestrator/src/mapper"
	"tradeorchestrator/src/model"
)

const tradovateBrokerName = "tradovate"

// TradovateConnector implements the trading contract against the Tradovate
// REST API. Tradovate addresses instruments by numeric contract id, so every
// order submission goes through the instrument resolver first. The connector
// itself is the resolver's backend (contract/find, contract/items).
type TradovateConnector struct {
	http     *resty.Client
	maxPages int

	resolver *instruments.Resolver

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	accountID   int64
	credentials struct {
		user, password, cid, secret string
	}
}

func NewTradovateConnector(cfg Config, store instruments.Store) *TradovateConnector {
	c := &TradovateConnector{
		http:     newRestyClient(cfg.TradovateBaseURL, cfg.RequestTimeout, cfg.RateLimitPerMin),
		maxPages: cfg.MaxPages,
	}
	c.credentials.user = cfg.TradovateUser
	c.credentials.password = cfg.TradovatePassword
	c.credentials.cid = cfg.TradovateCID
	c.credentials.secret = cfg.TradovateSecret

	c.resolver = instruments.NewResolver(tradovateBrokerName, store, c, cfg.InstrumentTTL)
	return c
}

func (c *TradovateConnector) Name() string { return tradovateBrokerName }

// Resolver exposes the instrument cache, mainly for warm-up and tests.
func (c *TradovateConnector) Resolver() *instruments.Resolver { return c.resolver }

type tradovateTokenResponse struct {
	AccessToken    string `json:"accessToken"`
	ExpirationTime string `json:"expirationTime"`
	UserID         int64  `json:"userId"`
}

// ensureToken logs in lazily and refreshes the access token shortly before
// expiry. Guarded by the connector mutex; callers hold no locks.
func (c *TradovateConnector) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-2*time.Minute)) {
		return nil
	}

	var token tradovateTokenResponse
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{
			"name":     c.credentials.user,
			"password": c.credentials.password,
			"cid":      c.credentials.cid,
			"sec":      c.credentials.secret,
		}).
		SetResult(&token).
		Post("/auth/accesstokenrequest")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return cerr
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: tradovate login returned no token", broker.ErrBrokerUnavailable)
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(55 * time.Minute)
	if token.ExpirationTime != "" {
		if t, perr := time.Parse(time.RFC3339, token.ExpirationTime); perr == nil {
			c.tokenExpiry = t
		}
	}

	logger.WithField("broker", tradovateBrokerName).Info("access token refreshed")
	return nil
}

// AccessToken returns a currently valid token, logging in if needed. The
// order update stream authenticates with the same token as the REST calls.
func (c *TradovateConnector) AccessToken(ctx context.Context) (string, error) {
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, nil
}

func (c *TradovateConnector) authedRequest(ctx context.Context) (*resty.Request, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	return c.http.R().SetContext(ctx).SetHeader("Authorization", "Bearer "+token), nil
}

// ResolveInstrument resolves one symbol via the contract/find endpoint.
// Called only by the instrument resolver on a cache miss.
func (c *TradovateConnector) ResolveInstrument(ctx context.Context, symbol string) (string, string, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return "", "", err
	}

	var contract mapper.TradovateContract
	resp, err := req.SetQueryParam("name", symbol).SetResult(&contract).Get("/contract/find")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return "", "", cerr
	}
	if contract.ID == 0 {
		return "", "", fmt.Errorf("contract %q not found", symbol)
	}
	return strconv.FormatInt(contract.ID, 10), model.AssetClassFuture, nil
}

// ResolveInstrumentBatch resolves N symbols in one round trip via
// contract/items.
func (c *TradovateConnector) ResolveInstrumentBatch(ctx context.Context, symbols []string) (map[string]string, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	var contracts []mapper.TradovateContract
	resp, err := req.SetQueryParam("names", joinSymbols(symbols)).SetResult(&contracts).Get("/contract/items")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return nil, cerr
	}

	out := make(map[string]string, len(contracts))
	for _, ct := range contracts {
		out[ct.Name] = strconv.FormatInt(ct.ID, 10)
	}
	return out, nil
}

func joinSymbols(symbols []string) string {
	joined := ""
	for i, s := range symbols {
		if i > 0 {
			joined += ","
		}
		joined += s
	}
	return joined
}

func (c *TradovateConnector) ensureAccountID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.accountID != 0 {
		id := c.accountID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	req, err := c.authedRequest(ctx)
	if err != nil {
		return 0, err
	}

	var accounts []mapper.TradovateAccount
	resp, err := req.SetResult(&accounts).Get("/account/list")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return 0, cerr
	}
	if len(accounts) == 0 {
		return 0, fmt.Errorf("%w: tradovate returned no accounts", broker.ErrBrokerUnavailable)
	}

	c.mu.Lock()
	c.accountID = accounts[0].ID
	c.mu.Unlock()
	return accounts[0].ID, nil
}

func (c *TradovateConnector) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return model.AccountInfo{}, err
	}

	var accounts []mapper.TradovateAccount
	resp, err := req.SetResult(&accounts).Get("/account/list")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return model.AccountInfo{}, cerr
	}
	if len(accounts) == 0 {
		return model.AccountInfo{}, fmt.Errorf("%w: tradovate returned no accounts", broker.ErrBrokerUnavailable)
	}

	c.mu.Lock()
	c.accountID = accounts[0].ID
	c.mu.Unlock()

	return mapper.MapTradovateAccount(&accounts[0], time.Now().UTC()), nil
}

// GetPositions pages through position/list. Tradovate caps page size, so the
// adapter stitches pages back together transparently, up to the page cap.
func (c *TradovateConnector) GetPositions(ctx context.Context) ([]model.BrokerPosition, error) {
	const pageSize = 100

	var out []model.BrokerPosition
	for page := 0; ; page++ {
		if page >= c.maxPages {
			return nil, fmt.Errorf("tradovate GetPositions exceeded page cap %d", c.maxPages)
		}

		req, err := c.authedRequest(ctx)
		if err != nil {
			return nil, err
		}

		var raw []mapper.TradovatePosition
		resp, err := req.
			SetQueryParam("pageSize", strconv.Itoa(pageSize)).
			SetQueryParam("pageIndex", strconv.Itoa(page)).
			SetResult(&raw).
			Get("/position/list")
		if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
			return nil, cerr
		}

		for i := range raw {
			if raw[i].NetPos == 0 {
				continue
			}
			out = append(out, mapper.MapTradovatePosition(&raw[i]))
		}

		if len(raw) < pageSize {
			break
		}
	}

	return out, nil
}

type tradovateOrderResponse struct {
	OrderID       int64  `json:"orderId"`
	FailureReason string `json:"failureReason"`
	FailureText   string `json:"failureText"`
}

func (c *TradovateConnector) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	contractID, err := c.resolver.Resolve(ctx, req.Symbol)
	if err != nil {
		return broker.OrderResult{}, err
	}
	cid, err := strconv.ParseInt(contractID, 10, 64)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("%w: bad cached contract id %q for %s", broker.ErrInstrumentNotResolvable, contractID, req.Symbol)
	}

	accountID, err := c.ensureAccountID(ctx)
	if err != nil {
		return broker.OrderResult{}, err
	}

	action := "Buy"
	if req.Side == model.SideSell {
		action = "Sell"
	}
	orderType := "Market"
	if req.OrderType == model.OrderTypeLimit {
		orderType = "Limit"
	} else if req.OrderType == model.OrderTypeStop {
		orderType = "Stop"
	}

	body := map[string]interface{}{
		"accountId":   accountID,
		"contractId":  cid,
		"action":      action,
		"orderQty":    req.Quantity.IntPart(),
		"orderType":   orderType,
		"clOrdId":     req.ClientOrderID,
		"isAutomated": true,
	}
	// Prices go on the wire as raw JSON numbers so the decimal survives
	// unrounded; a float64 round trip can shift the tick.
	if req.LimitPrice != nil {
		body["price"] = json.RawMessage(req.LimitPrice.String())
	}
	if req.StopPrice != nil {
		body["stopPrice"] = json.RawMessage(req.StopPrice.String())
	}

	httpReq, err := c.authedRequest(ctx)
	if err != nil {
		return broker.OrderResult{}, err
	}

	var placed tradovateOrderResponse
	resp, err := httpReq.SetBody(body).SetResult(&placed).Post("/order/placeorder")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return broker.OrderResult{}, cerr
	}

	if placed.FailureReason != "" && placed.FailureReason != "Success" {
		return broker.OrderResult{}, &broker.OrderError{
			Broker:  tradovateBrokerName,
			Code:    placed.FailureReason,
			Message: TradovateFailureMsg(placed.FailureReason),
		}
	}

	return c.GetOrder(ctx, strconv.FormatInt(placed.OrderID, 10))
}

func (c *TradovateConnector) CancelOrder(ctx context.Context, brokerOrderID string) error {
	id, err := strconv.ParseInt(brokerOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("tradovate order id %q is not numeric", brokerOrderID)
	}

	req, rerr := c.authedRequest(ctx)
	if rerr != nil {
		return rerr
	}

	var cancelled tradovateOrderResponse
	resp, err := req.SetBody(map[string]interface{}{"orderId": id}).
		SetResult(&cancelled).
		Post("/order/cancelorder")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return cerr
	}
	if cancelled.FailureReason != "" && cancelled.FailureReason != "Success" {
		return &broker.OrderError{
			Broker:  tradovateBrokerName,
			Code:    cancelled.FailureReason,
			Message: TradovateFailureMsg(cancelled.FailureReason),
		}
	}
	return nil
}

func (c *TradovateConnector) GetOrder(ctx context.Context, brokerOrderID string) (broker.OrderResult, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return broker.OrderResult{}, err
	}

	var order mapper.TradovateOrder
	resp, err := req.SetQueryParam("id", brokerOrderID).SetResult(&order).Get("/order/item")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return broker.OrderResult{}, cerr
	}
	return mapper.MapTradovateOrder(&order), nil
}

func (c *TradovateConnector) ListOrders(ctx context.Context, filter broker.ListOrdersFilter) ([]broker.OrderResult, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	var raw []mapper.TradovateOrder
	resp, err := req.SetResult(&raw).Get("/order/list")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return nil, cerr
	}

	out := make([]broker.OrderResult, 0, len(raw))
	for i := range raw {
		res := mapper.MapTradovateOrder(&raw[i])
		if filter.Status == "open" && isTerminalStatus(res.Status) {
			continue
		}
		if filter.Status == "closed" && !isTerminalStatus(res.Status) {
			continue
		}
		if !filter.Since.IsZero() && res.SubmittedAt.Before(filter.Since) {
			continue
		}
		out = append(out, res)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func isTerminalStatus(status string) bool {
	switch status {
	case model.OrderStatusFilled, model.OrderStatusCancelled, model.OrderStatusRejected, model.OrderStatusFailed:
		return true
	}
	return false
}

// GetClock derives a clock from the exchange session status endpoint.
// Tradovate has no direct clock API; session open/close is good enough for
// phase gating on this backend.
func (c *TradovateConnector) GetClock(ctx context.Context) (model.Clock, error) {
	req, err := c.authedRequest(ctx)
	if err != nil {
		return model.Clock{}, err
	}

	var status struct {
		ServerTime time.Time `json:"serverTime"`
		IsOpen     bool      `json:"isOpen"`
		NextOpen   time.Time `json:"nextOpen"`
		NextClose  time.Time `json:"nextClose"`
	}
	resp, err := req.SetResult(&status).Get("/exchange/sessionstatus")
	if cerr := classifyResponse(tradovateBrokerName, resp, err); cerr != nil {
		return model.Clock{}, cerr
	}

	ts := status.ServerTime
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return model.Clock{
		Timestamp: ts,
		IsOpen:    status.IsOpen,
		NextOpen:  status.NextOpen,
		NextClose: status.NextClose,
	}, nil
}
