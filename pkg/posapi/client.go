package posapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-pos/pkg/config"
	"go-pos/pkg/model"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Client talks to the POS REST backend. It is safe for concurrent use; WithToken returns a
// session-scoped copy sharing the same connection pool.
type Client struct {
	http  *resty.Client
	token string
	log   *log.Entry
}

func New(cfg config.BackendConfig, logger *log.Entry) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc, log: logger.WithField("component", "posapi")}
}

func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode(),
		"duration": time.Since(start).String(),
	}).Debug("backend request")

	if resp.IsError() {
		return newAPIError(method, path, resp.StatusCode(), resp.Body())
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

func escape(id model.FlexString) string { return url.PathEscape(id.String()) }

func (c *Client) Tables() Resource[model.Table] { return NewResource[model.Table](c, "/api/tables") }

func (c *Client) Orders() Resource[model.Order] { return NewResource[model.Order](c, "/api/orders") }

func (c *Client) Taxes() Resource[model.TaxRate] { return NewResource[model.TaxRate](c, "/api/taxes") }

func (c *Client) ListTables(ctx context.Context) ([]model.Table, error) {
	return c.Tables().List(ctx)
}

func (c *Client) UpdateTable(ctx context.Context, id model.FlexString, upd model.TableUpdate) (model.Table, error) {
	return c.Tables().Update(ctx, id, upd)
}

type transferRequest struct {
	NewTableID model.FlexString `json:"new_table_id"`
}

// MoveTable moves the source table's order onto an available table. The backend applies
// both table changes atomically.
func (c *Client) MoveTable(ctx context.Context, fromID, toID model.FlexString) error {
	return c.do(ctx, http.MethodPost, "/api/tables/"+escape(fromID)+"/move", transferRequest{NewTableID: toID}, nil)
}

// MergeTables folds the source table's order into the destination table's order.
func (c *Client) MergeTables(ctx context.Context, fromID, toID model.FlexString) error {
	return c.do(ctx, http.MethodPost, "/api/tables/"+escape(fromID)+"/merge", transferRequest{NewTableID: toID}, nil)
}

func (c *Client) GetOrder(ctx context.Context, id model.FlexString) (model.Order, error) {
	return c.Orders().Get(ctx, id)
}

func (c *Client) CancelOrder(ctx context.Context, id model.FlexString, req model.CancelRequest) error {
	return c.do(ctx, http.MethodPost, "/api/orders/"+escape(id)+"/cancel", req, nil)
}

func (c *Client) ListActiveOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := c.do(ctx, http.MethodGet, "/api/orders?status=active", nil, &orders)
	return orders, err
}

func (c *Client) ListTaxRates(ctx context.Context) ([]model.TaxRate, error) {
	return c.Taxes().List(ctx)
}

func (c *Client) PinLogin(ctx context.Context, pin string) (model.PinLoginResponse, error) {
	var out model.PinLoginResponse
	if pin == "" {
		return out, errors.New("pin is required")
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/pin-login", map[string]string{"pin": pin}, &out)
	return out, err
}
