/*
Package rpc is a small client of the CometBFT (Tendermint) JSON RPC over
HTTP GET. It covers the calls the explorer needs: status, block, validators
and tx_search.
*/
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

const (
	DefaultRate    = 10 // requests per second
	DefaultTimeout = 10 * time.Second
	DefaultRetry   = 5 * time.Second
)

// Error is the JSON RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Client of one RPC endpoint.
type Client struct {
	base       string
	http       *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
}

type Option func(c *Client)

// WithRate limits requests per second. Zero or less means no limit.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry sets how long failing requests are retried. Zero disables
// retries.
func WithRetry(maxElapsed time.Duration) Option {
	return func(c *Client) { c.maxElapsed = maxElapsed }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(DefaultRate, 1),
		maxElapsed: DefaultRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint.
func (c *Client) URL() string {
	return c.base
}

// call GETs method with query and unmarshals the result into out. Transport
// errors and 5xx are retried, RPC errors and 4xx aren't.
func (c *Client) call(ctx context.Context, method string, q url.Values, out any) error {
	u := c.base + "/" + method
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if c.maxElapsed > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 200 * time.Millisecond
		eb.MaxElapsedTime = c.maxElapsed
		bo = eb
	}

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return c.get(ctx, u, out)
	}
	notify := func(err error, d time.Duration) {
		glog.V(1).Infof("rpc %s failed, retry in %s: %v", method, d, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s: %s", u, resp.Status)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("%s: %s", u, resp.Status))
		}
		return backoff.Permanent(fmt.Errorf("%s: %w", u, err))
	}
	if r.Error != nil {
		return backoff.Permanent(r.Error)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("%s: %s", u, resp.Status))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%s result: %w", u, err))
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (st *Status, err error) {
	st = new(Status)
	if err = c.call(ctx, "status", nil, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Block returns the block at height, the latest when height is zero.
func (c *Client) Block(ctx context.Context, height int64) (b *BlockResult, err error) {
	q := url.Values{}
	if height > 0 {
		q.Set("height", strconv.FormatInt(height, 10))
	}
	b = new(BlockResult)
	if err = c.call(ctx, "block", q, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) Validators(ctx context.Context) (v *ValidatorsResult, err error) {
	v = new(ValidatorsResult)
	if err = c.call(ctx, "validators", nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// TxSearch runs a tx_search with query such as
// message.action='/cheqd.did.v2.MsgCreateDidDoc'. Newest transactions come
// first.
func (c *Client) TxSearch(ctx context.Context, query string, perPage int) (r *TxSearchResult, err error) {
	q := url.Values{}
	q.Set("query", strconv.Quote(query))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("order_by", strconv.Quote("desc"))
	r = new(TxSearchResult)
	if err = c.call(ctx, "tx_search", q, r); err != nil {
		return nil, err
	}
	return r, nil
}
