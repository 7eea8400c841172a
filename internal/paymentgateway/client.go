package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/metrics"
)

const (
	EndpointTransferRecipient = "/transferrecipient"
	EndpointTransfer          = "/transfer"
	EndpointTransferVerify    = "/transfer/verify"
	EndpointBalance           = "/balance"

	maxResponseBytes = 1 << 20
)

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Response is a decoded gateway reply. OK is false for well-formed rejections.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Data       json.RawMessage
	OK         bool
	Message    string
}

type Client struct {
	baseURL    string
	secretKey  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.PayoutMetrics
}

func NewClient(config Config, logger *slog.Logger, m *metrics.PayoutMetrics) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		secretKey:  config.SecretKey,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    m,
	}
}

// Send performs one authenticated JSON request against the gateway.
func (c *Client) Send(ctx context.Context, method, endpoint string, payload any) (*Response, error) {
	return c.send(ctx, method, endpoint, endpoint, payload)
}

func (c *Client) send(ctx context.Context, method, endpoint, label string, payload any) (*Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError("failed to marshal gateway request", err)
		}
		body = bytes.NewReader(jsonData)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, errors.NewInternalError("failed to create gateway request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveGatewayRequest(label, "unreachable", time.Since(start))
		c.logger.Error("gateway request failed", "method", method, "endpoint", label, "error", err)
		return nil, errors.NewExternalError("payment gateway unreachable", errors.ErrCodeGatewayUnreachable).WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.ObserveGatewayRequest(label, "unreachable", time.Since(start))
		c.logger.Error("failed to read gateway response", "endpoint", label, "error", err)
		return nil, errors.NewExternalError("payment gateway unreachable", errors.ErrCodeGatewayUnreachable).WithCause(err)
	}

	var envelope gatewaytypes.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.metrics.ObserveGatewayRequest(label, "malformed", time.Since(start))
		c.logger.Error("gateway returned undecodable body",
			"endpoint", label,
			"status", resp.StatusCode,
			"error", err)
		return nil, errors.NewExternalError(
			fmt.Sprintf("payment gateway returned an unreadable response (HTTP %d)", resp.StatusCode),
			errors.ErrCodeGatewayMalformedResponse,
		).WithCause(err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if envelope.Status != nil && !*envelope.Status {
		ok = false
	}

	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	c.metrics.ObserveGatewayRequest(label, outcome, time.Since(start))

	c.logger.Debug("gateway request completed",
		"method", method,
		"endpoint", label,
		"status", resp.StatusCode,
		"ok", ok,
		"duration_ms", time.Since(start).Milliseconds())

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       raw,
		Data:       envelope.Data,
		OK:         ok,
		Message:    envelope.Message,
	}, nil
}

// CreateRecipient registers a payout destination and returns its recipient code.
func (c *Client) CreateRecipient(ctx context.Context, req gatewaytypes.RecipientRequest) (*gatewaytypes.RecipientData, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error(), errors.ErrCodeInvalidInput)
	}

	resp, err := c.send(ctx, http.MethodPost, EndpointTransferRecipient, EndpointTransferRecipient, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, rejection(resp)
	}

	var data gatewaytypes.RecipientData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.RecipientCode == "" {
		return nil, errors.NewExternalError("gateway response is missing recipient_code", errors.ErrCodeGatewayMalformedResponse)
	}
	return &data, nil
}

// InitiateTransfer asks the gateway to move funds from the balance to a recipient.
func (c *Client) InitiateTransfer(ctx context.Context, req gatewaytypes.TransferRequest) (*gatewaytypes.TransferData, error) {
	if req.Source == "" {
		req.Source = "balance"
	}
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error(), errors.ErrCodeInvalidInput)
	}

	resp, err := c.send(ctx, http.MethodPost, EndpointTransfer, EndpointTransfer, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, rejection(resp)
	}

	var data gatewaytypes.TransferData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.TransferCode == "" {
		return nil, errors.NewExternalError("gateway response is missing transfer_code", errors.ErrCodeGatewayMalformedResponse)
	}
	return &data, nil
}

func (c *Client) VerifyTransfer(ctx context.Context, reference string) (*gatewaytypes.TransferVerification, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, errors.NewValidationError("reference is required", errors.ErrCodeInvalidReference)
	}

	endpoint := EndpointTransferVerify + "/" + url.PathEscape(reference)
	resp, err := c.send(ctx, http.MethodGet, endpoint, EndpointTransferVerify, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, rejection(resp)
	}

	var data gatewaytypes.TransferVerification
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) FetchBalance(ctx context.Context) ([]gatewaytypes.BalanceEntry, error) {
	resp, err := c.send(ctx, http.MethodGet, EndpointBalance, EndpointBalance, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, rejection(resp)
	}

	var entries []gatewaytypes.BalanceEntry
	if err := decodeData(resp, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func rejection(resp *Response) *errors.AppError {
	message := resp.Message
	if message == "" {
		message = fmt.Sprintf("gateway returned HTTP %d", resp.StatusCode)
	}
	return errors.NewExternalError(message, errors.ErrCodeGatewayRejected).
		WithDetails(map[string]interface{}{"status_code": resp.StatusCode})
}

func decodeData(resp *Response, dest any) error {
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return errors.NewExternalError("gateway response has no data", errors.ErrCodeGatewayMalformedResponse)
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		return errors.NewExternalError("gateway response data is malformed", errors.ErrCodeGatewayMalformedResponse).WithCause(err)
	}
	return nil
}
