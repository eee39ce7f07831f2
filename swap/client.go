package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const contentTypeJSON = "application/json"

// Client is an HTTP client for a ParaSwap-style aggregator API: one GET for
// the price route, one POST to build the executable transaction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chainID    uint64
	partner    string
	logger     *zap.Logger
}

// NewClient creates a new aggregator client.
func NewClient(baseURL string, chainID uint64, partner string, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		chainID:    chainID,
		partner:    partner,
		logger:     logger,
	}, nil
}

type priceResponse struct {
	PriceRoute json.RawMessage `json:"priceRoute"`
	Message    string          `json:"message"`
}

type priceRoute struct {
	SrcAmount  string `json:"srcAmount"`
	DestAmount string `json:"destAmount"`
}

type buildRequest struct {
	SrcToken   string          `json:"srcToken"`
	DestToken  string          `json:"destToken"`
	SrcAmount  string          `json:"srcAmount"`
	DestAmount string          `json:"destAmount"`
	PriceRoute json.RawMessage `json:"priceRoute"`
	UserAddr   string          `json:"userAddress"`
	Partner    string          `json:"partner,omitempty"`
}

type buildResponse struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	Message string `json:"message"`
}

// FetchQuote asks the aggregator for a route and builds its calldata.
// An error payload from the aggregator is returned to the caller verbatim.
func (c *Client) FetchQuote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	if req == nil || req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("swap quote request requires a positive amount")
	}

	price, err := c.fetchPrice(ctx, req)
	if err != nil {
		return nil, err
	}

	var route priceRoute
	if err := json.Unmarshal(price.PriceRoute, &route); err != nil {
		return nil, fmt.Errorf("invalid price route response: %w", err)
	}
	srcAmount, ok := new(big.Int).SetString(route.SrcAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price route srcAmount %q", route.SrcAmount)
	}
	destAmount, ok := new(big.Int).SetString(route.DestAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price route destAmount %q", route.DestAmount)
	}

	built, err := c.buildTx(ctx, req, &route, price.PriceRoute)
	if err != nil {
		return nil, err
	}
	calldata, err := hexutil.Decode(built.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction calldata: %w", err)
	}

	return &Quote{
		SrcAmount:  srcAmount,
		DestAmount: destAmount,
		Target:     common.HexToAddress(built.To),
		Calldata:   calldata,
	}, nil
}

func (c *Client) fetchPrice(ctx context.Context, req *QuoteRequest) (*priceResponse, error) {
	query := url.Values{}
	query.Set("srcToken", req.FromToken.Hex())
	query.Set("destToken", req.ToToken.Hex())
	query.Set("amount", req.Amount.String())
	query.Set("side", req.Side.String())
	query.Set("network", fmt.Sprintf("%d", c.chainID))
	query.Set("userAddress", req.UserAddress.Hex())
	if c.partner != "" {
		query.Set("partner", c.partner)
	}

	endpoint := fmt.Sprintf("%s/prices?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch swap price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read price response: %w", err)
	}

	var price priceResponse
	if err := json.Unmarshal(body, &price); err != nil {
		return nil, fmt.Errorf("invalid price response: %w", err)
	}
	if price.Message != "" {
		return nil, fmt.Errorf("%s", price.Message)
	}
	if len(price.PriceRoute) == 0 {
		return nil, fmt.Errorf("price response contains no route")
	}
	return &price, nil
}

func (c *Client) buildTx(ctx context.Context, req *QuoteRequest, route *priceRoute, rawRoute json.RawMessage) (*buildResponse, error) {
	payload, err := json.Marshal(&buildRequest{
		SrcToken:   req.FromToken.Hex(),
		DestToken:  req.ToToken.Hex(),
		SrcAmount:  route.SrcAmount,
		DestAmount: route.DestAmount,
		PriceRoute: rawRoute,
		UserAddr:   req.UserAddress.Hex(),
		Partner:    c.partner,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/transactions/%d?ignoreChecks=true", c.baseURL, c.chainID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap transaction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction response: %w", err)
	}

	var built buildResponse
	if err := json.Unmarshal(body, &built); err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	if built.Message != "" {
		return nil, fmt.Errorf("%s", built.Message)
	}
	if built.Data == "" || built.To == "" {
		return nil, fmt.Errorf("transaction response is missing calldata")
	}
	return &built, nil
}
