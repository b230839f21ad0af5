package marketprice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"salakbook/internal/config"
	"salakbook/internal/domain/models"
)

// Client exposes the reference price lookups used by the estimate forms.
type Client interface {
	LatestRates(ctx context.Context) (map[models.Size]float64, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	commodity  string
}

// NewClient builds a reference price client from the provided configuration.
func NewClient(cfg config.PricingConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		commodity:  cfg.Commodity,
	}
}

// ratesResponse mirrors the successful response from the price API.
type ratesResponse struct {
	Commodity string             `json:"commodity"`
	Rates     map[string]float64 `json:"rates"`
}

// apiError represents a price API error payload.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// LatestRates fetches the current per-kg reference rate for each grade.
// Grades absent from the response are simply omitted from the result.
func (c *APIClient) LatestRates(ctx context.Context) (map[models.Size]float64, error) {
	result := new(ratesResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("commodity", c.commodity).
		SetResult(result).
		SetError(apiErr).
		Get("/v1/rates/latest")
	if err != nil {
		return nil, fmt.Errorf("fetch reference rates: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := ""
		code := resp.StatusCode()
		if apiErr != nil {
			message = apiErr.Error.Message
			if apiErr.Error.Code != 0 {
				code = apiErr.Error.Code
			}
		}
		return nil, fmt.Errorf("price api error: code=%d, message=%s", code, message)
	}

	rates := make(map[models.Size]float64, len(models.Sizes))
	for _, size := range models.Sizes {
		if rate, ok := result.Rates[string(size)]; ok {
			rates[size] = rate
		}
	}
	return rates, nil
}
