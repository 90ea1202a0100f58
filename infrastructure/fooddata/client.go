package fooddata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fridge/models"
)

const DefaultBaseURL = "https://api.nal.usda.gov"

// ErrProductNotFound is returned when the search yields no foods.
var ErrProductNotFound = errors.New("product not found")

// Client queries the USDA FoodData Central search API by barcode.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type searchResponse struct {
	Foods []models.ProductRecord `json:"foods"`
}

// LookupProductByCode returns the first food matching code.
func (c *Client) LookupProductByCode(ctx context.Context, code string) (models.ProductRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.ProductRecord{}, fmt.Errorf("lookup product: empty code")
	}
	q := url.Values{}
	q.Set("query", code)
	q.Set("pageSize", "1")
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + "/fdc/v1/foods/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("lookup product %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ProductRecord{}, fmt.Errorf("lookup product %s: status %d: %s", code, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.ProductRecord{}, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(out.Foods) == 0 {
		return models.ProductRecord{}, fmt.Errorf("lookup product %s: %w", code, ErrProductNotFound)
	}
	return out.Foods[0], nil
}
