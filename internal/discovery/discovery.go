// Package discovery defines a narrow port for finding which market assets
// exist to subscribe to, plus a Gamma-API-backed implementation adapted from
// the teacher's internal/platform/polymarket/gamma.go GammaClient. Unlike
// the teacher's client, which exposes the full Gamma surface (markets,
// events, search, reward eligibility) for a trading bot's strategy layer,
// this package exposes only what cmd/orderbookd needs at startup: the set
// of tradeable (condition ID, token ID) pairs to seed Service.Subscribe
// calls with.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// CatalogPoller discovers the current set of tradeable market assets.
type CatalogPoller interface {
	Poll(ctx context.Context) ([]domain.MarketAsset, error)
}

// gammaMarket is the subset of the Gamma API's market representation this
// package needs: the condition ID and its outcome tokens. Everything else
// the teacher's APIMarket carries (question text, volume, rewards, slug) is
// irrelevant to asset discovery and is dropped.
type gammaMarket struct {
	ConditionID string       `json:"condition_id"`
	Closed      bool         `json:"closed"`
	Tokens      []gammaToken `json:"tokens"`
}

type gammaToken struct {
	TokenID string `json:"token_id"`
}

const defaultPageSize = 100

// GammaPoller polls the Polymarket Gamma REST API for open markets and
// flattens each market's outcome tokens into a MarketAsset per token.
type GammaPoller struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewGammaPoller creates a poller against baseURL (e.g.
// "https://gamma-api.polymarket.com").
func NewGammaPoller(baseURL string) *GammaPoller {
	return &GammaPoller{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   defaultPageSize,
	}
}

// Poll walks every page of /markets and returns one MarketAsset per open
// market/token pair. Closed markets are skipped since they no longer trade.
func (g *GammaPoller) Poll(ctx context.Context) ([]domain.MarketAsset, error) {
	var assets []domain.MarketAsset

	for offset := 0; ; offset += g.pageSize {
		page, err := g.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("discovery: poll gamma: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, m := range page {
			if m.Closed {
				continue
			}
			for _, tok := range m.Tokens {
				if tok.TokenID == "" {
					continue
				}
				asset, err := domain.NewMarketAsset(m.ConditionID, tok.TokenID)
				if err != nil {
					continue
				}
				assets = append(assets, asset)
			}
		}

		if len(page) < g.pageSize {
			break
		}
	}

	return assets, nil
}

func (g *GammaPoller) fetchPage(ctx context.Context, offset int) ([]gammaMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(g.pageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("closed", "false")

	reqURL := g.baseURL + "/markets?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gamma markets: HTTP %d: %s", domain.ErrIO, resp.StatusCode, string(body))
	}

	var markets []gammaMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("%w: decode markets: %v", domain.ErrParse, err)
	}
	return markets, nil
}

var _ CatalogPoller = (*GammaPoller)(nil)
