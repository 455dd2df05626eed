package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"luckybot/config"
	"luckybot/service"

	log "github.com/sirupsen/logrus"
)

// Client polls a TronGrid-compatible API for confirmed TRC20 transfers into
// the collection address. It is stateless; the deposit reconciler dedupes by
// transaction ID, so refetching the same page is safe.
type Client struct {
	baseURL    string
	address    string
	contract   string
	httpClient *http.Client
}

// NewClient creates a new transfer feed client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:  cfg.FeedBaseURL,
		address:  cfg.CollectionAddress,
		contract: cfg.TokenContract,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type trc20Response struct {
	Data    []trc20Transfer `json:"data"`
	Success bool            `json:"success"`
}

type trc20Transfer struct {
	TransactionID string `json:"transaction_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Type          string `json:"type"`
	Value         string `json:"value"`
	TokenInfo     struct {
		Address string `json:"address"`
	} `json:"token_info"`
}

// Fetch returns the most recent confirmed transfers to the collection address
func (c *Client) Fetch(ctx context.Context) ([]service.Transfer, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20", c.baseURL, url.PathEscape(c.address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	q := req.URL.Query()
	q.Set("only_to", "true")
	q.Set("only_confirmed", "true")
	q.Set("limit", "50")
	if c.contract != "" {
		q.Set("contract_address", c.contract)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var payload trc20Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("feed reported failure")
	}

	transfers := make([]service.Transfer, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.Type != "Transfer" {
			continue
		}
		if c.contract != "" && item.TokenInfo.Address != c.contract {
			continue
		}

		// Token values arrive as decimal strings
		amount, err := strconv.ParseInt(item.Value, 10, 64)
		if err != nil {
			log.WithFields(log.Fields{
				"txID":  item.TransactionID,
				"value": item.Value,
			}).Warn("Skipping transfer with unparseable value")
			continue
		}

		transfers = append(transfers, service.Transfer{
			TxID:   item.TransactionID,
			To:     item.To,
			Amount: amount,
		})
	}

	return transfers, nil
}
