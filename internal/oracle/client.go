package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Quote é a leitura de preços de um ticker no oráculo
type Quote struct {
	Ticker        string  `json:"ticker"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	PreviousClose float64 `json:"previous_close"`
}

// VenueMarket é o estado de um mercado espelhado no venue externo
type VenueMarket struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Finalized bool   `json:"finalized"`
	Outcome   string `json:"outcome"` // "yes" | "no" quando finalizado
}

// Client consulta o oráculo de preços/outcomes por HTTP.
// Somente leitura: o engine nunca escreve no venue.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// GetQuote retorna open/close/previous-close de um ticker
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	u := c.BaseURL + "/v1/quotes?ticker=" + url.QueryEscape(ticker)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle quote: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("oracle quote http %d", res.StatusCode)
	}
	var out Quote
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("oracle quote decode: %w", err)
	}
	return &out, nil
}

// GetVenueMarket retorna o estado atual de um mercado no venue externo
func (c *Client) GetVenueMarket(ctx context.Context, venueID string) (*VenueMarket, error) {
	u := c.BaseURL + "/v1/markets/" + url.PathEscape(venueID)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue market: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("venue market http %d", res.StatusCode)
	}
	var out VenueMarket
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("venue market decode: %w", err)
	}
	return &out, nil
}
