package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"card-auction-engine/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client talks to the platform's inventory service over HTTP. The engine
// calls it only after a settlement has committed; failures are reported to
// the caller, which logs them for reconciliation rather than rolling back.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an inventory service client.
func NewClient(cfg config.InventoryConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type transferRequest struct {
	ItemID uuid.UUID `json:"item_id"`
	FromID uuid.UUID `json:"from_id"`
	ToID   uuid.UUID `json:"to_id"`
}

type releaseRequest struct {
	ItemID  uuid.UUID `json:"item_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// TransferOwnership moves a card from the seller's escrow to the winner.
func (c *Client) TransferOwnership(ctx context.Context, itemID, from, to uuid.UUID) error {
	return c.post(ctx, "/internal/v1/items/transfer", transferRequest{
		ItemID: itemID, FromID: from, ToID: to,
	})
}

// Release returns an unsold card to the seller's available inventory.
func (c *Client) Release(ctx context.Context, itemID, ownerID uuid.UUID) error {
	return c.post(ctx, "/internal/v1/items/release", releaseRequest{
		ItemID: itemID, OwnerID: ownerID,
	})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal inventory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build inventory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inventory request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inventory request %s: status %d: %s", path, resp.StatusCode, string(detail))
	}
	return nil
}
