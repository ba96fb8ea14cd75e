package cloudprint

import (
	"context"
	"fmt"
	"net/url"
)

// Printer is the projection of a provider printer record returned by ListPrinters.
type Printer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Status      string `json:"status"`
}

// PrinterRecord is a printer exactly as the provider returns it.
type PrinterRecord map[string]any

// Printer projects the record onto the same shape ListPrinters returns.
func (r PrinterRecord) Printer() Printer {
	str := func(key string) string {
		s, _ := r[key].(string)
		return s
	}
	return Printer{
		ID:          str("id"),
		Name:        str("displayName"),
		Description: str("description"),
		Type:        str("type"),
		Status:      str("connectionStatus"),
	}
}

type searchResponse struct {
	Printers []struct {
		ID               string `json:"id"`
		DisplayName      string `json:"displayName"`
		Description      string `json:"description"`
		Type             string `json:"type"`
		ConnectionStatus string `json:"connectionStatus"`
	} `json:"printers"`
}

// ListPrinters retrieves the printers visible to the authenticated account,
// in the order the provider returns them.
func (c *Client) ListPrinters(ctx context.Context) ([]Printer, error) {
	return withAuthRetry(ctx, c, func(ctx context.Context, token string) ([]Printer, error) {
		resp, err := c.doRequest(ctx, searchEndpoint, nil, token)
		if err != nil {
			return nil, fmt.Errorf("searching printers: %w", err)
		}

		var searchResp searchResponse
		if err := parseResponse(resp, &searchResp); err != nil {
			return nil, fmt.Errorf("parsing search response: %w", err)
		}

		printers := make([]Printer, 0, len(searchResp.Printers))
		for _, p := range searchResp.Printers {
			printers = append(printers, Printer{
				ID:          p.ID,
				Name:        p.DisplayName,
				Description: p.Description,
				Type:        p.Type,
				Status:      p.ConnectionStatus,
			})
		}
		return printers, nil
	})
}

// GetPrinter retrieves the provider record for a single printer. It returns
// nil without error when the provider reports no matching printer.
func (c *Client) GetPrinter(ctx context.Context, printerID string) (PrinterRecord, error) {
	return withAuthRetry(ctx, c, func(ctx context.Context, token string) (PrinterRecord, error) {
		form := url.Values{"printerid": {printerID}}
		resp, err := c.doRequest(ctx, printerEndpoint, form, token)
		if err != nil {
			return nil, fmt.Errorf("getting printer: %w", err)
		}

		var printerResp struct {
			Printers []PrinterRecord `json:"printers"`
		}
		if err := parseResponse(resp, &printerResp); err != nil {
			return nil, fmt.Errorf("parsing printer response: %w", err)
		}

		if len(printerResp.Printers) == 0 {
			return nil, nil
		}
		return printerResp.Printers[0], nil
	})
}

// FindPrinterByName finds a printer by its display name.
func (c *Client) FindPrinterByName(ctx context.Context, name string) (*Printer, error) {
	printers, err := c.ListPrinters(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing printers: %w", err)
	}

	for i := range printers {
		if printers[i].Name == name {
			return &printers[i], nil
		}
	}

	return nil, fmt.Errorf("printer with name %s not found", name)
}
