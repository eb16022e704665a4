package helpdesk

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
)

// ErrUpstreamQueryFailed indicates the helpdesk ticket query could not be
// completed. The caller must abort the cycle without persisting state so the
// next scheduled run re-detects the same window.
var ErrUpstreamQueryFailed = errors.New("upstream ticket query failed")

// Client is the ticketing collaborator boundary. ModifiedSince lists tickets
// whose revision marker is newer than since; TicketDetails fetches the full
// record (body content) for one ticket.
type Client interface {
	ModifiedSince(ctx context.Context, since time.Time) ([]Ticket, error)
	TicketDetails(ctx context.Context, id string) (Detail, error)
}

const (
	// pageLimit bounds a single query window ("offset,count").
	pageLimit = "0,100"

	defaultQueryTimeout = 30 * time.Second
)

// APIClient talks to the Vision Helpdesk token API (api/index.php).
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var _ Client = (*APIClient)(nil)

// NewAPIClient creates a client for the given API endpoint and token.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultQueryTimeout},
	}
}

// ModifiedSince queries for tickets modified after since, newest page first,
// bounded to a single page of 100. Query failure wraps ErrUpstreamQueryFailed.
func (c *APIClient) ModifiedSince(ctx context.Context, since time.Time) ([]Ticket, error) {
	params := url.Values{}
	params.Set("vis_operation", "get_tickets")
	params.Set("vis_filter", fmt.Sprintf("modify_date>%d", since.Unix()))
	params.Set("vis_details_req", "1")
	params.Set("vis_skip_info", "1")
	params.Set("vis_limit", pageLimit)

	var result struct {
		Data []apiTicket `json:"data"`
	}
	if err := c.get(ctx, params, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamQueryFailed, err)
	}

	tickets := make([]Ticket, 0, len(result.Data))
	for _, raw := range result.Data {
		tickets = append(tickets, raw.ticket())
	}
	return tickets, nil
}

// TicketDetails fetches the full record for one ticket. Errors here are
// expected to degrade to an empty-content triage at the caller.
func (c *APIClient) TicketDetails(ctx context.Context, id string) (Detail, error) {
	params := url.Values{}
	params.Set("vis_operation", "ticket_details")
	params.Set("vis_ticket_id", id)

	var detail Detail
	if err := c.get(ctx, params, &detail); err != nil {
		return Detail{}, fmt.Errorf("fetching details for ticket %s: %w", id, err)
	}
	return detail, nil
}

// get issues one token-authenticated API request and decodes the JSON body.
func (c *APIClient) get(ctx context.Context, params url.Values, out any) error {
	params.Set("vis_txttoken", c.Token)
	params.Set("vis_module", "ticket")
	params.Set("vis_encode", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultQueryTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("helpdesk returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// PortalURL derives the customer portal root from the API endpoint
// (scheme + host, dropping the /api path).
func PortalURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(apiURL, "/api/index.php")
	}
	return u.Scheme + "://" + u.Host
}

// TicketURL builds the deep link into the portal's ticket view.
func TicketURL(portal string, t Ticket) string {
	return fmt.Sprintf("%s/manage/#/ticket/ticket_details/%s/%s", strings.TrimSuffix(portal, "/"), t.Hash, t.ID)
}
