package helpdesk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"Urgent", PriorityUrgent},
		{"high", PriorityHigh},
		{" Medium ", PriorityMedium},
		{"LOW", PriorityLow},
		{"Critical", PriorityUnknown},
		{"", PriorityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePriority(tt.in), "input %q", tt.in)
	}
}

func TestModifiedSince(t *testing.T) {
	since := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		// ticket_id and modify_date arrive as mixed number/string
		// depending on helpdesk version; both shapes must decode.
		w.Write([]byte(`{"data": [
			{"ticket_id": 101, "ticket_hash": "HTK-101", "subject": "no dial tone",
			 "email": "owner@acme.com", "company_name": "Acme", "status": "Open",
			 "priority": "Urgent", "modify_date": 1756710000},
			{"ticket_id": "102", "ticket_hash": "HTK-102", "subject": "voicemail full",
			 "priority": "weird", "modify_date": "1756710050"}
		]}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "tok-123")
	tickets, err := client.ModifiedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, "101", tickets[0].ID)
	assert.Equal(t, "HTK-101", tickets[0].Hash)
	assert.Equal(t, PriorityUrgent, tickets[0].Priority)
	assert.Equal(t, "1756710000", tickets[0].ModifyDate)

	assert.Equal(t, "102", tickets[1].ID)
	assert.Equal(t, PriorityUnknown, tickets[1].Priority, "unrecognized priority defaults to unknown")
	assert.Equal(t, "1756710050", tickets[1].ModifyDate)

	// The query carries the token and the documented operation params.
	assert.Equal(t, "tok-123", gotQuery["vis_txttoken"])
	assert.Equal(t, "ticket", gotQuery["vis_module"])
	assert.Equal(t, "get_tickets", gotQuery["vis_operation"])
	assert.Equal(t, "json", gotQuery["vis_encode"])
	assert.Equal(t, "1", gotQuery["vis_details_req"])
	assert.Equal(t, "1", gotQuery["vis_skip_info"])
	assert.Equal(t, "0,100", gotQuery["vis_limit"])
	assert.Equal(t, fmt.Sprintf("modify_date>%d", since.Unix()), gotQuery["vis_filter"])
}

func TestModifiedSinceUpstreamFailure(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewAPIClient(server.URL, "tok")
		_, err := client.ModifiedSince(context.Background(), time.Now())
		assert.ErrorIs(t, err, ErrUpstreamQueryFailed)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		}))
		defer server.Close()

		client := NewAPIClient(server.URL, "tok")
		_, err := client.ModifiedSince(context.Background(), time.Now())
		assert.ErrorIs(t, err, ErrUpstreamQueryFailed)
	})

	t.Run("connection refused", func(t *testing.T) {
		client := NewAPIClient("http://127.0.0.1:1", "tok")
		_, err := client.ModifiedSince(context.Background(), time.Now())
		assert.ErrorIs(t, err, ErrUpstreamQueryFailed)
	})
}

func TestTicketDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ticket_details", r.URL.Query().Get("vis_operation"))
		assert.Equal(t, "101", r.URL.Query().Get("vis_ticket_id"))
		w.Write([]byte(`{"content": "<p>The main line has no dial tone.</p>"}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "tok")
	detail, err := client.TicketDetails(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "<p>The main line has no dial tone.</p>", detail.Content)
}

func TestTicketDetailsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "tok")
	_, err := client.TicketDetails(context.Background(), "101")
	assert.Error(t, err)
}

func TestPortalURL(t *testing.T) {
	assert.Equal(t, "https://clients.sipcapturer.com", PortalURL("https://clients.sipcapturer.com/api/index.php"))
	assert.Equal(t, "https://desk.example.com", PortalURL("https://desk.example.com/api/index.php"))
}

func TestTicketURL(t *testing.T) {
	u := TicketURL("https://desk.example.com", Ticket{ID: "101", Hash: "HTK-101"})
	assert.Equal(t, "https://desk.example.com/manage/#/ticket/ticket_details/HTK-101/101", u)
}
