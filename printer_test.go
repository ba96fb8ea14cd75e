package cloudprint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListPrinters(t *testing.T) {
	tests := []struct {
		name        string
		response    map[string]any
		status      int
		want        []Printer
		wantErr     bool
		errContains string
	}{
		{
			name: "maps provider fields",
			response: map[string]any{
				"success": true,
				"printers": []map[string]any{
					{
						"id":               "printer-1",
						"displayName":      "Front Desk",
						"description":      "HP LaserJet",
						"type":             "GOOGLE",
						"connectionStatus": "ONLINE",
						"proxy":            "ignored",
					},
					{
						"id":               "printer-2",
						"displayName":      "Warehouse",
						"type":             "DRIVE",
						"connectionStatus": "OFFLINE",
					},
				},
			},
			status: http.StatusOK,
			want: []Printer{
				{ID: "printer-1", Name: "Front Desk", Description: "HP LaserJet", Type: "GOOGLE", Status: "ONLINE"},
				{ID: "printer-2", Name: "Warehouse", Type: "DRIVE", Status: "OFFLINE"},
			},
		},
		{
			name:     "no printers",
			response: map[string]any{"success": true, "printers": []any{}},
			status:   http.StatusOK,
			want:     []Printer{},
		},
		{
			name:     "printers field absent",
			response: map[string]any{"success": true},
			status:   http.StatusOK,
			want:     []Printer{},
		},
		{
			name:        "provider error",
			status:      http.StatusBadRequest,
			wantErr:     true,
			errContains: "parsing search response: request failed with status 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/cloudprint/search", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "OAuth old-token", r.Header.Get("Authorization"))
				assert.Equal(t, "node-gcp", r.Header.Get("X-CloudPrint-Proxy"))

				if tt.status != http.StatusOK {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte("bad request"))
					return
				}
				writeJSON(w, tt.response)
			}))
			defer server.Close()

			client := newTestClient(t, server)
			got, err := client.ListPrinters(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ListPrinters_RefreshesOnForbidden(t *testing.T) {
	var refreshes, searches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v3/token", tokenHandler(t, &refreshes, "new-token"))
	mux.HandleFunc("/cloudprint/search", func(w http.ResponseWriter, r *http.Request) {
		if searches.Add(1) == 1 {
			assert.Equal(t, "OAuth old-token", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "OAuth new-token", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{
			"printers": []map[string]any{
				{"id": "b", "displayName": "Second", "connectionStatus": "ONLINE"},
				{"id": "a", "displayName": "First", "connectionStatus": "DORMANT"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.ListPrinters(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), searches.Load())
	assert.Equal(t, []Printer{
		{ID: "b", Name: "Second", Status: "ONLINE"},
		{ID: "a", Name: "First", Status: "DORMANT"},
	}, got)
}

func TestClient_GetPrinter(t *testing.T) {
	tests := []struct {
		name     string
		printers []map[string]any
		want     PrinterRecord
	}{
		{
			name: "returns first raw record",
			printers: []map[string]any{
				{
					"id":               "printer-123",
					"displayName":      "Front Desk",
					"connectionStatus": "ONLINE",
					"capabilities":     map[string]any{"printer": map[string]any{}},
				},
				{"id": "printer-456"},
			},
			want: PrinterRecord{
				"id":               "printer-123",
				"displayName":      "Front Desk",
				"connectionStatus": "ONLINE",
				"capabilities":     map[string]any{"printer": map[string]any{}},
			},
		},
		{
			name:     "no matching printer",
			printers: []map[string]any{},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/cloudprint/printer", r.URL.Path)
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "printer-123", r.PostForm.Get("printerid"))
				writeJSON(w, map[string]any{"success": true, "printers": tt.printers})
			}))
			defer server.Close()

			client := newTestClient(t, server)
			got, err := client.GetPrinter(context.Background(), "printer-123")

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_GetPrinter_RefreshesOnForbidden(t *testing.T) {
	var refreshes, lookups atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v3/token", tokenHandler(t, &refreshes, "new-token"))
	mux.HandleFunc("/cloudprint/printer", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "p1", r.PostForm.Get("printerid"))
		if r.Header.Get("Authorization") != "OAuth new-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeJSON(w, map[string]any{"printers": []map[string]any{{"id": "p1"}}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.GetPrinter(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, PrinterRecord{"id": "p1"}, got)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), lookups.Load())
}

func TestPrinterRecord_Printer(t *testing.T) {
	record := PrinterRecord{
		"id":               "printer-1",
		"displayName":      "Front Desk",
		"description":      "HP LaserJet",
		"type":             "GOOGLE",
		"connectionStatus": "ONLINE",
		"tags":             []any{"a"},
	}

	assert.Equal(t, Printer{
		ID:          "printer-1",
		Name:        "Front Desk",
		Description: "HP LaserJet",
		Type:        "GOOGLE",
		Status:      "ONLINE",
	}, record.Printer())
	assert.Equal(t, Printer{}, PrinterRecord(nil).Printer())
}

func TestClient_FindPrinterByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"printers": []map[string]any{
				{"id": "printer-1", "displayName": "Front Desk"},
				{"id": "printer-2", "displayName": "Warehouse"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	got, err := client.FindPrinterByName(context.Background(), "Warehouse")
	require.NoError(t, err)
	assert.Equal(t, "printer-2", got.ID)

	_, err = client.FindPrinterByName(context.Background(), "Basement")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer with name Basement not found")
}
