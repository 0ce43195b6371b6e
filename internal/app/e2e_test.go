//go:build e2e

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

const e2eAPIKey = "e2e-key"

var (
	baseURL    string
	httpClient *http.Client
)

// Response types are local so the test stays black-box.

type productResponse struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Price     float64 `json:"price"`
	UnitPrice float64 `json:"unit_price"`
}

type orderResponse struct {
	ID    string  `json:"id"`
	Total float64 `json:"total"`
	Items []struct {
		ProductID string  `json:"product_id"`
		LineTotal float64 `json:"line_total"`
	} `json:"items"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("../../docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	err = dc.
		WaitForService("api", wait.ForHTTP("/readyz").WithPort("8080/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	api, err := dc.ServiceContainer(ctx, "api")
	if err != nil {
		log.Fatalf("api container: %v", err)
	}
	host, err := api.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := api.MappedPort(ctx, "8080/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	baseURL = fmt.Sprintf("http://%s:%s", host, port.Port())
	httpClient = &http.Client{Timeout: 10 * time.Second}

	code, out, err := api.Exec(ctx, []string{
		"/app/seed-db",
		"--api-key=" + e2eAPIKey,
		"--season-year=" + fmt.Sprint(time.Now().UTC().Year()),
	})
	if err != nil {
		log.Fatalf("seed exec: %v", err)
	}
	if code != 0 {
		b, _ := io.ReadAll(out)
		log.Fatalf("seed-db exited %d: %s", code, b)
	}

	return m.Run()
}

func do(t *testing.T, method, path string, body any, apiKey string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// seasonalPrice is the seeded seasonal product's unit price today: its
// window is December of the current year.
func seasonalPrice() float64 {
	if time.Now().UTC().Month() == time.December {
		return 160
	}
	return 200
}

func TestE2E_Health(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, "/livez", nil, "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, "/readyz", nil, "").StatusCode)
}

func TestE2E_Products(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	prices := map[string]float64{}
	for _, p := range decode[[]productResponse](t, resp) {
		prices[p.ID] = p.UnitPrice
	}
	assert.Equal(t, 100.0, prices["flat-widget"])
	assert.Equal(t, seasonalPrice(), prices["seasonal-lights"])
	assert.Equal(t, 150.0, prices["bulk-bolts"])

	resp = do(t, http.MethodGet, "/api/products/bulk-bolts?quantity=10", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 127.5, decode[productResponse](t, resp).UnitPrice)
}

func TestE2E_OrderLifecycle(t *testing.T) {
	req := map[string]any{"items": []map[string]any{
		{"product_id": "flat-widget", "quantity": 2, "discount_id": "ten-percent"},
		{"product_id": "seasonal-lights", "quantity": 1},
		{"product_id": "bulk-bolts", "quantity": 10, "discount_id": "twenty-off"},
	}}

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, "/api/orders", req, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, "/api/orders", req, "wrong").StatusCode)

	resp := do(t, http.MethodPost, "/api/orders", req, e2eAPIKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[orderResponse](t, resp)

	want := 180 + seasonalPrice() + 1075
	assert.Equal(t, want, placed.Total)
	require.Len(t, placed.Items, 3)
	assert.Equal(t, "flat-widget", placed.Items[0].ProductID)
	assert.Equal(t, 1075.0, placed.Items[2].LineTotal)

	resp = do(t, http.MethodGet, "/api/orders/"+placed.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, want, decode[orderResponse](t, resp).Total)

	assert.Equal(t, http.StatusConflict, do(t, http.MethodDelete, "/api/products/flat-widget", nil, e2eAPIKey).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, "/api/orders/"+placed.ID, nil, e2eAPIKey).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, "/api/orders/"+placed.ID, nil, "").StatusCode)
}

func TestE2E_OrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "empty items", body: map[string]any{"items": []any{}}, status: http.StatusBadRequest},
		{name: "unknown product", body: map[string]any{"items": []map[string]any{
			{"product_id": "ghost", "quantity": 1},
		}}, status: http.StatusUnprocessableEntity},
		{name: "zero quantity", body: map[string]any{"items": []map[string]any{
			{"product_id": "flat-widget", "quantity": 0},
		}}, status: http.StatusUnprocessableEntity},
		{name: "unknown discount", body: map[string]any{"items": []map[string]any{
			{"product_id": "flat-widget", "quantity": 1, "discount_id": "ghost"},
		}}, status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(t, http.MethodPost, "/api/orders", tt.body, e2eAPIKey).StatusCode)
		})
	}
}
