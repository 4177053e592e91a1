package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
)

func init() {
	pterm.DisableStyling()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// runCLI executes args against a client pointed at mux
func runCLI(t *testing.T, mux *http.ServeMux, ring keyring.Keyring, args ...string) (string, error) {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	a := newApp()
	a.connect = func(*app) (*dishdash.Client, error) {
		return dishdash.NewClient(&dishdash.ClientOptions{
			BaseURL:     server.URL,
			Keyring:     ring,
			Notifier:    dishdash.NewTerminalNotifier(io.Discard),
			RetryConfig: &dishdash.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxWait: time.Millisecond},
			Tracker:     &dishdash.TrackerConfig{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
		})
	}

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func loginMux(role string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user": map[string]interface{}{
				"id": "u1", "email": "ana@example.com", "role": role, "firstName": "Ana", "lastName": "Cruz",
			},
		})
	})
	return mux
}

func TestLogin_ShowsLandingPageAndPersistsSession(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)

	out, err := runCLI(t, loginMux("cook"), ring, "login", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ana Cruz (cook)")
	assert.Contains(t, out, "/cook/dashboard")

	out, err = runCLI(t, http.NewServeMux(), ring, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Cruz <ana@example.com>")
	assert.Contains(t, out, "Role:    cook")
}

func TestLogin_BadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	})

	_, err := runCLI(t, mux, keyring.NewArrayKeyring(nil), "login", "--email", "ana@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
}

func TestWhoami_Anonymous(t *testing.T) {
	out, err := runCLI(t, http.NewServeMux(), keyring.NewArrayKeyring(nil), "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	_, err := runCLI(t, http.NewServeMux(), keyring.NewArrayKeyring(nil),
		"register", "--email", "ana@example.com", "--password", "secret", "--role", "chef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "chef"`)
}

func TestMeals_RendersTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/meals", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "thai", r.URL.Query().Get("cuisine"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"meals": []map[string]interface{}{
				{"id": "m1", "name": "Pad Thai", "cuisine": "thai", "price": 12.5, "available": true, "cook": map[string]string{"id": "c1", "name": "Lek"}},
			},
			"totalCount": 3,
		})
	})

	out, err := runCLI(t, mux, keyring.NewArrayKeyring(nil), "meals", "--cuisine", "thai", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pad Thai")
	assert.Contains(t, out, "12.50 USD")
	assert.Contains(t, out, "Lek")
	assert.Contains(t, out, "Showing 1 of 3 meals")
	assert.Contains(t, out, "--offset 1")
}

func TestOrdersCreate_SendsItems(t *testing.T) {
	var body struct {
		Items []struct {
			MealID   string `json:"mealId"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		DeliveryAddress string `json:"deliveryAddress"`
		DeliveryDate    string `json:"deliveryDate"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id": "o1", "status": "pending", "total": 30, "deliveryAddress": "1 Main St",
			"items": []map[string]interface{}{{"mealId": "m1", "name": "Pad Thai", "quantity": 2}},
		})
	})

	out, err := runCLI(t, mux, keyring.NewArrayKeyring(nil),
		"orders", "create", "--meal", "m1:2", "--meal", "m2", "--address", "1 Main St", "--date", "2026-11-02")
	require.NoError(t, err)

	require.Len(t, body.Items, 2)
	assert.Equal(t, "m1", body.Items[0].MealID)
	assert.Equal(t, 2, body.Items[0].Quantity)
	assert.Equal(t, 1, body.Items[1].Quantity)
	assert.Equal(t, "1 Main St", body.DeliveryAddress)
	assert.Equal(t, "2026-11-02", body.DeliveryDate)

	assert.Contains(t, out, "Order o1 placed")
	assert.Contains(t, out, "2x Pad Thai")
}

func TestOrdersTrack_FollowsToDelivery(t *testing.T) {
	statuses := []string{"confirmed", "preparing", "out_for_delivery", "delivered"}
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/orders/o1", func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "o1", "status": statuses[i]})
	})

	out, err := runCLI(t, mux, keyring.NewArrayKeyring(nil), "orders", "track", "o1", "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracking o1, currently confirmed")
	assert.Contains(t, out, "confirmed -> preparing -> out_for_delivery -> delivered")
	assert.Contains(t, out, "Order o1 delivered")
}

func TestNavigate_ReportsRedirect(t *testing.T) {
	out, err := runCLI(t, http.NewServeMux(), keyring.NewArrayKeyring(nil), "navigate", "/customer/orders")
	require.NoError(t, err)
	assert.Contains(t, out, "Redirected: /customer/orders -> /auth/login?returnUrl=%2Fcustomer%2Forders")

	out, err = runCLI(t, http.NewServeMux(), keyring.NewArrayKeyring(nil), "navigate", "/auth/login")
	require.NoError(t, err)
	assert.Contains(t, out, "Allowed: /auth/login")
}

func TestConnectError(t *testing.T) {
	a := newApp()
	a.connect = func(*app) (*dishdash.Client, error) {
		return nil, errors.New("keyring locked")
	}

	root := newRootCmd(a)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"whoami"})
	err := root.Execute()
	assert.EqualError(t, err, "keyring locked")
}

func TestParseItems(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []dishdash.OrderItem
		wantErr bool
	}{
		{"default quantity", []string{"m1"}, []dishdash.OrderItem{{MealID: "m1", Quantity: 1}}, false},
		{"explicit quantity", []string{"m1:3", "m2:1"}, []dishdash.OrderItem{{MealID: "m1", Quantity: 3}, {MealID: "m2", Quantity: 1}}, false},
		{"zero quantity", []string{"m1:0"}, nil, true},
		{"not a number", []string{"m1:two"}, nil, true},
		{"missing id", []string{":2"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseItems(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
