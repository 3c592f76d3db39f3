package solver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TrainProtocol/swapd/internal/core/domain"
	"github.com/TrainProtocol/swapd/internal/core/ports"
)

func TestGetSwap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/lswt/swaps/0xabc", r.URL.Path)
		// nolint:all
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"sourceNetwork":      "ETHEREUM_SEPOLIA",
				"destinationNetwork": "STARKNET_SEPOLIA",
				"transactions": []map[string]any{
					{"type": "HTLCLock", "hash": "0x1", "network": "STARKNET_SEPOLIA"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	swap, err := client.GetSwap(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, "ETHEREUM_SEPOLIA", swap.SourceNetwork)
	require.NotNil(t, swap.Transaction(domain.TxTypeHTLCLock, "STARKNET_SEPOLIA"))
	require.Nil(t, swap.Transaction(domain.TxTypeHTLCRedeem, ""))
}

func TestGetSwapNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nolint:all
		w.Write([]byte(`{"data": null}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	_, err := client.GetSwap(context.Background(), "0xabc")
	require.ErrorIs(t, err, domain.ErrNoResult)
}

func TestGetSwapApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nolint:all
		w.Write([]byte(`{"error": "swap not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	_, err := client.GetSwap(context.Background(), "0xabc")
	require.EqualError(t, err, "swap not found")
}

func TestGetSwapHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal failure", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	_, err := client.GetSwap(context.Background(), "0xabc")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	require.Contains(t, httpErr.Body, "internal failure")
}

func TestSubmitAddLockSig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/lswt/swaps/0xabc/addLockSig", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ports.AddLockSigRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0xsig", req.Signature)
		require.Equal(t, int64(1700000000), req.Timelock)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	err := client.SubmitAddLockSig(context.Background(), "0xabc", ports.AddLockSigRequest{
		Signature: "0xsig",
		Timelock:  1700000000,
	})
	require.NoError(t, err)
}

func TestSubmitAddLockSigError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nolint:all
		w.Write([]byte(`{"error": "bad signature"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "lswt")
	err := client.SubmitAddLockSig(context.Background(), "0xabc", ports.AddLockSigRequest{})
	require.EqualError(t, err, "bad signature")
}

func TestTrailingSlashTrimmed(t *testing.T) {
	client := NewClient("http://localhost:9999/", "lswt")
	require.Equal(t, "http://localhost:9999", client.URL)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, "lswt")
	_, err := client.GetSwap(ctx, "0xabc")
	require.True(t, errors.Is(err, context.Canceled))
}
