package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/chainpipe/chainpipe/internal/dune"
)

func TestDeleteTargetsDatasetPrefixedTable(t *testing.T) {
	client := &stubClient{}
	publisher := newTestPublisher(t, client)

	result := publisher.Delete(context.Background(), "unichain_sepolia_gas_metrics")
	if !result.Deleted() {
		t.Fatalf("Delete() = %+v", result)
	}
	if len(client.deletes) != 1 || client.deletes[0] != "uniswap_fnd/dataset_unichain_sepolia_gas_metrics" {
		t.Fatalf("deletes = %v", client.deletes)
	}
}

func TestDeleteFailureIsRecoverable(t *testing.T) {
	client := &stubClient{deleteErr: &dune.APIError{StatusCode: http.StatusInternalServerError, Body: "boom"}}
	publisher := newTestPublisher(t, client)

	result := publisher.Delete(context.Background(), "unichain_sepolia_gas_metrics")
	if result.Status != DeleteStatusFailed {
		t.Fatalf("Status = %q", result.Status)
	}
	if !strings.Contains(result.Reason, "status=500") {
		t.Fatalf("Reason = %q", result.Reason)
	}
}

func TestDeleteMissingTableTwiceAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"table not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := dune.NewClient(dune.Config{BaseURL: server.URL, APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	publisher := newTestPublisher(t, client)

	first := publisher.Delete(context.Background(), "unichain_sepolia_gas_spenders")
	second := publisher.Delete(context.Background(), "unichain_sepolia_gas_spenders")
	if first.Status != DeleteStatusFailed || second.Status != DeleteStatusFailed {
		t.Fatalf("results = %+v %+v", first, second)
	}
	if first.Reason != second.Reason {
		t.Fatalf("reasons differ: %q vs %q", first.Reason, second.Reason)
	}
}

func TestUploadPassesPayloadAndPrivacy(t *testing.T) {
	client := &stubClient{uploadOK: true}
	publisher := newTestPublisher(t, client)

	ok, err := publisher.Upload(context.Background(), "unichain_sepolia_general_metrics", []byte("A,B\n1,2\n"), true)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !ok {
		t.Fatal("Upload() = false, want true")
	}
	if len(client.uploads) != 1 {
		t.Fatalf("uploads = %d", len(client.uploads))
	}
	req := client.uploads[0]
	if req.TableName != "unichain_sepolia_general_metrics" || req.Data != "A,B\n1,2\n" || !req.IsPrivate {
		t.Fatalf("request = %+v", req)
	}
}

func TestUploadReportsRejection(t *testing.T) {
	publisher := newTestPublisher(t, &stubClient{uploadOK: false})
	ok, err := publisher.Upload(context.Background(), "t", []byte("A\n"), false)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if ok {
		t.Fatal("Upload() = true, want false")
	}
}

func TestUploadErrorPropagates(t *testing.T) {
	sentinel := errors.New("connection reset")
	publisher := newTestPublisher(t, &stubClient{uploadErr: sentinel})
	_, err := publisher.Upload(context.Background(), "t", []byte("A\n"), true)
	if !errors.Is(err, sentinel) {
		t.Fatalf("Upload() error = %v, want %v", err, sentinel)
	}
}

func TestNewValidatesInputs(t *testing.T) {
	if _, err := New(nil, "ns", nil); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := New(&stubClient{}, " ", nil); err == nil {
		t.Fatal("expected error for empty namespace")
	}
}

func newTestPublisher(t *testing.T, client Client) *Publisher {
	t.Helper()
	publisher, err := New(client, "uniswap_fnd", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return publisher
}

type stubClient struct {
	mu        sync.Mutex
	deleteErr error
	uploadOK  bool
	uploadErr error
	deletes   []string
	uploads   []dune.UploadCSVRequest
}

func (s *stubClient) DeleteTable(_ context.Context, namespace, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, fmt.Sprintf("%s/%s", namespace, tableName))
	return s.deleteErr
}

func (s *stubClient) UploadCSV(_ context.Context, req dune.UploadCSVRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, req)
	if s.uploadErr != nil {
		return false, s.uploadErr
	}
	return s.uploadOK, nil
}
