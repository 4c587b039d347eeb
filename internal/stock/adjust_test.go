package stock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/api/apitest"
	"github.com/stockypocky/stockyweb/internal/model"
)

func intPtr(v int) *int { return &v }

func milk() model.ItemListDisplay {
	return model.ItemListDisplay{ID: 1, Name: "Milk", StockQuantity: 2, Threshold: 5, Location: "Fridge"}
}

func setupAdjuster(t *testing.T) (*Adjuster, *apitest.Backend, *api.Client) {
	t.Helper()
	backend := apitest.New(t)
	backend.Items = []model.Item{{ID: 1, Name: "Milk"}}
	backend.Stocks = []model.Stock{{ID: 10, ItemID: 1, Quantity: 2, Threshold: 5, Location: "Fridge"}}
	client := api.NewClient(api.Config{BaseURL: backend.URL()}).WithToken(backend.Token)
	return NewAdjuster(slog.New(slog.NewTextHandler(io.Discard, nil))), backend, client
}

func TestBuildRequestIncrease(t *testing.T) {
	req, err := BuildRequest(model.StockIncrease, milk(), ManualInput{})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	want := model.StockUpdateRequest{Reason: "Increase Milk Stock", Action: model.StockIncrease, Quantity: 1, Threshold: 5, Location: "Fridge"}
	if req != want {
		t.Errorf("request = %+v, want %+v", req, want)
	}
}

func TestBuildRequestDecreaseReason(t *testing.T) {
	req, err := BuildRequest(model.StockDecrease, milk(), ManualInput{})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.Reason != "Decrease Milk Stock" {
		t.Errorf("reason = %q", req.Reason)
	}
}

func TestBuildRequestManualRequiresAllFields(t *testing.T) {
	complete := ManualInput{Quantity: intPtr(0), Threshold: intPtr(3), Location: "Pantry", Reason: "棚卸し"}
	if _, err := BuildRequest(model.StockManual, milk(), complete); err != nil {
		t.Fatalf("complete input rejected: %v", err)
	}

	missing := []ManualInput{
		{Threshold: intPtr(3), Location: "Pantry", Reason: "r"},
		{Quantity: intPtr(1), Location: "Pantry", Reason: "r"},
		{Quantity: intPtr(1), Threshold: intPtr(3), Reason: "r"},
		{Quantity: intPtr(1), Threshold: intPtr(3), Location: "Pantry"},
		{Quantity: intPtr(-1), Threshold: intPtr(3), Location: "Pantry", Reason: "r"},
	}
	for i, in := range missing {
		if _, err := BuildRequest(model.StockManual, milk(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestBuildRequestUnknownMode(t *testing.T) {
	if _, err := BuildRequest("restock", milk(), ManualInput{}); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}
}

func TestApplyDecreaseClampsAtZero(t *testing.T) {
	item := milk()
	item.StockQuantity = 0
	got := Apply(item, model.StockUpdateRequest{Action: model.StockDecrease})
	if got.StockQuantity != 0 {
		t.Errorf("quantity = %d, want 0", got.StockQuantity)
	}
}

func TestAdjustIncrease(t *testing.T) {
	adj, backend, client := setupAdjuster(t)

	res, err := adj.Adjust(context.Background(), client, milk(), model.StockIncrease, ManualInput{})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if res.RolledBack {
		t.Error("unexpected rollback")
	}
	if res.Item.StockQuantity != 3 {
		t.Errorf("quantity = %d, want 3", res.Item.StockQuantity)
	}
	if len(backend.StockUpdates) != 1 || backend.StockUpdates[0].Reason != "Increase Milk Stock" {
		t.Errorf("backend updates = %+v", backend.StockUpdates)
	}
	if backend.Stocks[0].Quantity != 3 {
		t.Errorf("backend quantity = %d, want 3", backend.Stocks[0].Quantity)
	}
}

func TestAdjustManual(t *testing.T) {
	adj, _, client := setupAdjuster(t)

	in := ManualInput{Quantity: intPtr(8), Threshold: intPtr(2), Location: "Pantry", Reason: "棚卸し", Memo: "recount"}
	res, err := adj.Adjust(context.Background(), client, milk(), model.StockManual, in)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if res.Item.StockQuantity != 8 || res.Item.Threshold != 2 || res.Item.Location != "Pantry" {
		t.Errorf("item = %+v", res.Item)
	}
}

func TestAdjustInvalidDoesNotCallBackend(t *testing.T) {
	adj, backend, client := setupAdjuster(t)

	_, err := adj.Adjust(context.Background(), client, milk(), model.StockManual, ManualInput{Reason: "r"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(backend.StockUpdates) != 0 {
		t.Errorf("backend received %d updates, want 0", len(backend.StockUpdates))
	}
}

func TestAdjustFailureRefetches(t *testing.T) {
	adj, backend, client := setupAdjuster(t)
	backend.Fail("PUT /items/1/stock", http.StatusInternalServerError)

	// The displayed state is stale; the backend holds the truth.
	stale := milk()
	stale.StockQuantity = 9

	res, err := adj.Adjust(context.Background(), client, stale, model.StockIncrease, ManualInput{})
	if err == nil {
		t.Fatal("expected error")
	}
	if api.StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", api.StatusCode(err))
	}
	if !res.RolledBack {
		t.Error("expected RolledBack")
	}
	if res.Item.StockQuantity != 2 {
		t.Errorf("quantity = %d, want refetched 2", res.Item.StockQuantity)
	}
}

func TestAdjustFailureKeepsLastKnownWhenRefetchFails(t *testing.T) {
	adj, backend, client := setupAdjuster(t)
	backend.Fail("PUT /items/1/stock", http.StatusInternalServerError)
	backend.Fail("GET /items/1/stock", http.StatusInternalServerError)

	res, err := adj.Adjust(context.Background(), client, milk(), model.StockDecrease, ManualInput{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !res.RolledBack || res.Item != milk() {
		t.Errorf("result = %+v, want rolled back to %+v", res, milk())
	}
}
