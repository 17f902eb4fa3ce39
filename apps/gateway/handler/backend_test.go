package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go-pos/pkg/audit"
	"go-pos/pkg/events"
	"go-pos/pkg/model"
	"go-pos/pkg/transfer"
)

// backend is an in-memory POS backend behind httptest.
type backend struct {
	mu     sync.Mutex
	tables []model.Table
	orders map[string]model.Order
	// failures keyed by "METHOD path"
	failures map[string]apiFailure
	calls    []string
	auth     []string
}

type apiFailure struct {
	status int
	detail string
}

func ref(id string) *model.FlexString {
	f := model.FlexString(id)
	return &f
}

func occupiedTable(id, order string) model.Table {
	return model.Table{ID: model.FlexString(id), Number: model.FlexString(id), Status: model.TableOccupied, CurrentOrderID: ref(order)}
}

func availableTable(id string) model.Table {
	return model.Table{ID: model.FlexString(id), Number: model.FlexString(id), Status: model.TableAvailable}
}

func amount(v float64) *float64 { return &v }

func newBackend(t *testing.T, tables ...model.Table) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{tables: tables, orders: map[string]model.Order{}, failures: map[string]apiFailure{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/pin-login", b.pinLogin)
	mux.HandleFunc("GET /api/tables", b.listTables)
	mux.HandleFunc("PUT /api/tables/{id}", b.updateTable)
	mux.HandleFunc("POST /api/tables/{id}/move", b.move)
	mux.HandleFunc("POST /api/tables/{id}/merge", b.merge)
	mux.HandleFunc("GET /api/orders", b.activeOrders)
	mux.HandleFunc("GET /api/orders/{id}", b.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", b.cancelOrder)
	mux.HandleFunc("GET /api/taxes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.TaxRate{})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		key := r.Method + " " + r.URL.Path
		b.calls = append(b.calls, key)
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		f, failing := b.failures[key]
		b.mu.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]string{"detail": f.detail})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) fail(key string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key] = apiFailure{status: status, detail: detail}
}

func (b *backend) called(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (b *backend) table(id string) model.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, _ := model.FindTable(b.tables, model.FlexString(id))
	return t
}

func (b *backend) index(id string) int {
	for i, t := range b.tables {
		if t.ID.String() == id {
			return i
		}
	}
	return -1
}

func (b *backend) pinLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pin string `json:"pin"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Pin != "1234" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid PIN"})
		return
	}
	writeJSON(w, http.StatusOK, model.PinLoginResponse{
		AccessToken: "backend-tok",
		Staff:       model.Staff{ID: "7", Name: "Ana", Role: "manager"},
	})
}

func (b *backend) listTables(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.tables)
}

func (b *backend) updateTable(w http.ResponseWriter, r *http.Request) {
	var upd model.TableUpdate
	_ = json.NewDecoder(r.Body).Decode(&upd)
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(r.PathValue("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Table not found"})
		return
	}
	if upd.Status != nil {
		b.tables[i].Status = *upd.Status
	}
	b.tables[i].CurrentOrderID = upd.CurrentOrderID
	writeJSON(w, http.StatusOK, b.tables[i])
}

func (b *backend) transferTarget(r *http.Request) (src, dst int) {
	var req struct {
		NewTableID model.FlexString `json:"new_table_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	return b.index(r.PathValue("id")), b.index(req.NewTableID.String())
}

func (b *backend) move(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, dst := b.transferTarget(r)
	b.tables[dst].CurrentOrderID = b.tables[src].CurrentOrderID
	b.tables[dst].Status = model.TableOccupied
	b.tables[src].CurrentOrderID = nil
	b.tables[src].Status = model.TableAvailable
	writeJSON(w, http.StatusOK, map[string]string{"message": "moved"})
}

func (b *backend) merge(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, _ := b.transferTarget(r)
	b.tables[src].CurrentOrderID = nil
	b.tables[src].Status = model.TableAvailable
	writeJSON(w, http.StatusOK, map[string]string{"message": "merged"})
}

func (b *backend) activeOrders(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []model.Order{}
	for _, o := range b.orders {
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *backend) getOrder(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (b *backend) cancelOrder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type fakeAudit struct {
	mu       sync.Mutex
	recorded []transfer.Event
	created  []events.PrintJob
	finished map[string]error
	recent   []audit.TransferLog
}

func (a *fakeAudit) RecordTransfer(_ context.Context, ev transfer.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recorded = append(a.recorded, ev)
	return nil
}

func (a *fakeAudit) RecentTransfers(context.Context, int) ([]audit.TransferLog, error) {
	return a.recent, nil
}

func (a *fakeAudit) CreatePrintJob(_ context.Context, job events.PrintJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, job)
	return nil
}

func (a *fakeAudit) FinishPrintJob(_ context.Context, jobID, _ string, printErr error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished == nil {
		a.finished = map[string]error{}
	}
	a.finished[jobID] = printErr
	return nil
}

type fakeQueue struct {
	jobs []events.PrintJob
	err  error
}

func (q *fakeQueue) EnqueuePrint(_ context.Context, job events.PrintJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []transfer.Event
}

func (n *fakeNotifier) TablesChanged(_ context.Context, ev transfer.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type fakeHealth struct {
	status string
	err    error
}

func (f fakeHealth) Status(context.Context) (string, error) { return f.status, f.err }
