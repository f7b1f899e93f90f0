package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eieicore/queue-v1/internal/kiosk"
	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/queue"
	"github.com/eieicore/queue-v1/internal/store/memory"
)

var apiRooms = []models.Room{
	{RoomCode: "H1", RoomName: "History Taking", RoomType: "history_taking", IsActive: true, DisplayOrder: 1},
	{RoomCode: "A", RoomName: "Examination A", RoomType: "examination", IsActive: true, DisplayOrder: 2},
}

func newTestHandler(t *testing.T) (http.Handler, *queue.Service, *memory.Store) {
	t.Helper()
	mem := memory.New()
	mem.SeedRooms(apiRooms)
	service := queue.NewService(mem)
	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return NewHandler(service, kiosk.NewIssuer(mem)).Routes(), service, mem
}

func seedWaiting(t *testing.T, service *queue.Service, mem *memory.Store, qr, room string, created time.Time) {
	t.Helper()
	_, err := mem.CreateTicket(context.Background(), models.Ticket{
		QRCode:      qr,
		QueueNumber: qr,
		Status:      models.StatusWaiting,
		TriageLevel: models.TriageNonUrgent,
		RoomID:      room,
		CreatedAt:   created,
		RoomHistory: []models.HistorySegment{{RoomID: room, EnteredAt: created}},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", qr, err)
	}
	if err := service.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func do(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-Operator", "nurse1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return payload.Error.Code
}

func TestHealth(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	if rec := do(t, handler, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIssueTicket(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := do(t, handler, http.MethodPost, "/api/tickets", `{"patient_type":"new","patient_name":"Jane"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ticket models.Ticket
	if err := json.Unmarshal(rec.Body.Bytes(), &ticket); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ticket.RoomID != "H1" || ticket.Status != models.StatusWaiting {
		t.Fatalf("issued ticket %+v", ticket)
	}
	if !strings.HasPrefix(ticket.QRCode, "MEDIQUEUE_") {
		t.Fatalf("reference code %q", ticket.QRCode)
	}
}

func TestIssueTicketValidation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed json", `{`, http.StatusBadRequest, "invalid_json"},
		{"missing patient type", `{}`, http.StatusBadRequest, "invalid_request"},
		{"unknown patient type", `{"patient_type":"walkup"}`, http.StatusBadRequest, "invalid_request"},
		{"returning without room", `{"patient_type":"returning"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown room", `{"patient_type":"returning","room_id":"Z"}`, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/tickets", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Fatalf("error code = %s, want %s", got, tt.wantErr)
			}
		})
	}
}

func TestTicketStatus(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	base := time.Now().UTC()
	seedWaiting(t, service, mem, "T1", "A", base)
	seedWaiting(t, service, mem, "T2", "A", base.Add(time.Minute))

	rec := do(t, handler, http.MethodGet, "/api/tickets/status?qr_code=T2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Ticket       models.Ticket `json:"ticket"`
		QueuesAhead  int           `json:"queues_ahead"`
		WaitingCount int           `json:"waiting_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Ticket.QRCode != "T2" || payload.QueuesAhead != 1 || payload.WaitingCount != 2 {
		t.Fatalf("payload %+v", payload)
	}

	if rec := do(t, handler, http.MethodGet, "/api/tickets/status?qr_code=ghost", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("ghost status = %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodGet, "/api/tickets/status", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing qr_code status = %d", rec.Code)
	}
}

func TestQueueView(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	base := time.Now().UTC()
	seedWaiting(t, service, mem, "T1", "A", base)

	rec := do(t, handler, http.MethodGet, "/api/queue?room_id=A", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view struct {
		Current      *models.Ticket  `json:"current"`
		Waiting      []models.Ticket `json:"waiting"`
		WaitingCount int             `json:"waiting_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Current != nil || len(view.Waiting) != 1 || view.WaitingCount != 1 {
		t.Fatalf("view %+v", view)
	}

	if rec := do(t, handler, http.MethodGet, "/api/queue?room_id=Z", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown room status = %d", rec.Code)
	}
}

func TestCallNext(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	seedWaiting(t, service, mem, "T1", "A", time.Now().UTC())

	rec := do(t, handler, http.MethodPost, "/api/queue/actions/call-next", `{"room_id":"A"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Ticket models.Ticket `json:"Ticket"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Ticket.Status != models.StatusServing {
		t.Fatalf("ticket %+v", result.Ticket)
	}

	// Queue is now empty.
	rec = do(t, handler, http.MethodPost, "/api/queue/actions/call-next", `{"room_id":"A"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("empty queue status = %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "queue_empty" {
		t.Fatalf("error code = %s", got)
	}
}

func TestTicketActions(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	seedWaiting(t, service, mem, "T1", "A", time.Now().UTC())

	steps := []struct {
		target string
		body   string
	}{
		{"/api/tickets/T1/actions/call", `{"room_id":"A"}`},
		{"/api/tickets/T1/actions/repeat", ""},
		{"/api/tickets/T1/actions/pause", ""},
		{"/api/tickets/T1/actions/resume", ""},
		{"/api/tickets/T1/actions/complete", ""},
	}
	for _, step := range steps {
		rec := do(t, handler, http.MethodPost, step.target, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body %s", step.target, rec.Code, rec.Body.String())
		}
	}

	stored, _ := mem.FilterTickets(context.Background(), map[string]any{"qr_code": "T1"})
	if stored[0].Status != models.StatusCompleted {
		t.Fatalf("final status = %s", stored[0].Status)
	}
}

func TestTicketActionErrors(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	seedWaiting(t, service, mem, "T1", "A", time.Now().UTC())

	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"complete before call", "/api/tickets/T1/actions/complete", "", http.StatusConflict, "invalid_transition"},
		{"unknown ticket", "/api/tickets/ghost/actions/pause", "", http.StatusNotFound, "not_found"},
		{"unknown action", "/api/tickets/T1/actions/shout", "", http.StatusNotFound, "not_found"},
		{"call without room", "/api/tickets/T1/actions/call", `{}`, http.StatusBadRequest, "invalid_request"},
		{"transfer without destination", "/api/tickets/T1/actions/transfer", `{}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantErr {
				t.Fatalf("error code = %s, want %s", got, tt.wantErr)
			}
		})
	}
}

func TestTransferViaAPI(t *testing.T) {
	handler, service, mem := newTestHandler(t)
	seedWaiting(t, service, mem, "T1", "A", time.Now().UTC())

	if rec := do(t, handler, http.MethodPost, "/api/tickets/T1/actions/call", `{"room_id":"A"}`); rec.Code != http.StatusOK {
		t.Fatalf("call: %d", rec.Code)
	}
	rec := do(t, handler, http.MethodPost, "/api/tickets/T1/actions/transfer", `{"destination_room":"H1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: %d, body %s", rec.Code, rec.Body.String())
	}

	stored, _ := mem.FilterTickets(context.Background(), map[string]any{"qr_code": "T1"})
	ticket := stored[0]
	if ticket.RoomID != "H1" || ticket.Status != models.StatusWaiting {
		t.Fatalf("ticket after transfer %+v", ticket)
	}
	if len(ticket.RoomHistory) != 2 {
		t.Fatalf("history length = %d", len(ticket.RoomHistory))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	if rec := do(t, handler, http.MethodGet, "/api/tickets", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodDelete, "/api/queue?room_id=A", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
