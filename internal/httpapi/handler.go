package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/eieicore/queue-v1/internal/kiosk"
	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/queue"
	"github.com/eieicore/queue-v1/internal/store"
)

type Handler struct {
	service *queue.Service
	issuer  *kiosk.Issuer
}

func NewHandler(service *queue.Service, issuer *kiosk.Issuer) *Handler {
	return &Handler{service: service, issuer: issuer}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleIssueTicket)
	mux.HandleFunc("/api/tickets/status", h.handleTicketStatus)
	mux.HandleFunc("/api/tickets/", h.handleTicketAction)
	mux.HandleFunc("/api/rooms", h.handleRooms)
	mux.HandleFunc("/api/queue", h.handleQueueView)
	mux.HandleFunc("/api/queue/actions/call-next", h.handleCallNext)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type issueTicketRequest struct {
	PatientType string `json:"patient_type"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	RoomID      string `json:"room_id"`
}

func (h *Handler) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req issueTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.PatientType = strings.TrimSpace(req.PatientType)
	req.RoomID = strings.TrimSpace(req.RoomID)
	if req.PatientType == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "patient_type is required")
		return
	}

	ticket, err := h.issuer.Issue(r.Context(), kiosk.IssueInput{
		PatientType: req.PatientType,
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		RoomCode:    req.RoomID,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type ticketStatusResponse struct {
	Ticket       models.Ticket `json:"ticket"`
	QueuesAhead  int           `json:"queues_ahead"`
	WaitingCount int           `json:"waiting_count"`
}

func (h *Handler) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qrCode := strings.TrimSpace(r.URL.Query().Get("qr_code"))
	if qrCode == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "qr_code is required")
		return
	}
	snap := h.service.Snapshot()
	ticket, ok := snap.Ticket(qrCode)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no ticket for this code")
		return
	}
	ahead := 0
	for i, waiting := range snap.WaitingList(ticket.RoomID) {
		if waiting.QRCode == qrCode {
			ahead = i
			break
		}
	}
	writeJSON(w, http.StatusOK, ticketStatusResponse{
		Ticket:       ticket,
		QueuesAhead:  ahead,
		WaitingCount: snap.WaitingCount(ticket.RoomID),
	})
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Snapshot().Rooms)
}

type queueViewResponse struct {
	Current      *models.Ticket  `json:"current"`
	Waiting      []models.Ticket `json:"waiting"`
	Paused       []models.Ticket `json:"paused"`
	WaitingCount int             `json:"waiting_count"`
}

func (h *Handler) handleQueueView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "room_id is required")
		return
	}
	snap := h.service.Snapshot()
	if _, ok := snap.Room(roomID); !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown room")
		return
	}
	view := queueViewResponse{
		Waiting:      snap.WaitingList(roomID),
		Paused:       snap.PausedList(roomID),
		WaitingCount: snap.WaitingCount(roomID),
	}
	if current, ok := snap.CurrentServing(roomID); ok {
		view.Current = &current
	}
	writeJSON(w, http.StatusOK, view)
}

type callNextRequest struct {
	RoomID string `json:"room_id"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req callNextRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "room_id is required")
		return
	}

	result, err := h.service.CallNext(r.Context(), stationFrom(r), req.RoomID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ticketActionRequest struct {
	RoomID          string `json:"room_id"`
	DestinationRoom string `json:"destination_room"`
}

// handleTicketAction serves POST /api/tickets/{qr_code}/actions/{action}.
func (h *Handler) handleTicketAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "actions" || parts[0] == "" || parts[2] == "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	qrCode, action := parts[0], parts[2]

	var req ticketActionRequest
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
	}

	st := stationFrom(r)
	var (
		result queue.Result
		err    error
	)
	switch action {
	case "call":
		if strings.TrimSpace(req.RoomID) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "room_id is required")
			return
		}
		result, err = h.service.Call(r.Context(), st, qrCode, req.RoomID)
	case "repeat":
		result, err = h.service.RepeatCall(r.Context(), st, qrCode)
	case "pause":
		result, err = h.service.Pause(r.Context(), st, qrCode)
	case "resume":
		result, err = h.service.Resume(r.Context(), st, qrCode)
	case "skip":
		result, err = h.service.Skip(r.Context(), st, qrCode)
	case "complete":
		result, err = h.service.Complete(r.Context(), st, qrCode)
	case "transfer":
		if strings.TrimSpace(req.DestinationRoom) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "destination_room is required")
			return
		}
		result, err = h.service.Transfer(r.Context(), st, qrCode, req.DestinationRoom)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown action")
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func stationFrom(r *http.Request) queue.Station {
	return queue.Station{
		Operator: strings.TrimSpace(r.Header.Get("X-Operator")),
		Language: strings.TrimSpace(r.Header.Get("X-Language")),
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "ticket state does not allow this action"
	case errors.Is(err, queue.ErrQueueEmpty):
		return http.StatusConflict, "queue_empty", "no waiting tickets in this room"
	case errors.Is(err, queue.ErrTicketNotFound), errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "not_found", "ticket not found"
	case errors.Is(err, queue.ErrRoomNotFound), errors.Is(err, kiosk.ErrRoomNotFound):
		return http.StatusNotFound, "not_found", "room not found"
	case errors.Is(err, kiosk.ErrUnknownPatientType), errors.Is(err, kiosk.ErrRoomRequired), errors.Is(err, kiosk.ErrNoHistoryRoom):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, store.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "record store is throttling requests"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable", "record store is unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}
