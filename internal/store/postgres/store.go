// Package postgres implements the ticket store contract on PostgreSQL.
// Room history rides along as a jsonb column so a ticket row carries its
// full visit log.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eieicore/queue-v1/internal/models"
	"github.com/eieicore/queue-v1/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const ticketColumns = `qr_code, queue_number, patient_type, patient_id, patient_name,
	triage_level, status, room_id, priority, estimated_wait, created_at,
	called_at, completed_at, paused_at, room_history`

func (s *Store) ListTickets(ctx context.Context, orderHint string) ([]models.Ticket, error) {
	order := "created_at ASC"
	if strings.TrimPrefix(orderHint, "-") == "created_at" && strings.HasPrefix(orderHint, "-") {
		order = "created_at DESC"
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM tickets ORDER BY %s`, ticketColumns, order))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

var filterFields = map[string]string{
	"qr_code":      "qr_code",
	"queue_number": "queue_number",
	"room_id":      "room_id",
	"status":       "status",
	"patient_type": "patient_type",
	"created_at":   "created_at",
}

func (s *Store) FilterTickets(ctx context.Context, criteria store.Criteria) ([]models.Ticket, error) {
	where := make([]string, 0, len(criteria))
	args := make([]any, 0, len(criteria))
	for key, value := range criteria {
		field, gte := store.Field(key)
		column, ok := filterFields[field]
		if !ok {
			return nil, fmt.Errorf("unsupported filter field %q", key)
		}
		args = append(args, value)
		op := "="
		if gte {
			op = ">="
		}
		where = append(where, fmt.Sprintf("%s %s $%d", column, op, len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *Store) UpdateTicket(ctx context.Context, qrCode string, patch store.TicketPatch) (models.Ticket, error) {
	set := make([]string, 0, 8)
	args := []any{qrCode}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.RoomID != nil {
		add("room_id", *patch.RoomID)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.CalledAt != nil {
		add("called_at", *patch.CalledAt)
	} else if patch.ClearCalledAt {
		set = append(set, "called_at = NULL")
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	} else if patch.ClearCompletedAt {
		set = append(set, "completed_at = NULL")
	}
	if patch.PausedAt != nil {
		add("paused_at", *patch.PausedAt)
	} else if patch.ClearPausedAt {
		set = append(set, "paused_at = NULL")
	}
	if patch.RoomHistory != nil {
		history, err := json.Marshal(patch.RoomHistory)
		if err != nil {
			return models.Ticket{}, err
		}
		add("room_history", history)
	}
	if len(set) == 0 {
		return models.Ticket{}, errors.New("empty ticket patch")
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE qr_code = $1 RETURNING %s`, strings.Join(set, ", "), ticketColumns)
	row := s.pool.QueryRow(ctx, query, args...)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, classify(err)
	}
	return ticket, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	history, err := json.Marshal(ticket.RoomHistory)
	if err != nil {
		return models.Ticket{}, err
	}
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO tickets (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING %s
	`, ticketColumns, ticketColumns),
		ticket.QRCode, ticket.QueueNumber, ticket.PatientType, nullIfEmpty(ticket.PatientID),
		nullIfEmpty(ticket.PatientName), ticket.TriageLevel, ticket.Status, ticket.RoomID,
		ticket.Priority, ticket.EstimatedWait, ticket.CreatedAt,
		ticket.CalledAt, ticket.CompletedAt, ticket.PausedAt, history)
	created, err := scanTicket(row)
	if err != nil {
		return models.Ticket{}, classify(err)
	}
	return created, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT room_code, room_name, room_names, room_type, department, is_active, display_order, staff_assigned
		FROM rooms
		ORDER BY display_order ASC, room_code ASC
	`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		var names []byte
		var roomType, department, staff *string
		if err := rows.Scan(&room.RoomCode, &room.RoomName, &names, &roomType, &department, &room.IsActive, &room.DisplayOrder, &staff); err != nil {
			return nil, err
		}
		if len(names) > 0 {
			if err := json.Unmarshal(names, &room.RoomNames); err != nil {
				return nil, fmt.Errorf("room %s names: %w", room.RoomCode, err)
			}
		}
		room.RoomType = deref(roomType)
		room.Department = deref(department)
		room.StaffAssigned = deref(staff)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (models.Ticket, error) {
	var t models.Ticket
	var patientID, patientName, triage *string
	var history []byte
	err := row.Scan(&t.QRCode, &t.QueueNumber, &t.PatientType, &patientID, &patientName,
		&triage, &t.Status, &t.RoomID, &t.Priority, &t.EstimatedWait, &t.CreatedAt,
		&t.CalledAt, &t.CompletedAt, &t.PausedAt, &history)
	if err != nil {
		return models.Ticket{}, err
	}
	t.PatientID = deref(patientID)
	t.PatientName = deref(patientName)
	t.TriageLevel = deref(triage)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &t.RoomHistory); err != nil {
			return models.Ticket{}, fmt.Errorf("ticket %s history: %w", t.QRCode, err)
		}
	}
	return t, nil
}

func scanTickets(rows pgx.Rows) ([]models.Ticket, error) {
	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// classify tags connection-level failures as transient so the retry
// decorator picks them up.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "53300" || pgErr.Code == "57P03" {
			return fmt.Errorf("%v: %w", pgErr, store.ErrUnavailable)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%v: %w", err, store.ErrUnavailable)
	}
	return err
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
