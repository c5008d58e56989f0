package repos

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"pickhub/internal/domain"

	"github.com/jmoiron/sqlx"
)

type RequestRepo struct{ DB *sqlx.DB }

func NewRequestRepo(db *sqlx.DB) *RequestRepo { return &RequestRepo{DB: db} }

// Stored timestamps keep nanosecond precision so string comparison in SQL
// orders them correctly even within one second.
func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// Create inserts the request and its items in one transaction. A name clash
// surfaces as DUPLICATE_NAME rather than a raw constraint error.
func (r *RequestRepo) Create(req *domain.PickRequest) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	req.CreatedAt = now()
	req.LastActivityAt = req.CreatedAt
	_, err = tx.Exec(`
		INSERT INTO pick_requests(id,name,status,priority,created_by,picked_by,notes,created_at,submitted_at,last_activity_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		req.ID, req.Name, req.Status, req.Priority, req.CreatedBy, req.PickedBy,
		req.Notes, req.CreatedAt, req.SubmittedAt, req.LastActivityAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.ErrDuplicateName(req.Name)
		}
		return err
	}
	for pos, it := range req.Items {
		if _, err = tx.Exec(`
			INSERT INTO pick_items(request_id,upc,product_name,requested_qty,picked_qty,position)
			VALUES(?,?,?,?,?,?)`,
			req.ID, it.UPC, it.ProductName, it.RequestedQty, it.PickedQty, pos); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByName loads a request with its items in insertion order.
func (r *RequestRepo) GetByName(name string) (*domain.PickRequest, error) {
	var req domain.PickRequest
	err := r.DB.Get(&req, `
		SELECT id,name,status,priority,created_by,picked_by,notes,created_at,submitted_at,last_activity_at
		FROM pick_requests WHERE name=?`, strings.ToLower(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("pick request")
	}
	if err != nil {
		return nil, err
	}
	if err := r.DB.Select(&req.Items, `
		SELECT request_id,upc,product_name,requested_qty,picked_qty
		FROM pick_items WHERE request_id=? ORDER BY position`, req.ID); err != nil {
		return nil, err
	}
	return &req, nil
}

type ListFilter struct {
	Status   domain.RequestStatus
	PickedBy string
	Active   bool // only pending / in_progress / paused
}

// List returns requests ordered by priority (urgent first) then age, the
// order pickers work the backlog in.
func (r *RequestRepo) List(f ListFilter) ([]domain.PickRequest, error) {
	q := `
		SELECT id,name,status,priority,created_by,picked_by,notes,created_at,submitted_at,last_activity_at
		FROM pick_requests WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, f.Status)
	}
	if f.PickedBy != "" {
		q += ` AND picked_by=?`
		args = append(args, f.PickedBy)
	}
	if f.Active {
		q += ` AND status IN ('pending','in_progress','paused')`
	}
	q += `
		ORDER BY CASE priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3
		END, created_at`

	var out []domain.PickRequest
	if err := r.DB.Select(&out, q, args...); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.DB.Select(&out[i].Items, `
			SELECT request_id,upc,product_name,requested_qty,picked_qty
			FROM pick_items WHERE request_id=? ORDER BY position`, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save writes back the mutable header fields; items change via UpdateItemQty.
func (r *RequestRepo) Save(req *domain.PickRequest) error {
	req.LastActivityAt = now()
	_, err := r.DB.Exec(`
		UPDATE pick_requests
		SET status=?,priority=?,picked_by=?,notes=?,submitted_at=?,last_activity_at=?
		WHERE id=?`,
		req.Status, req.Priority, req.PickedBy, req.Notes, req.SubmittedAt, req.LastActivityAt, req.ID)
	return err
}

func (r *RequestRepo) UpdateItemQty(requestID, upc string, pickedQty int) error {
	res, err := r.DB.Exec(`
		UPDATE pick_items SET picked_qty=? WHERE request_id=? AND upc=?`,
		pickedQty, requestID, upc)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("item")
	}
	_, err = r.DB.Exec(`UPDATE pick_requests SET last_activity_at=? WHERE id=?`, now(), requestID)
	return err
}

func (r *RequestRepo) Delete(name string) error {
	res, err := r.DB.Exec(`DELETE FROM pick_requests WHERE name=?`, strings.ToLower(name))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("pick request")
	}
	return nil
}

// FindStale returns locked requests idle past the cutoff; the cleanup loop
// releases their locks.
func (r *RequestRepo) FindStale(cutoff time.Time) ([]domain.PickRequest, error) {
	var out []domain.PickRequest
	err := r.DB.Select(&out, `
		SELECT id,name,status,priority,created_by,picked_by,notes,created_at,submitted_at,last_activity_at
		FROM pick_requests
		WHERE picked_by != '' AND status IN ('in_progress','paused') AND last_activity_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	return out, err
}

// DeleteOld removes terminal requests last touched before the cutoff.
func (r *RequestRepo) DeleteOld(cutoff time.Time) (int64, error) {
	res, err := r.DB.Exec(`
		DELETE FROM pick_requests
		WHERE status IN ('completed','cancelled') AND last_activity_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
