package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/streetwatch/patrol-log/internal/model"
)

// PatrolRepo provides CRUD operations for patrol sessions. The statistics
// and contact_statistics columns are stored as JSON objects; rows are
// scanned into model.Patrol with the JSON decoded into StatMaps. All
// timestamp fields are stored in UTC.
type PatrolRepo struct {
	db *sql.DB
}

// NewPatrolRepo returns a new PatrolRepo bound to the given database.
func NewPatrolRepo(db *sql.DB) *PatrolRepo { return &PatrolRepo{db: db} }

const patrolColumns = `id, user_id, location, team_leader, team_members,
	start_time, end_time, notified_police, police_cad_number, status,
	statistics, contact_statistics, notes, created_at, updated_at`

// scanPatrol reads one row into a model.Patrol. It works for both
// *sql.Row and *sql.Rows via the scanner interface.
func scanPatrol(scan func(dest ...any) error) (*model.Patrol, error) {
	var (
		p           model.Patrol
		endTime     sql.NullTime
		statsJSON   []byte
		contactJSON []byte
	)
	err := scan(
		&p.ID, &p.OwnerID, &p.Location, &p.TeamLeader, &p.TeamMembers,
		&p.StartTime, &endTime, &p.NotifiedPolice, &p.PoliceCadNumber, &p.Status,
		&statsJSON, &contactJSON, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time.UTC()
		p.EndTime = &t
	}
	p.Statistics = model.StatMap{}
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &p.Statistics); err != nil {
			return nil, err
		}
	}
	p.ContactStatistics = model.StatMap{}
	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &p.ContactStatistics); err != nil {
			return nil, err
		}
	}
	p.StartTime = p.StartTime.UTC()
	return &p, nil
}

// Create inserts a new patrol row. The caller supplies the generated uuid
// and the zeroed statistic maps; timestamps default server-side.
func (r *PatrolRepo) Create(ctx context.Context, p *model.Patrol) error {
	statsJSON, err := json.Marshal(p.Statistics)
	if err != nil {
		return err
	}
	contactJSON, err := json.Marshal(p.ContactStatistics)
	if err != nil {
		return err
	}
	const q = `INSERT INTO patrols
		(id, user_id, location, team_leader, team_members, start_time,
		 notified_police, police_cad_number, status, statistics, contact_statistics, notes)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.OwnerID, p.Location, p.TeamLeader, p.TeamMembers, p.StartTime.UTC(),
		p.NotifiedPolice, p.PoliceCadNumber, p.Status, statsJSON, contactJSON, p.Notes)
	return err
}

// GetByIDForOwner loads a single patrol and enforces ownership. It returns
// ErrPatrolNotFound when no patrol has the given id and ErrForbidden when
// the patrol belongs to a different user.
func (r *PatrolRepo) GetByIDForOwner(ctx context.Context, id string, ownerID uint64) (*model.Patrol, error) {
	const q = `SELECT ` + patrolColumns + ` FROM patrols WHERE id = ?`
	p, err := scanPatrol(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPatrolNotFound
		}
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return p, nil
}

// ListByOwner returns all of a user's patrols ordered by start time
// descending (newest first). An empty slice is returned when none exist.
func (r *PatrolRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Patrol, error) {
	const q = `SELECT ` + patrolColumns + ` FROM patrols
		WHERE user_id = ? ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	patrols := make([]model.Patrol, 0)
	for rows.Next() {
		p, err := scanPatrol(rows.Scan)
		if err != nil {
			return nil, err
		}
		patrols = append(patrols, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patrols, nil
}

// ActiveByOwner returns the user's current active patrol, or
// ErrPatrolNotFound when none is active. The newest active patrol wins if
// the table ever holds more than one.
func (r *PatrolRepo) ActiveByOwner(ctx context.Context, ownerID uint64) (*model.Patrol, error) {
	const q = `SELECT ` + patrolColumns + ` FROM patrols
		WHERE user_id = ? AND status = ? ORDER BY start_time DESC LIMIT 1`
	p, err := scanPatrol(r.db.QueryRowContext(ctx, q, ownerID, model.StatusActive).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPatrolNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdateStatistics overwrites the statistics JSON for a patrol. Ownership
// is part of the WHERE clause; callers are expected to have loaded the
// patrol via GetByIDForOwner first, so a zero row count here is not an
// error (MySQL reports zero affected rows for identical values).
func (r *PatrolRepo) UpdateStatistics(ctx context.Context, id string, ownerID uint64, stats model.StatMap) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE patrols SET statistics=? WHERE id=? AND user_id=?",
		payload, id, ownerID)
	return err
}

// UpdateContactStatistics overwrites the contact matrix JSON for a patrol.
func (r *PatrolRepo) UpdateContactStatistics(ctx context.Context, id string, ownerID uint64, stats model.StatMap) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE patrols SET contact_statistics=? WHERE id=? AND user_id=?",
		payload, id, ownerID)
	return err
}

// UpdateNotes overwrites a patrol's notes verbatim.
func (r *PatrolRepo) UpdateNotes(ctx context.Context, id string, ownerID uint64, notes string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE patrols SET notes=? WHERE id=? AND user_id=?",
		notes, id, ownerID)
	return err
}

// UpdateDetails overwrites the editable header fields of a patrol.
func (r *PatrolRepo) UpdateDetails(ctx context.Context, id string, ownerID uint64, d model.PatrolDetails) error {
	const q = `UPDATE patrols SET location=?, team_leader=?, team_members=?,
		start_time=?, police_cad_number=?, notified_police=?
		WHERE id=? AND user_id=?`
	_, err := r.db.ExecContext(ctx, q,
		d.Location, d.TeamLeader, d.TeamMembers, d.StartTime.UTC(),
		d.PoliceCadNumber, d.NotifiedPolice, id, ownerID)
	return err
}

// Close marks a patrol completed and stamps its end time. The guarded
// UPDATE only matches active rows, so the transition is enforced at the
// store even if two close requests race; the loser sees
// ErrPatrolCompleted.
func (r *PatrolRepo) Close(ctx context.Context, id string, ownerID uint64, endTime time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE patrols SET status=?, end_time=? WHERE id=? AND user_id=? AND status=?",
		model.StatusCompleted, endTime.UTC(), id, ownerID, model.StatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPatrolCompleted
	}
	return nil
}
