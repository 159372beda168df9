package store

import (
	"database/sql"
	"time"
)

// Reading is one sampled distance measurement within a session.
type Reading struct {
	ID         int64
	SessionID  string
	Frame      int64
	MarkerID   int
	Distance   float64
	Confidence float64
	RecordedAt time.Time
}

// ReadingRepository provides operations on sampled readings.
type ReadingRepository struct {
	db *sql.DB
}

// Readings returns the reading repository for this store.
func (s *Store) Readings() *ReadingRepository {
	return &ReadingRepository{db: s.db}
}

// Create inserts a new reading into the database.
func (r *ReadingRepository) Create(reading *Reading) error {
	reading.RecordedAt = time.Now()

	res, err := r.db.Exec(
		`INSERT INTO readings (session_id, frame, marker_id, distance, confidence, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reading.SessionID, reading.Frame, reading.MarkerID, reading.Distance,
		reading.Confidence, reading.RecordedAt,
	)
	if err != nil {
		return err
	}

	reading.ID, err = res.LastInsertId()
	return err
}

// ListBySession returns a session's readings in frame order.
func (r *ReadingRepository) ListBySession(sessionID string) ([]*Reading, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, marker_id, distance, confidence, recorded_at
		 FROM readings WHERE session_id = ? ORDER BY frame`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		reading := &Reading{}
		if err := rows.Scan(&reading.ID, &reading.SessionID, &reading.Frame,
			&reading.MarkerID, &reading.Distance, &reading.Confidence, &reading.RecordedAt); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

// LatestBySession returns the most recent reading of a session, or
// ErrNotFound if the session has none.
func (r *ReadingRepository) LatestBySession(sessionID string) (*Reading, error) {
	reading := &Reading{}

	err := r.db.QueryRow(
		`SELECT id, session_id, frame, marker_id, distance, confidence, recorded_at
		 FROM readings WHERE session_id = ? ORDER BY frame DESC LIMIT 1`,
		sessionID,
	).Scan(&reading.ID, &reading.SessionID, &reading.Frame,
		&reading.MarkerID, &reading.Distance, &reading.Confidence, &reading.RecordedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return reading, nil
}
