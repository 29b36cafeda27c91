package scanstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lasersim/internal/lasersim/scan"
	"github.com/banshee-data/lasersim/internal/monitoring"
	"github.com/banshee-data/lasersim/internal/timeutil"
)

// ErrNotFound is returned by Get for an unknown scan ID.
var ErrNotFound = errors.New("scanstore: scan not found")

// Record is one stored scan.
type Record struct {
	ScanID    string      `json:"scan_id"`
	CreatedAt int64       `json:"created_at"` // unix nanoseconds
	Scan      scan.Result `json:"scan"`
}

// Store reads and writes the laser_scans table.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the SQLite database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open scan store: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Opsf("scan store ready at %s", path)
	return &Store{db: db, clock: timeutil.RealClock{}}, nil
}

// dsn applies the connection pragmas to every pooled connection.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// SetClock replaces the clock used to stamp CreatedAt.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion() (uint, error) {
	v, dirty, err := schemaVersion(s.db)
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("scanstore: schema version %d is dirty", v)
	}
	return v, nil
}

// Insert stores res under a new UUID and returns the ID.
func (s *Store) Insert(ctx context.Context, res *scan.Result) (string, error) {
	if res == nil {
		return "", errors.New("scanstore: nil scan")
	}
	id := uuid.New().String()
	created := s.clock.Now().UnixNano()

	err := retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO laser_scans (
				scan_id, frame_id, stamp_ns,
				angle_min, angle_max, angle_increment,
				time_increment, scan_time, range_min, range_max,
				beam_count, ranges, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, res.FrameID, res.Timestamp.UnixNano(),
			res.AngleMin, res.AngleMax, res.AngleIncrement,
			res.TimeIncrement, res.ScanTime, res.RangeMin, res.RangeMax,
			len(res.Ranges), encodeRanges(res.Ranges), created,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}
	return id, nil
}

// Consume stores every scan it receives. It satisfies simulator.Consumer.
func (s *Store) Consume(ctx context.Context, res *scan.Result) error {
	id, err := s.Insert(ctx, res)
	if err != nil {
		return err
	}
	monitoring.Tracef("stored scan %s for frame %s", id, res.FrameID)
	return nil
}

const selectColumns = `
	scan_id, frame_id, stamp_ns,
	angle_min, angle_max, angle_increment,
	time_increment, scan_time, range_min, range_max,
	beam_count, ranges, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r       Record
		stampNs int64
		beams   int
		blob    []byte
	)
	err := row.Scan(
		&r.ScanID, &r.Scan.FrameID, &stampNs,
		&r.Scan.AngleMin, &r.Scan.AngleMax, &r.Scan.AngleIncrement,
		&r.Scan.TimeIncrement, &r.Scan.ScanTime, &r.Scan.RangeMin, &r.Scan.RangeMax,
		&beams, &blob, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ranges, err := decodeRanges(blob)
	if err != nil {
		return nil, err
	}
	if len(ranges) != beams {
		return nil, fmt.Errorf("scanstore: scan %s has %d ranges, expected %d", r.ScanID, len(ranges), beams)
	}
	r.Scan.Timestamp = time.Unix(0, stampNs)
	r.Scan.Ranges = ranges
	return &r, nil
}

// Get returns the scan stored under id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM laser_scans WHERE scan_id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return r, nil
}

// ListRecent returns up to limit scans for frameID, newest stamp first.
// An empty frameID matches every frame.
func (s *Store) ListRecent(ctx context.Context, frameID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + selectColumns + ` FROM laser_scans`
	args := []any{}
	if frameID != "" {
		query += ` WHERE frame_id = ?`
		args = append(args, frameID)
	}
	query += ` ORDER BY stamp_ns DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored scans.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM laser_scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

// DeleteBefore removes scans stamped before t and returns how many went.
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := retryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM laser_scans WHERE stamp_ns < ?`, t.UnixNano())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete scans: %w", err)
	}
	return n, nil
}

func encodeRanges(ranges []float64) []byte {
	buf := make([]byte, 8*len(ranges))
	for i, r := range ranges {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(r))
	}
	return buf
}

func decodeRanges(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("scanstore: range blob length %d is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}
