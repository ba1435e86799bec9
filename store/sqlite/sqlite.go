/*
Package sqlite provides a SQLite-backed implementation of school.Repository.

PURPOSE:
  Persists onboarded schools and their section allocations. The grade-level
  roll-up is NOT stored: it is recomputed from the section rows on every
  load, so the two can never disagree.

KEY TABLES:
  schools:             One row per school (name, expected students)
  section_allocations: One row per SectionAllocation, ordered by position

ORDERING:
  Allocation rows carry the position they had in the panel's list. Loading
  orders by position, which preserves insertion order across a round trip.

ATOMIC SAVES:
  Save replaces the school row and all of its allocation rows inside one
  database transaction. Either the whole school is written or nothing is.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/schools.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := school.NewService(store)

SEE ALSO:
  - school/school.go: Repository interface
  - school/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/school-onboarding/allocation"
	"github.com/warp/school-onboarding/school"
)

// Store implements school.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		total_students_expected INTEGER NOT NULL CHECK (total_students_expected >= 0),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schools_created_at
		ON schools(created_at);

	CREATE TABLE IF NOT EXISTS section_allocations (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		grade INTEGER NOT NULL CHECK (grade BETWEEN 1 AND 10),
		section TEXT NOT NULL,
		students INTEGER NOT NULL CHECK (students > 0),
		course TEXT NOT NULL DEFAULT ''
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_section_allocations_school_position
		ON section_allocations(school_id, position);
	CREATE INDEX IF NOT EXISTS idx_section_allocations_school_grade
		ON section_allocations(school_id, grade);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCHOOL REPOSITORY (school.Repository interface)
// =============================================================================

// Save writes the school and replaces its allocation rows atomically.
func (s *Store) Save(ctx context.Context, sch school.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schools (id, name, total_students_expected, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_students_expected = excluded.total_students_expected
	`, sch.ID, sch.Name, sch.TotalStudentsExpected, sch.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save school: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM section_allocations WHERE school_id = ?`, sch.ID); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO section_allocations (id, school_id, position, grade, section, students, course)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare allocation insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range sch.Sections {
		if _, err := stmt.ExecContext(ctx, a.ID, sch.ID, i, int(a.Grade), string(a.Section), a.Students, a.Course); err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %q", allocation.ErrDuplicateAllocation, a.ID)
			}
			return fmt.Errorf("failed to save allocation %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// Get loads a school with its allocations.
func (s *Store) Get(ctx context.Context, id string) (*school.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, total_students_expected, created_at FROM schools WHERE id = ?
	`, id)
	sch, err := scanSchool(row)
	if err == sql.ErrNoRows {
		return nil, school.ErrSchoolNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadAllocations(ctx, &sch); err != nil {
		return nil, err
	}
	return &sch, nil
}

// List returns every school ordered by creation time.
func (s *Store) List(ctx context.Context) ([]school.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, total_students_expected, created_at
		FROM schools ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}

	var result []school.School
	for rows.Next() {
		sch, err := scanSchool(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, sch)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Allocations are loaded after the school cursor is closed; the store
	// runs on a single connection.
	for i := range result {
		if err := s.loadAllocations(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Delete removes a school; its allocations cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM schools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete school: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return school.ErrSchoolNotFound
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"section_allocations", "schools"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanSchool(row scanner) (school.School, error) {
	var (
		sch       school.School
		createdAt string
	)
	if err := row.Scan(&sch.ID, &sch.Name, &sch.TotalStudentsExpected, &createdAt); err != nil {
		return school.School{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return school.School{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	sch.CreatedAt = t
	return sch, nil
}

func (s *Store) loadAllocations(ctx context.Context, sch *school.School) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, grade, section, students, course
		FROM section_allocations WHERE school_id = ? ORDER BY position
	`, sch.ID)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	defer rows.Close()

	sch.Sections = []allocation.SectionAllocation{}
	for rows.Next() {
		var (
			a       allocation.SectionAllocation
			grade   int
			section string
		)
		if err := rows.Scan(&a.ID, &grade, &section, &a.Students, &a.Course); err != nil {
			return err
		}
		a.Grade = allocation.Grade(grade)
		a.Section = allocation.Section(section)
		sch.Sections = append(sch.Sections, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	sch.Grades = allocation.Aggregate(sch.Sections)
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
