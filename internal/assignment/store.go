package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no assignment matches the lookup.
	ErrNotFound = errors.New("assignment not found")
	// ErrInvalidRating rejects ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrReviewExists rejects a second review on the same assignment.
	ErrReviewExists = errors.New("assignment already has a review")
)

// Store provides database operations for assignments and their reviews.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an assignment store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Assign creates or updates the (contact, object) assignment row with the
// given fields and returns it.
func (s *Store) Assign(ctx context.Context, contactID, objectID string, in AssignInput) (*Assignment, error) {
	a := &Assignment{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO workingon (contact_id, object_id, is_paid, from_date, to_date)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (contact_id, object_id)
		 DO UPDATE SET is_paid = EXCLUDED.is_paid,
		               from_date = EXCLUDED.from_date,
		               to_date = EXCLUDED.to_date
		 RETURNING id, contact_id, object_id, is_paid, from_date, to_date, created_at`,
		contactID, objectID, in.IsPaid, in.From, in.To,
	).Scan(&a.ID, &a.ContactID, &a.ObjectID, &a.IsPaid, &a.From, &a.To, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("assigning contact to object: %w", err)
	}
	return a, nil
}

// Get retrieves the assignment row for one (contact, object) pair.
func (s *Store) Get(ctx context.Context, contactID, objectID string) (*Assignment, error) {
	a := &Assignment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, contact_id, object_id, is_paid, from_date, to_date, created_at
		 FROM workingon WHERE contact_id = $1 AND object_id = $2`,
		contactID, objectID,
	).Scan(&a.ID, &a.ContactID, &a.ObjectID, &a.IsPaid, &a.From, &a.To, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return a, nil
}

// Unassign removes the (contact, object) assignment; its review cascades.
func (s *Store) Unassign(ctx context.Context, contactID, objectID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM workingon WHERE contact_id = $1 AND object_id = $2`,
		contactID, objectID)
	if err != nil {
		return fmt.Errorf("unassigning contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByObject returns the workers of one job site, with contact names and
// reviews joined in.
func (s *Store) ListByObject(ctx context.Context, objectID string) ([]*Assignment, error) {
	return s.list(ctx,
		`SELECT w.id, w.contact_id, w.object_id, w.is_paid, w.from_date, w.to_date, w.created_at,
		        c.name, o.name,
		        r.id, r.rating, r.comment, r.created_at
		 FROM workingon w
		 JOIN contacts c ON c.id = w.contact_id
		 JOIN objects o ON o.id = w.object_id
		 LEFT JOIN reviews r ON r.assignment_id = w.id
		 WHERE w.object_id = $1
		 ORDER BY c.name ASC, w.id ASC`,
		objectID,
	)
}

// ListByContact returns a contact's job-site history, newest first.
func (s *Store) ListByContact(ctx context.Context, contactID string) ([]*Assignment, error) {
	return s.list(ctx,
		`SELECT w.id, w.contact_id, w.object_id, w.is_paid, w.from_date, w.to_date, w.created_at,
		        c.name, o.name,
		        r.id, r.rating, r.comment, r.created_at
		 FROM workingon w
		 JOIN contacts c ON c.id = w.contact_id
		 JOIN objects o ON o.id = w.object_id
		 LEFT JOIN reviews r ON r.assignment_id = w.id
		 WHERE w.contact_id = $1
		 ORDER BY w.created_at DESC, w.id DESC`,
		contactID,
	)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Assignment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		a := &Assignment{}
		var reviewID *string
		var rating *int
		var comment *string
		var reviewCreated *time.Time
		if err := rows.Scan(
			&a.ID, &a.ContactID, &a.ObjectID, &a.IsPaid, &a.From, &a.To, &a.CreatedAt,
			&a.ContactName, &a.ObjectName,
			&reviewID, &rating, &comment, &reviewCreated,
		); err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		if reviewID != nil {
			a.Review = &Review{
				ID:           *reviewID,
				AssignmentID: a.ID,
				Rating:       *rating,
				CreatedAt:    *reviewCreated,
			}
			if comment != nil {
				a.Review.Comment = *comment
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignment rows: %w", err)
	}
	return out, nil
}

// AddReview attaches the single review an assignment can carry. A second
// review for the same assignment is refused.
func (s *Store) AddReview(ctx context.Context, assignmentID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE assignment_id = $1)`, assignmentID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking existing review: %w", err)
	}
	if exists {
		return nil, ErrReviewExists
	}

	r := &Review{}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reviews (assignment_id, rating, comment)
		 VALUES ($1, $2, $3)
		 RETURNING id, assignment_id, rating, comment, created_at`,
		assignmentID, rating, comment,
	).Scan(&r.ID, &r.AssignmentID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("adding review: %w", err)
	}
	return r, nil
}

// DeleteReview removes the review of one assignment.
func (s *Store) DeleteReview(ctx context.Context, assignmentID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reviews WHERE assignment_id = $1`, assignmentID)
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
