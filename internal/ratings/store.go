package ratings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"modelkombat/config/storage"
	"modelkombat/internal/apperrors"
)

// Collection is the document collection responses are kept in
const Collection = "responses"

var (
	ErrInvalidRating = fmt.Errorf("%w: rating must be between %d and %d", apperrors.ErrValidationFailure, MinRating, MaxRating)
	ErrNotFound      = errors.New("response not found")
)

// Report is the statistics of a project overall and per model
type Report struct {
	Overall Statistics            `json:"overall"`
	ByModel map[string]Statistics `json:"byModel"`
}

// Store keeps responses in the document store.
// Winner flags are not checked for uniqueness within a round.
type Store struct {
	docs *storage.DocumentStore
	now  func() time.Time
}

// NewStore creates a Store over docs
func NewStore(docs *storage.DocumentStore) *Store {
	return &Store{docs: docs, now: time.Now}
}

// Add stores r, assigning an id and creation time when missing
func (s *Store) Add(ctx context.Context, r Response) (Response, error) {
	if r.Rating != nil && !ValidRating(*r.Rating) {
		return Response{}, ErrInvalidRating
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return Response{}, fmt.Errorf("failed to serialize response: %w", err)
	}
	if err := s.docs.Set(ctx, Collection, r.ID, data); err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}
	return r, nil
}

// Get returns the response with id
func (s *Store) Get(ctx context.Context, id string) (Response, error) {
	data, found, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}
	if !found {
		return Response{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("failed to parse response %s: %w", id, err)
	}
	return r, nil
}

// Rate sets the star rating of a response; nil clears it
func (s *Store) Rate(ctx context.Context, id string, stars *int) error {
	if stars != nil && !ValidRating(*stars) {
		return ErrInvalidRating
	}
	var value any
	if stars != nil {
		value = *stars
	}
	return s.merge(ctx, id, map[string]any{"rating": value})
}

// SetWinner flags or unflags a response as the winner
func (s *Store) SetWinner(ctx context.Context, id string, winner bool) error {
	return s.merge(ctx, id, map[string]any{"isWinner": winner})
}

func (s *Store) merge(ctx context.Context, id string, fields map[string]any) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.docs.SetMerge(ctx, Collection, id, fields); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

// List returns the responses of projectID ordered by round then creation time.
// An empty projectID lists every response.
func (s *Store) List(ctx context.Context, projectID string) ([]Response, error) {
	docs, err := s.docs.List(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistenceFailure, err)
	}

	out := make([]Response, 0, len(docs))
	for _, data := range docs {
		var r Response
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Stats recomputes the statistics of projectID from its responses
func (s *Store) Stats(ctx context.Context, projectID string) (Report, error) {
	responses, err := s.List(ctx, projectID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Overall: Aggregate(responses),
		ByModel: ByModel(responses),
	}, nil
}
