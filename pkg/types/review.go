package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Review is a single customer rating attached to a product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reviews is the append-only review list stored with the product.
type Reviews []Review

// ByUser reports whether userID already reviewed the product.
func (r Reviews) ByUser(userID uuid.UUID) bool {
	for _, review := range r {
		if review.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the list.
func (r Reviews) Clone() Reviews {
	out := make(Reviews, len(r))
	copy(out, r)
	return out
}

// AverageRating recomputes the mean over the full list. An empty list rates 0.
func (r Reviews) AverageRating() float64 {
	if len(r) == 0 {
		return 0
	}
	sum := 0
	for _, review := range r {
		sum += review.Rating
	}
	return float64(sum) / float64(len(r))
}

// Value marshals the reviews into JSON for Postgres.
func (r Reviews) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the review list.
func (r *Reviews) Scan(value any) error {
	if value == nil {
		*r = Reviews{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("reviews: unsupported scan type %T", value)
	}

	result := Reviews{}
	if len(raw) == 0 {
		*r = result
		return nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*r = result
	return nil
}
