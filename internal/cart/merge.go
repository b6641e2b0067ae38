package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Merge folds a client-held guest cart into the user's stored cart.
//
// Guest lines are applied in the order given using AddItem semantics, so quantities
// add up and the combined amount is checked against stock. A line whose product is
// gone, whose quantity is not a positive integer or whose combined quantity exceeds
// stock is skipped and reported; the remaining lines still merge. The result is
// saved once.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, guest []types.GuestLine) (*MergeResult, error) {
	lines, err := s.repo.LoadCart(ctx, userID)
	if err != nil {
		s.metrics.ObserveOperation("merge", outcomeOf(err))
		return nil, err
	}

	merged, warnings, err := s.reconcile(ctx, lines, guest)
	if err != nil {
		s.metrics.ObserveOperation("merge", outcomeOf(err))
		return nil, err
	}
	if len(guest) > 0 {
		if err := s.repo.SaveCart(ctx, userID, merged); err != nil {
			s.metrics.ObserveOperation("merge", outcomeOf(err))
			return nil, err
		}
	}
	s.metrics.ObserveOperation("merge", metrics.OutcomeSuccess)
	for _, warning := range warnings {
		s.metrics.IncMergeWarning(warning.Reason)
	}

	if len(warnings) > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":       userID.String(),
			"skipped_lines": len(warnings),
			"merged_lines":  len(guest) - len(warnings),
			"first_reason":  warnings[0].Reason,
		})
		s.logg.Warn(logCtx, "guest cart merged with skipped lines")
	}

	dto, err := s.populate(ctx, merged)
	if err != nil {
		return nil, err
	}
	return &MergeResult{Cart: dto, Warnings: warnings}, nil
}

// Quote prices a guest cart without persisting anything. Lines are validated with the
// same rules as Merge into an empty cart, so the client sees what a login would keep.
func (s *service) Quote(ctx context.Context, guest []types.GuestLine) (*MergeResult, error) {
	merged, warnings, err := s.reconcile(ctx, types.CartLines{}, guest)
	if err != nil {
		return nil, err
	}
	dto, err := s.populate(ctx, merged)
	if err != nil {
		return nil, err
	}
	return &MergeResult{Cart: dto, Warnings: warnings}, nil
}

func (s *service) reconcile(ctx context.Context, lines types.CartLines, guest []types.GuestLine) (types.CartLines, []MergeWarning, error) {
	current := lines.Clone()
	warnings := make([]MergeWarning, 0)
	for _, line := range guest {
		next, err := s.addGuestLine(ctx, current, line)
		if err == nil {
			current = next
			continue
		}
		reason, skippable := skipReason(err)
		if !skippable {
			return nil, nil, err
		}
		warnings = append(warnings, MergeWarning{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Reason:    reason,
			Message:   messageOf(err),
		})
	}
	return current, warnings, nil
}

func (s *service) addGuestLine(ctx context.Context, current types.CartLines, line types.GuestLine) (types.CartLines, error) {
	quantity, err := checkout.ParseQuantity(line.Quantity)
	if err != nil {
		return nil, err
	}
	return s.engine.AddItem(ctx, current, line.ProductID, quantity)
}

// skipReason classifies per-line failures. Anything else, such as a database outage,
// aborts the whole merge.
func skipReason(err error) (string, bool) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "", false
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		return ReasonProductNotFound, true
	case pkgerrors.CodeInsufficientStock:
		return ReasonInsufficientStock, true
	case pkgerrors.CodeInvalidQuantity:
		return ReasonInvalidQuantity, true
	case pkgerrors.CodeValidation:
		return ReasonInvalidProduct, true
	default:
		return "", false
	}
}

func messageOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
