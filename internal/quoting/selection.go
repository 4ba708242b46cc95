package quoting

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/store"
)

// selectionChange is the set of selection rows to delete and insert for one call.
type selectionChange struct {
	remove []int64
	add    []int64
}

// nextSelection decides how selecting optionID changes an entry, given the options of
// the same group that are currently selected.
//
// single_choice: optionID ends up the only selection in the group.
// multi_choice: optionID is toggled, other options are untouched.
func nextSelection(mode domain.SelectionMode, selectedInGroup []int64, optionID int64) (selectionChange, error) {
	var change selectionChange

	switch mode {
	case domain.SelectionSingle:
		for _, id := range selectedInGroup {
			if id != optionID {
				change.remove = append(change.remove, id)
			}
		}
		if !slices.Contains(selectedInGroup, optionID) {
			change.add = []int64{optionID}
		}
	case domain.SelectionMulti:
		if slices.Contains(selectedInGroup, optionID) {
			change.remove = []int64{optionID}
		} else {
			change.add = []int64{optionID}
		}
	default:
		return selectionChange{}, fmt.Errorf("%w: unsupported selection type %q", domain.ErrValidation, mode)
	}

	return change, nil
}

// SetVariationOption applies a selection of optionID to the entry and returns the
// re-materialized entry.
func (s *Service) SetVariationOption(ctx context.Context, entryID, optionID int64) (MaterializedEntry, error) {
	log := s.logger.With(zap.Int64("entry_id", entryID), zap.Int64("option_id", optionID))

	var view MaterializedEntry
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		entry, err := tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		option, err := tx.VariationOption(ctx, optionID)
		if err != nil {
			return err
		}
		group, err := tx.VariationGroup(ctx, option.GroupID)
		if err != nil {
			return err
		}
		if group.ProductID != entry.ProductID {
			return fmt.Errorf("%w: option %d does not belong to product %d", domain.ErrValidation, optionID, entry.ProductID)
		}

		selected, err := tx.SelectedOptionsInGroup(ctx, entryID, group.ID)
		if err != nil {
			return err
		}

		change, err := nextSelection(group.Mode, selected, optionID)
		if err != nil {
			return err
		}
		for _, id := range change.remove {
			if err := tx.RemoveSelection(ctx, entryID, id); err != nil {
				return err
			}
		}
		for _, id := range change.add {
			if err := tx.AddSelection(ctx, entryID, id); err != nil {
				return err
			}
		}
		log.Info("variation selection updated",
			zap.String("selection_type", string(group.Mode)),
			zap.Int64s("removed", change.remove),
			zap.Int64s("added", change.add))

		entry, err = tx.Entry(ctx, entryID)
		if err != nil {
			return err
		}
		view, err = materialize(ctx, tx, entry)
		return err
	})
	if err != nil {
		log.Error("set variation option failed, rolled back", zap.Error(err))
		return MaterializedEntry{}, err
	}
	return view, nil
}
