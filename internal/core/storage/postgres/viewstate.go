package postgres

import (
	"context"
	"fmt"

	"github.com/aevon-lab/storefront-insights/internal/core/storage"
)

// LoadViewStates implements storage.ViewStateStore.
func (a *Adapter) LoadViewStates(ctx context.Context) ([]storage.ViewState, error) {
	rows, err := a.db.QueryContext(ctx, queryLoadViewStates)
	if err != nil {
		return nil, fmt.Errorf("failed to query view states: %w", err)
	}
	defer rows.Close()

	var out []storage.ViewState
	for rows.Next() {
		var st storage.ViewState
		if err := rows.Scan(&st.View, &st.AsOf, &st.Version, &st.Fingerprint, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan view state row: %w", err)
		}
		st.AsOf, st.UpdatedAt = st.AsOf.UTC(), st.UpdatedAt.UTC()
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view states: %w", err)
	}
	return out, nil
}

// SaveViewState implements storage.ViewStateStore. An older version never
// overwrites a newer one.
func (a *Adapter) SaveViewState(ctx context.Context, st storage.ViewState) error {
	if _, err := a.stmtUpsertViewState.ExecContext(ctx,
		st.View,
		st.AsOf,
		st.Version,
		st.Fingerprint,
		st.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to save view state %s: %w", st.View, err)
	}
	return nil
}
