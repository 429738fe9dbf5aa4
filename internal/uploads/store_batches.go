package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const batchColumns = "id, tenant_id, brand_id, category_id, finalized, global_json, events_json, created_at, updated_at"

const itemColumns = "id, batch_id, position, session_id, original_filename, title, status, progress, error_json, overrides_json, overridden_json, size_bytes, created_at, updated_at"

// SaveBatch writes a batch snapshot, replacing any previous state for the
// same id. Items are rewritten wholesale; the snapshot is the source of
// truth.
func (s *Store) SaveBatch(ctx context.Context, snap *BatchSnapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}
	ctx = ensureContext(ctx)

	globalJSON, err := marshalMap(snap.Global)
	if err != nil {
		return fmt.Errorf("marshal global draft: %w", err)
	}
	eventsJSON, err := marshalEvents(snap.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, tenant_id, brand_id, category_id, finalized, global_json, events_json, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 category_id = excluded.category_id,
                 finalized = excluded.finalized,
                 global_json = excluded.global_json,
                 events_json = excluded.events_json,
                 updated_at = excluded.updated_at`,
			snap.ID,
			snap.Context.TenantID,
			snap.Context.BrandID,
			nullableString(snap.Context.CategoryID),
			boolToInt(snap.Finalized),
			globalJSON,
			eventsJSON,
			snap.CreatedAt.UTC().Format(time.RFC3339Nano),
			snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM batch_items WHERE batch_id = ?`, snap.ID); err != nil {
			return fmt.Errorf("clear batch items: %w", err)
		}

		for position, item := range snap.Items {
			errorJSON, err := marshalError(item.Err)
			if err != nil {
				return fmt.Errorf("marshal item error: %w", err)
			}
			overridesJSON, err := marshalMap(item.Overrides)
			if err != nil {
				return fmt.Errorf("marshal overrides: %w", err)
			}
			overriddenJSON, err := marshalBoolMap(item.Overridden)
			if err != nil {
				return fmt.Errorf("marshal overridden flags: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO batch_items (id, batch_id, position, session_id, original_filename, title, status, progress, error_json, overrides_json, overridden_json, size_bytes, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID,
				snap.ID,
				position,
				nullableString(item.SessionID),
				item.OriginalFilename,
				item.Title,
				string(item.Status),
				item.Progress,
				errorJSON,
				overridesJSON,
				overriddenJSON,
				item.SizeBytes,
				item.CreatedAt.UTC().Format(time.RFC3339Nano),
				item.UpdatedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert batch item: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit save: %w", err)
		}
		return nil
	})
}

// GetBatch loads a batch snapshot by id. It returns nil without error when
// the batch does not exist.
func (s *Store) GetBatch(ctx context.Context, id string) (*BatchSnapshot, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	snap, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if err := s.loadItems(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListBatches returns all batches ordered by most recent activity.
func (s *Store) ListBatches(ctx context.Context) ([]*BatchSnapshot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var snaps []*BatchSnapshot
	for rows.Next() {
		snap, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	for _, snap := range snaps {
		if err := s.loadItems(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

// DeleteBatch removes a batch and its items.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	if err := s.execWithRetry(ensureContext(ctx), `DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

func (s *Store) loadItems(ctx context.Context, snap *BatchSnapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM batch_items WHERE batch_id = ? ORDER BY position`, snap.ID)
	if err != nil {
		return fmt.Errorf("query batch items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanBatchItem(rows)
		if err != nil {
			return fmt.Errorf("scan batch item: %w", err)
		}
		snap.Items = append(snap.Items, *item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate batch items: %w", err)
	}
	return nil
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*BatchSnapshot, error) {
	var (
		id         string
		tenantID   string
		brandID    string
		categoryID sql.NullString
		finalized  sql.NullInt64
		globalRaw  sql.NullString
		eventsRaw  sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&tenantID,
		&brandID,
		&categoryID,
		&finalized,
		&globalRaw,
		&eventsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	snap := &BatchSnapshot{
		ID: id,
		Context: Context{
			TenantID:   tenantID,
			BrandID:    brandID,
			CategoryID: categoryID.String,
		},
		Finalized: finalized.Valid && finalized.Int64 != 0,
		Global:    map[string]string{},
	}
	if globalRaw.Valid && globalRaw.String != "" {
		if err := json.Unmarshal([]byte(globalRaw.String), &snap.Global); err != nil {
			return nil, fmt.Errorf("decode global draft: %w", err)
		}
	}
	if eventsRaw.Valid && eventsRaw.String != "" {
		if err := json.Unmarshal([]byte(eventsRaw.String), &snap.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		snap.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		snap.UpdatedAt = updated
	}
	return snap, nil
}

func scanBatchItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               string
		batchID          string
		position         int
		sessionID        sql.NullString
		originalFilename string
		title            string
		statusStr        string
		progress         int
		errorRaw         sql.NullString
		overridesRaw     sql.NullString
		overriddenRaw    sql.NullString
		sizeBytes        int64
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&batchID,
		&position,
		&sessionID,
		&originalFilename,
		&title,
		&statusStr,
		&progress,
		&errorRaw,
		&overridesRaw,
		&overriddenRaw,
		&sizeBytes,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		SessionID:        sessionID.String,
		OriginalFilename: originalFilename,
		Title:            title,
		Status:           Status(statusStr),
		Progress:         progress,
		Overrides:        map[string]string{},
		Overridden:       map[string]bool{},
		SizeBytes:        sizeBytes,
	}
	if errorRaw.Valid && errorRaw.String != "" {
		var uploadErr Error
		if err := json.Unmarshal([]byte(errorRaw.String), &uploadErr); err != nil {
			return nil, fmt.Errorf("decode item error: %w", err)
		}
		item.Err = &uploadErr
	}
	if overridesRaw.Valid && overridesRaw.String != "" {
		if err := json.Unmarshal([]byte(overridesRaw.String), &item.Overrides); err != nil {
			return nil, fmt.Errorf("decode overrides: %w", err)
		}
	}
	if overriddenRaw.Valid && overriddenRaw.String != "" {
		if err := json.Unmarshal([]byte(overriddenRaw.String), &item.Overridden); err != nil {
			return nil, fmt.Errorf("decode overridden flags: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func marshalMap(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalBoolMap(m map[string]bool) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalEvents(events []Warning) (any, error) {
	if len(events) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalError(uploadErr *Error) (any, error) {
	if uploadErr == nil {
		return nil, nil
	}
	data, err := json.Marshal(uploadErr)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
