package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studiodesk/internal/synclog"
)

// Append writes one sync-log entry. Satisfies synclog.Sink.
func (db *DB) Append(ctx context.Context, e synclog.Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_log (provider, direction, status, entity_type, local_id, message, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Provider, e.Direction, e.Status, e.EntityType, e.LocalID, e.Message, e.ErrorMessage, created,
	)
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

// DeleteOldSyncEntries removes sync-log rows older than the retention window
// and returns how many went.
func (db *DB) DeleteOldSyncEntries(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx, "DELETE FROM sync_log WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sync entries: %w", err)
	}
	return res.RowsAffected()
}

// ExportTableNames lists the tables included in the monthly report.
var ExportTableNames = []string{
	"clients",
	"staff",
	"services",
	"bookings",
	"business_hours",
	"closures",
	"sync_log",
}

// GetTableNames returns the tables to export.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return ExportTableNames, nil
}

// GetTableData returns all rows from a table as maps keyed by column name.
func (db *DB) GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error) {
	// Only whitelisted names reach the query string
	validTable := false
	for _, t := range ExportTableNames {
		if t == tableName {
			validTable = true
			break
		}
	}
	if !validTable {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}

	var columns []string
	for rows.Next() {
		var cid int
		var name, typeName string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &typeName, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return nil, nil, err
		}
		columns = append(columns, name)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s has no columns", tableName)
	}

	dataRows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer dataRows.Close()

	var result []map[string]interface{}
	for dataRows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := dataRows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result = append(result, row)
	}
	return result, columns, dataRows.Err()
}
