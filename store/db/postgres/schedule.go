package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/schedkit/store"
)

const scheduleColumns = `id, uid, creator_id, created_ts, updated_ts, row_status,
	title, description, location, start_ts, end_ts, all_day, timezone, source`

// conditions accumulates "column op ?" fragments with their arguments.
type conditions struct {
	parts []string
	args  []any
}

func (c *conditions) add(format string, values ...any) {
	refs := make([]any, len(values))
	for i, v := range values {
		c.args = append(c.args, v)
		refs[i] = placeholder(len(c.args))
	}
	c.parts = append(c.parts, fmt.Sprintf(format, refs...))
}

func (d *DB) CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error) {
	if create.RowStatus == "" {
		create.RowStatus = store.Normal
	}
	columns := []string{"uid", "creator_id", "row_status", "title", "description", "location", "start_ts", "end_ts", "all_day", "timezone", "source"}
	values := []any{create.UID, create.CreatorID, create.RowStatus, create.Title, create.Description, create.Location, create.StartTs, create.EndTs, create.AllDay, create.Timezone, create.Source}
	if create.CreatedTs != 0 {
		columns, values = append(columns, "created_ts"), append(values, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		columns, values = append(columns, "updated_ts"), append(values, create.UpdatedTs)
	}

	stmt := fmt.Sprintf("INSERT INTO schedule (%s) VALUES (%s) RETURNING id, created_ts, updated_ts, row_status",
		strings.Join(columns, ", "), placeholders(len(values)))
	row := d.db.QueryRowContext(ctx, stmt, values...)
	if err := row.Scan(&create.ID, &create.CreatedTs, &create.UpdatedTs, &create.RowStatus); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return create, nil
}

func (d *DB) ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error) {
	where := &conditions{parts: []string{"1 = 1"}}
	if find.ID != nil {
		where.add("id = %s", *find.ID)
	}
	if find.UID != nil {
		where.add("uid = %s", *find.UID)
	}
	if find.CreatorID != nil {
		where.add("creator_id = %s", *find.CreatorID)
	}
	if find.RowStatus != nil {
		where.add("row_status = %s", *find.RowStatus)
	}
	// Half-open window overlap. Rows without a usable end (NULL or not after
	// start) last DefaultScheduleDuration, matching Schedule.EffectiveEndTs.
	if find.StartTs != nil {
		where.add("CASE WHEN end_ts > start_ts THEN end_ts ELSE start_ts + %s END > %s", int64(store.DefaultScheduleDuration/time.Second), *find.StartTs)
	}
	if find.EndTs != nil {
		where.add("start_ts < %s", *find.EndTs)
	}

	query := "SELECT " + scheduleColumns + " FROM schedule WHERE " + strings.Join(where.parts, " AND ") +
		" ORDER BY start_ts ASC, id ASC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
		if find.Offset != nil {
			query += fmt.Sprintf(" OFFSET %d", *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}
	return list, nil
}

func scanSchedule(rows *sql.Rows) (*store.Schedule, error) {
	var s store.Schedule
	var endTs sql.NullInt64
	if err := rows.Scan(
		&s.ID, &s.UID, &s.CreatorID, &s.CreatedTs, &s.UpdatedTs, &s.RowStatus,
		&s.Title, &s.Description, &s.Location, &s.StartTs, &endTs, &s.AllDay, &s.Timezone, &s.Source,
	); err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}
	if endTs.Valid {
		s.EndTs = &endTs.Int64
	}
	return &s, nil
}

func (d *DB) UpdateSchedule(ctx context.Context, update *store.UpdateSchedule) error {
	set := &conditions{}
	if update.UpdatedTs != nil {
		set.add("updated_ts = %s", *update.UpdatedTs)
	}
	if update.RowStatus != nil {
		set.add("row_status = %s", *update.RowStatus)
	}
	if update.Title != nil {
		set.add("title = %s", *update.Title)
	}
	if update.Description != nil {
		set.add("description = %s", *update.Description)
	}
	if update.Location != nil {
		set.add("location = %s", *update.Location)
	}
	if update.StartTs != nil {
		set.add("start_ts = %s", *update.StartTs)
	}
	if update.EndTs != nil {
		set.add("end_ts = %s", *update.EndTs)
	}
	if update.AllDay != nil {
		set.add("all_day = %s", *update.AllDay)
	}
	if update.Timezone != nil {
		set.add("timezone = %s", *update.Timezone)
	}
	if len(set.parts) == 0 {
		return nil
	}

	set.args = append(set.args, update.ID)
	stmt := "UPDATE schedule SET " + strings.Join(set.parts, ", ") + " WHERE id = " + placeholder(len(set.args))
	return d.execAffectingOne(ctx, "update", update.ID, stmt, set.args...)
}

func (d *DB) DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error {
	return d.execAffectingOne(ctx, "delete", delete.ID, "DELETE FROM schedule WHERE id = "+placeholder(1), delete.ID)
}

// execAffectingOne runs stmt and maps zero affected rows to store.ErrNotFound.
func (d *DB) execAffectingOne(ctx context.Context, verb string, id int32, stmt string, args ...any) error {
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to %s schedule: %w", verb, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %d: %w", id, store.ErrNotFound)
	}
	return nil
}
