package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/user/contestcal/internal/contest"
)

const upsertContestQuery = `
	INSERT INTO contests (id, platform, title, start_time, duration_seconds, url, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		platform = excluded.platform,
		title = excluded.title,
		start_time = excluded.start_time,
		duration_seconds = excluded.duration_seconds,
		url = excluded.url,
		fetched_at = excluded.fetched_at
`

// UpsertContests inserts or overwrites contests keyed by id and stamps each
// with the current instant as fetched_at. The batch is written in one
// transaction; a failure leaves no partial batch behind.
func (s *Store) UpsertContests(ctx context.Context, contests []contest.Contest) (int, error) {
	if len(contests) == 0 {
		return 0, nil
	}

	fetchedAt := formatTime(s.now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin contest upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertContestQuery)
	if err != nil {
		return 0, storageErr("prepare contest upsert", err)
	}
	defer stmt.Close()

	for _, c := range contests {
		if _, err := stmt.ExecContext(ctx,
			c.ID, string(c.Platform), c.Title, formatTime(c.StartTime),
			c.DurationSeconds, c.URL, fetchedAt,
		); err != nil {
			return 0, storageErr("upsert contest "+c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit contest upsert", err)
	}
	return len(contests), nil
}

// QueryUpcoming returns contests starting strictly between now and
// now+horizon, ascending by start time. An empty platform means all.
func (s *Store) QueryUpcoming(ctx context.Context, platform contest.Platform, horizon time.Duration) ([]contest.Contest, error) {
	if horizon < 0 {
		horizon = 0
	}

	now := s.now()
	from := formatTime(now)
	to := formatTime(now.Add(horizon))

	query := `SELECT * FROM contests WHERE start_time > ? AND start_time < ?`
	args := []interface{}{from, to}
	if platform != "" {
		query += ` AND platform = ?`
		args = append(args, string(platform))
	}
	query += ` ORDER BY start_time ASC, id ASC`

	var rows []contestRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageErr("query upcoming contests", err)
	}

	result := make([]contest.Contest, 0, len(rows))
	for _, r := range rows {
		c, err := r.toContest()
		if err != nil {
			return nil, storageErr("decode contest", err)
		}
		result = append(result, *c)
	}
	return result, nil
}

// GetContest returns a contest by id, or nil when it is unknown.
func (s *Store) GetContest(ctx context.Context, id string) (*contest.Contest, error) {
	var row contestRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM contests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get contest "+id, err)
	}

	c, err := row.toContest()
	if err != nil {
		return nil, storageErr("decode contest", err)
	}
	return c, nil
}

// CountContests returns the number of stored contests.
func (s *Store) CountContests(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM contests`); err != nil {
		return 0, storageErr("count contests", err)
	}
	return count, nil
}
