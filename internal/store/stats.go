package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/gplan/internal/cost"
)

var _ cost.Statistics = (*Store)(nil)

// ImportStatistics upserts every entry of ts in one transaction. With
// replace set, existing statistics are deleted first.
func (s *Store) ImportStatistics(ctx context.Context, ts *cost.TableStatistics, replace bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if replace {
			for _, table := range []string{"vertex_stats", "edge_stats"} {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("import statistics: clear %s: %w", table, err)
				}
			}
		}
		for label, n := range ts.Vertices {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO vertex_stats (label, count) VALUES (?, ?)
				ON CONFLICT(label) DO UPDATE SET count = excluded.count
			`, label, n)
			if err != nil {
				return fmt.Errorf("import statistics: vertex %q: %w", label, err)
			}
		}
		for label, e := range ts.Edges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO edge_stats (label, count, out_degree, in_degree) VALUES (?, ?, ?, ?)
				ON CONFLICT(label) DO UPDATE SET
					count = excluded.count,
					out_degree = excluded.out_degree,
					in_degree = excluded.in_degree
			`, label, e.Count, e.OutDegree, e.InDegree)
			if err != nil {
				return fmt.Errorf("import statistics: edge %q: %w", label, err)
			}
		}
		return nil
	})
}

// ReadStatistics loads every stored statistic into memory.
func (s *Store) ReadStatistics(ctx context.Context) (*cost.TableStatistics, error) {
	ts := &cost.TableStatistics{
		Vertices: map[string]float64{},
		Edges:    map[string]cost.EdgeStats{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT label, count FROM vertex_stats ORDER BY label COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query vertex stats: %w", err)
	}
	for rows.Next() {
		var label string
		var n float64
		if err := rows.Scan(&label, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan vertex stats: %w", err)
		}
		ts.Vertices[label] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate vertex stats: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT label, count, out_degree, in_degree FROM edge_stats ORDER BY label COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query edge stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var e cost.EdgeStats
		if err := rows.Scan(&label, &e.Count, &e.OutDegree, &e.InDegree); err != nil {
			return nil, fmt.Errorf("scan edge stats: %w", err)
		}
		ts.Edges[label] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge stats: %w", err)
	}
	return ts, nil
}

// VertexCount implements cost.Statistics. An empty label reads the "*"
// row, or the sum over labels when there is none. Query failures count as
// unknown.
func (s *Store) VertexCount(ctx context.Context, label string) (float64, bool) {
	return s.lookup(ctx, "count", "vertex_stats", label)
}

// OutDegree implements cost.Statistics.
func (s *Store) OutDegree(ctx context.Context, edgeLabel string) (float64, bool) {
	return s.lookup(ctx, "out_degree", "edge_stats", edgeLabel)
}

// InDegree implements cost.Statistics.
func (s *Store) InDegree(ctx context.Context, edgeLabel string) (float64, bool) {
	return s.lookup(ctx, "in_degree", "edge_stats", edgeLabel)
}

// lookup reads column for label from table. column and table are
// constants supplied by the callers above.
func (s *Store) lookup(ctx context.Context, column, table, label string) (float64, bool) {
	key := label
	if key == "" {
		key = cost.AllLabels
	}
	var v float64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE label = ?", column, table), key).Scan(&v)
	switch {
	case err == nil:
		return v, true
	case err != sql.ErrNoRows || label != "":
		return 0, false
	}

	var rows int
	var sum float64
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(%s), 0) FROM %s", column, table)).Scan(&rows, &sum)
	if err != nil || rows == 0 {
		return 0, false
	}
	return sum, true
}
