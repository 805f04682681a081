package libsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/WebRenew/unicon-search/internal/domain"
)

// FindByVector returns candidates ordered by ascending cosine distance to
// the query vector, restricted to rows with a populated embedding and the
// optional source filter. LIMIT/OFFSET here gives distance-ordered pages;
// the hybrid re-ranker asks for a wide window at offset 0 and paginates
// after re-scoring.
func (s *Store) FindByVector(
	ctx context.Context, vector []float32, sourceID string, limit, offset int,
) ([]domain.SearchCandidate, error) {
	query := fmt.Sprintf(`
		SELECT %s, vector_distance_cos(embedding, vector32(?)) AS distance
		FROM icons
		WHERE embedding IS NOT NULL%s
		ORDER BY distance ASC
		LIMIT ? OFFSET ?`, iconColumns, sourceFilterClause(sourceID))

	args := []any{domain.VectorLiteral(vector)}
	if sourceID != "" {
		args = append(args, sourceID)
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []domain.SearchCandidate
	for rows.Next() {
		var row iconRow
		var distance float64
		if err := rows.Scan(append(row.scanFields(), &distance)...); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		candidates = append(candidates, domain.SearchCandidate{
			Icon:     row.toDomain(s.logger),
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector rows: %w", err)
	}
	return candidates, nil
}

// FindByTextMatch runs a case-insensitive substring search over
// normalized name, display name, tags, and category, ordered by
// normalized name.
func (s *Store) FindByTextMatch(
	ctx context.Context, query, sourceID string, limit, offset int,
) ([]domain.IconRecord, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM icons
		WHERE (lower(normalized_name) LIKE ?
			OR lower(name) LIKE ?
			OR lower(tags) LIKE ?
			OR lower(category) LIKE ?)%s
		ORDER BY normalized_name ASC
		LIMIT ? OFFSET ?`, iconColumns, sourceFilterClause(sourceID))

	args := []any{pattern, pattern, pattern, pattern}
	if sourceID != "" {
		args = append(args, sourceID)
	}
	args = append(args, limit, offset)

	return s.queryIcons(ctx, sqlQuery, args...)
}

// FindByExactNames fetches icons whose normalized name matches any of the
// given names exactly (case-insensitive). Used by the exact lookup tier,
// which bypasses all scoring.
func (s *Store) FindByExactNames(ctx context.Context, names []string) ([]domain.IconRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		placeholders[i] = "?"
		args[i] = strings.ToLower(strings.TrimSpace(n))
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM icons
		WHERE lower(normalized_name) IN (%s)
		ORDER BY normalized_name ASC`, iconColumns, strings.Join(placeholders, ","))

	return s.queryIcons(ctx, sqlQuery, args...)
}

// Browse lists catalog entries with optional substring query and source
// filter, for plain (unranked) pagination.
func (s *Store) Browse(
	ctx context.Context, query, sourceID string, limit, offset int,
) ([]domain.IconRecord, error) {
	if strings.TrimSpace(query) != "" {
		return s.FindByTextMatch(ctx, query, sourceID, limit, offset)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM icons
		WHERE 1=1%s
		ORDER BY normalized_name ASC
		LIMIT ? OFFSET ?`, iconColumns, sourceFilterClause(sourceID))

	args := []any{}
	if sourceID != "" {
		args = append(args, sourceID)
	}
	args = append(args, limit, offset)

	return s.queryIcons(ctx, sqlQuery, args...)
}

// Sources lists the icon libraries in the catalog.
func (s *Store) Sources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, version, license, total_icons
		FROM sources
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		var version, license sql.NullString
		if err := rows.Scan(&src.ID, &src.Name, &version, &license, &src.TotalIcons); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		src.Version = version.String
		src.License = license.String
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source rows: %w", err)
	}
	return sources, nil
}

func (s *Store) queryIcons(ctx context.Context, query string, args ...any) ([]domain.IconRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query icons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var icons []domain.IconRecord
	for rows.Next() {
		var row iconRow
		if err := rows.Scan(row.scanFields()...); err != nil {
			return nil, fmt.Errorf("scan icon row: %w", err)
		}
		icons = append(icons, row.toDomain(s.logger))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("icon rows: %w", err)
	}
	return icons, nil
}

func sourceFilterClause(sourceID string) string {
	if sourceID == "" {
		return ""
	}
	return " AND source_id = ?"
}
