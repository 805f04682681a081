package libsql

import (
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/domain"
)

// iconColumns is the projection shared by every icon query. Embeddings
// are never fetched back; only their distance is.
const iconColumns = `id, name, normalized_name, source_id, category, tags,
	view_box, content, path_data, default_stroke, default_fill, stroke_width`

// iconRow mirrors one icons row before decoding into the domain model.
type iconRow struct {
	ID             string
	Name           string
	NormalizedName string
	SourceID       string
	Category       sql.NullString
	Tags           sql.NullString
	ViewBox        sql.NullString
	Content        string
	PathData       sql.NullString
	DefaultStroke  sql.NullBool
	DefaultFill    sql.NullBool
	StrokeWidth    sql.NullString
}

func (r *iconRow) scanFields() []any {
	return []any{
		&r.ID, &r.Name, &r.NormalizedName, &r.SourceID, &r.Category,
		&r.Tags, &r.ViewBox, &r.Content, &r.PathData,
		&r.DefaultStroke, &r.DefaultFill, &r.StrokeWidth,
	}
}

// toDomain converts a raw row to an always-valid record. Malformed JSON in
// tags or path_data degrades to empty/null for that field (logged, never
// an error to the caller).
func (r *iconRow) toDomain(logger *zap.Logger) domain.IconRecord {
	rec := domain.IconRecord{
		ID:             r.ID,
		Name:           r.Name,
		NormalizedName: r.NormalizedName,
		SourceID:       r.SourceID,
		Category:       r.Category.String,
		Tags:           []string{},
		ViewBox:        r.ViewBox.String,
		Content:        r.Content,
		DefaultStroke:  r.DefaultStroke.Bool,
		DefaultFill:    r.DefaultFill.Bool,
		StrokeWidth:    r.StrokeWidth.String,
	}

	if r.Tags.Valid && r.Tags.String != "" {
		var tags []string
		if err := json.Unmarshal([]byte(r.Tags.String), &tags); err != nil {
			logger.Warn("Malformed tags JSON, treating as empty",
				zap.String("icon_id", r.ID), zap.Error(err))
		} else {
			rec.Tags = tags
		}
	}

	if r.PathData.Valid && r.PathData.String != "" {
		if json.Valid([]byte(r.PathData.String)) {
			rec.PathData = json.RawMessage(r.PathData.String)
		} else {
			logger.Warn("Malformed path_data JSON, treating as null",
				zap.String("icon_id", r.ID))
		}
	}

	return rec
}
