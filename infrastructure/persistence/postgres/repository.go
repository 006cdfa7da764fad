package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

// undefined_table
const pgUndefinedTable = "42P01"

// EntryRepository reads knowledge base entries with gorm
type EntryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Compile-time interface checks
var _ ports.EntryRepository = (*EntryRepository)(nil)
var _ ports.LinkRepository = (*LinkRepository)(nil)

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *gorm.DB, logger *zap.Logger) *EntryRepository {
	return &EntryRepository{db: db, logger: logger}
}

// ListByOwner returns the owner's entries oldest first
func (r *EntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	var rows []EntryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classifyError(EntriesTable, "list entries", err)
	}

	out := make([]entities.KnowledgeEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// LinkRepository writes generated links with gorm
type LinkRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewLinkRepository creates a new LinkRepository
func NewLinkRepository(db *gorm.DB, logger *zap.Logger) *LinkRepository {
	return &LinkRepository{db: db, logger: logger, now: time.Now}
}

// UpsertLinks writes the batch in one INSERT ... ON CONFLICT statement. The
// row id and created_at of existing links are kept.
func (r *LinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	now := r.now().UTC()
	rows := make([]LinkModel, 0, len(links))
	for _, l := range links {
		if l.OwnerID != ownerID {
			return 0, pkgerrors.NewValidation("link owner does not match batch owner").
				WithDetail("source", l.SourceEntryID).
				WithDetail("target", l.TargetEntryID)
		}
		row, err := linkModelFromEntity(l, uuid.NewString(), now)
		if err != nil {
			return 0, pkgerrors.NewInternal("failed to encode shared keywords", err)
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "source_entry_id"}, {Name: "target_entry_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"link_type",
			"link_strength",
			"shared_keywords",
			"updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, classifyError(LinksTable, "upsert links", err)
	}
	return len(rows), nil
}

// ListByOwner returns every stored link of the owner
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	var rows []LinkModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("source_entry_id ASC, target_entry_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classifyError(LinksTable, "list links", err)
	}

	out := make([]entities.GraphLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// classifyError separates a missing table from transient storage failures
func classifyError(table, op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewDatabase(op, err)
	case isUndefinedTable(err):
		return pkgerrors.NewSchemaMissing(table, err)
	default:
		return pkgerrors.NewDatabase(op, err)
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == pgUndefinedTable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"): // sqlite
		return true
	case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"):
		return true
	default:
		return false
	}
}
