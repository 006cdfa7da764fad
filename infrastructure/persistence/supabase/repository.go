// Package supabase stores entries and links through the Supabase REST API.
package supabase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

const (
	EntriesTable      = "knowledge_base"
	LinksTable        = "knowledge_links"
	linkConflictKey   = "user_id,source_entry_id,target_entry_id"
	entryColumns      = "id,user_id,title,category,structured_summary,created_at,updated_at"
	linkColumns       = "id,user_id,source_entry_id,target_entry_id,link_type,link_strength,shared_keywords,created_at,updated_at"
	returnMinimal     = "minimal"
	noCount           = ""
	postgrestNotFound = "PGRST205" // table missing from the schema cache

	// pageSize matches the default max-rows of a Supabase project
	pageSize = 1000
)

var ascending = &postgrest.OrderOpts{Ascending: true}

type entryRow struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Title             string          `json:"title"`
	Category          string          `json:"category"`
	StructuredSummary json.RawMessage `json:"structured_summary"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type linkRow struct {
	ID             string    `json:"id,omitempty"`
	UserID         string    `json:"user_id"`
	SourceEntryID  string    `json:"source_entry_id"`
	TargetEntryID  string    `json:"target_entry_id"`
	LinkType       string    `json:"link_type"`
	LinkStrength   float64   `json:"link_strength"`
	SharedKeywords []string  `json:"shared_keywords"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store implements the entry and link repositories on a Supabase project
type Store struct {
	client *supabase.Client
	logger *zap.Logger
	now    func() time.Time
}

// Compile-time interface checks
var _ ports.EntryRepository = (*Store)(nil)

// NewClient creates a Supabase client
func NewClient(url, serviceKey string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, pkgerrors.NewInternal("failed to create Supabase client", err)
	}
	return client, nil
}

// NewStore creates a new Supabase backed store
func NewStore(client *supabase.Client, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger, now: time.Now}
}

// ListByOwner returns the owner's entries oldest first
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	rows, err := fetchPages(ctx, func(from, to int) ([]entryRow, error) {
		var page []entryRow
		if _, err := s.client.From(EntriesTable).
			Select(entryColumns, noCount, false).
			Eq("user_id", ownerID).
			Order("created_at", ascending).
			Order("id", ascending).
			Range(from, to, "").
			ExecuteTo(&page); err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		return nil, classifyError(EntriesTable, "list entries", err)
	}

	out := make([]entities.KnowledgeEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.KnowledgeEntry{
			ID:         row.ID,
			OwnerID:    row.UserID,
			Title:      row.Title,
			Category:   row.Category,
			RawSummary: row.StructuredSummary,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return out, nil
}

// Links returns the link repository of the store
func (s *Store) Links() *LinkRepository {
	return &LinkRepository{store: s}
}

// LinkRepository upserts links through PostgREST
type LinkRepository struct {
	store *Store
}

var _ ports.LinkRepository = (*LinkRepository)(nil)

// UpsertLinks sends the batch as one upsert request keyed on
// (user_id, source_entry_id, target_entry_id)
func (r *LinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.NewDatabase("upsert links", err)
	}

	rows, err := toLinkRows(ownerID, links, r.store.now().UTC())
	if err != nil {
		return 0, err
	}

	if _, _, err := r.store.client.From(LinksTable).
		Upsert(rows, linkConflictKey, returnMinimal, noCount).
		Execute(); err != nil {
		return 0, classifyError(LinksTable, "upsert links", err)
	}
	return len(rows), nil
}

// ListByOwner returns every stored link of the owner
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	rows, err := fetchPages(ctx, func(from, to int) ([]linkRow, error) {
		var page []linkRow
		if _, err := r.store.client.From(LinksTable).
			Select(linkColumns, noCount, false).
			Eq("user_id", ownerID).
			Order("id", ascending).
			Range(from, to, "").
			ExecuteTo(&page); err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		return nil, classifyError(LinksTable, "list links", err)
	}

	out := make([]entities.GraphLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.GraphLink{
			ID:             row.ID,
			OwnerID:        row.UserID,
			SourceEntryID:  row.SourceEntryID,
			TargetEntryID:  row.TargetEntryID,
			LinkType:       entities.LinkType(row.LinkType),
			Strength:       row.LinkStrength,
			SharedKeywords: row.SharedKeywords,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return out, nil
}

// fetchPages requests consecutive ranges until one comes back empty. Offsets
// advance by the rows actually returned, so a max-rows below pageSize still
// reads every row.
func fetchPages[T any](ctx context.Context, fetch func(from, to int) ([]T, error)) ([]T, error) {
	var all []T
	from := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(from, from+pageSize-1)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		from += len(page)
	}
}

// toLinkRows omits id and created_at so the column defaults apply on insert
// and the stored values survive updates.
func toLinkRows(ownerID string, links []entities.GraphLink, now time.Time) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(links))
	for _, l := range links {
		if l.OwnerID != ownerID {
			return nil, pkgerrors.NewValidation("link owner does not match batch owner")
		}
		shared := l.SharedKeywords
		if shared == nil {
			shared = []string{}
		}
		rows = append(rows, map[string]interface{}{
			"user_id":         l.OwnerID,
			"source_entry_id": l.SourceEntryID,
			"target_entry_id": l.TargetEntryID,
			"link_type":       string(l.LinkType),
			"link_strength":   l.Strength,
			"shared_keywords": shared,
			"updated_at":      now,
		})
	}
	return rows, nil
}

// PostgREST reports errors as "(code) message"
func classifyError(table, op string, err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "42P01"),
		strings.Contains(msg, postgrestNotFound),
		strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "could not find the table"):
		return pkgerrors.NewSchemaMissing(table, err)
	default:
		return pkgerrors.NewDatabase(op, err)
	}
}
