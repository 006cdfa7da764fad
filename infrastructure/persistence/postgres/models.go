package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"kbgraph-backend/domain/core/entities"
)

const (
	EntriesTable = "knowledge_base"
	LinksTable   = "knowledge_links"
)

// EntryModel is a row of the knowledge_base table. The generator only reads it.
type EntryModel struct {
	ID                string         `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string         `gorm:"column:user_id;type:uuid;not null;index"`
	Title             string         `gorm:"column:title"`
	Category          string         `gorm:"column:category"`
	StructuredSummary datatypes.JSON `gorm:"column:structured_summary"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

func (EntryModel) TableName() string { return EntriesTable }

func (m EntryModel) toEntity() entities.KnowledgeEntry {
	return entities.KnowledgeEntry{
		ID:         m.ID,
		OwnerID:    m.UserID,
		Title:      m.Title,
		Category:   m.Category,
		RawSummary: json.RawMessage(m.StructuredSummary),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// LinkModel is a row of the knowledge_links table
type LinkModel struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey"`
	UserID         string         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_knowledge_links_owner_pair,priority:1"`
	SourceEntryID  string         `gorm:"column:source_entry_id;type:uuid;not null;uniqueIndex:idx_knowledge_links_owner_pair,priority:2"`
	TargetEntryID  string         `gorm:"column:target_entry_id;type:uuid;not null;uniqueIndex:idx_knowledge_links_owner_pair,priority:3"`
	LinkType       string         `gorm:"column:link_type;not null;default:auto"`
	LinkStrength   float64        `gorm:"column:link_strength;not null"`
	SharedKeywords datatypes.JSON `gorm:"column:shared_keywords"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (LinkModel) TableName() string { return LinksTable }

func linkModelFromEntity(l entities.GraphLink, id string, now time.Time) (LinkModel, error) {
	shared := l.SharedKeywords
	if shared == nil {
		shared = []string{}
	}
	raw, err := json.Marshal(shared)
	if err != nil {
		return LinkModel{}, err
	}
	return LinkModel{
		ID:             id,
		UserID:         l.OwnerID,
		SourceEntryID:  l.SourceEntryID,
		TargetEntryID:  l.TargetEntryID,
		LinkType:       string(l.LinkType),
		LinkStrength:   l.Strength,
		SharedKeywords: datatypes.JSON(raw),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (m LinkModel) toEntity() entities.GraphLink {
	var shared []string
	if len(m.SharedKeywords) > 0 {
		_ = json.Unmarshal(m.SharedKeywords, &shared)
	}
	return entities.GraphLink{
		ID:             m.ID,
		OwnerID:        m.UserID,
		SourceEntryID:  m.SourceEntryID,
		TargetEntryID:  m.TargetEntryID,
		LinkType:       entities.LinkType(m.LinkType),
		Strength:       m.LinkStrength,
		SharedKeywords: shared,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
