package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"kbgraph-backend/application/ports"
	"kbgraph-backend/domain/core/entities"
	pkgerrors "kbgraph-backend/pkg/errors"
)

const (
	// DynamoDB limits BatchWriteItem to 25 requests
	maxBatchWrite = 25
	maxRetries    = 3

	entityTypeEntry = "ENTRY"
	entityTypeLink  = "LINK"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// entryItem represents the DynamoDB item structure for an entry
type entryItem struct {
	PK                string `dynamodbav:"PK"` // USER#<owner>
	SK                string `dynamodbav:"SK"` // ENTRY#<id>
	EntityType        string `dynamodbav:"EntityType"`
	EntryID           string `dynamodbav:"EntryID"`
	UserID            string `dynamodbav:"UserID"`
	Title             string `dynamodbav:"Title"`
	Category          string `dynamodbav:"Category"`
	StructuredSummary string `dynamodbav:"StructuredSummary,omitempty"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
	UpdatedAt         string `dynamodbav:"UpdatedAt"`
}

// linkItem represents the DynamoDB item structure for a link. The sort key
// carries the pair, so a put on the same pair replaces the previous item.
type linkItem struct {
	PK             string   `dynamodbav:"PK"` // USER#<owner>
	SK             string   `dynamodbav:"SK"` // LINK#<source>#<target>
	EntityType     string   `dynamodbav:"EntityType"`
	UserID         string   `dynamodbav:"UserID"`
	SourceEntryID  string   `dynamodbav:"SourceEntryID"`
	TargetEntryID  string   `dynamodbav:"TargetEntryID"`
	LinkType       string   `dynamodbav:"LinkType"`
	LinkStrength   float64  `dynamodbav:"LinkStrength"`
	SharedKeywords []string `dynamodbav:"SharedKeywords"`
	UpdatedAt      string   `dynamodbav:"UpdatedAt"`
}

func userPK(ownerID string) string { return fmt.Sprintf("USER#%s", ownerID) }

func linkSK(source, target string) string { return fmt.Sprintf("LINK#%s#%s", source, target) }

// Store implements the entry and link repositories on a single table
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
	backoff   func(retry int) time.Duration
}

// Compile-time interface checks
var _ ports.EntryRepository = (*Store)(nil)
var _ ports.LinkRepository = (*LinkRepository)(nil)

// NewStore creates a new DynamoDB backed store
func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
		backoff: func(retry int) time.Duration {
			return time.Duration(retry*retry+1) * 100 * time.Millisecond
		},
	}
}

// ListByOwner returns the owner's entries in sort key order
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]entities.KnowledgeEntry, error) {
	items, err := s.queryPrefix(ctx, ownerID, "ENTRY#")
	if err != nil {
		return nil, err
	}

	out := make([]entities.KnowledgeEntry, 0, len(items))
	for _, raw := range items {
		var item entryItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("Failed to parse entry item", zap.Error(err))
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
		updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
		entry := entities.KnowledgeEntry{
			ID:        item.EntryID,
			OwnerID:   item.UserID,
			Title:     item.Title,
			Category:  item.Category,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		}
		if item.StructuredSummary != "" {
			entry.RawSummary = json.RawMessage(item.StructuredSummary)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Links returns the link repository of the store
func (s *Store) Links() *LinkRepository {
	return &LinkRepository{store: s}
}

// LinkRepository writes links to the shared table
type LinkRepository struct {
	store *Store
}

// UpsertLinks writes the links with BatchWriteItem in chunks of 25, retrying
// unprocessed items. The returned count covers every chunk that was fully
// written before a failure.
func (r *LinkRepository) UpsertLinks(ctx context.Context, ownerID string, links []entities.GraphLink) (int, error) {
	s := r.store
	now := s.now().UTC().Format(time.RFC3339)

	requests := make([]types.WriteRequest, 0, len(links))
	for _, l := range links {
		if l.OwnerID != ownerID {
			return 0, pkgerrors.NewValidation("link owner does not match batch owner")
		}
		shared := l.SharedKeywords
		if shared == nil {
			shared = []string{}
		}
		item, err := attributevalue.MarshalMap(linkItem{
			PK:             userPK(ownerID),
			SK:             linkSK(l.SourceEntryID, l.TargetEntryID),
			EntityType:     entityTypeLink,
			UserID:         ownerID,
			SourceEntryID:  l.SourceEntryID,
			TargetEntryID:  l.TargetEntryID,
			LinkType:       string(l.LinkType),
			LinkStrength:   l.Strength,
			SharedKeywords: shared,
			UpdatedAt:      now,
		})
		if err != nil {
			return 0, pkgerrors.NewInternal("failed to marshal link", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	written := 0
	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		n, err := s.writeChunk(ctx, requests[start:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (s *Store) writeChunk(ctx context.Context, requests []types.WriteRequest) (int, error) {
	pending := requests
	for retry := 0; retry <= maxRetries && len(pending) > 0; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return len(requests) - len(pending), pkgerrors.NewDatabase("batch write cancelled", ctx.Err())
			case <-time.After(s.backoff(retry)):
			}
		}

		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
		})
		if err != nil {
			return len(requests) - len(pending), classifyError(s.tableName, "batch write links", err)
		}

		pending = result.UnprocessedItems[s.tableName]
		if len(pending) > 0 {
			s.logger.Debug("Found unprocessed items, retrying",
				zap.Int("unprocessedCount", len(pending)),
				zap.Int("retry", retry+1),
			)
		}
	}

	if len(pending) > 0 {
		return len(requests) - len(pending), pkgerrors.NewDatabase(
			fmt.Sprintf("failed to process %d items after %d retries", len(pending), maxRetries), nil)
	}
	return len(requests), nil
}

// ListByOwner returns every stored link of the owner
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]entities.GraphLink, error) {
	items, err := r.store.queryPrefix(ctx, ownerID, "LINK#")
	if err != nil {
		return nil, err
	}

	out := make([]entities.GraphLink, 0, len(items))
	for _, raw := range items {
		var item linkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.store.logger.Warn("Failed to parse link item", zap.Error(err))
			continue
		}
		updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
		out = append(out, entities.GraphLink{
			ID:             strings.TrimPrefix(item.SK, "LINK#"),
			OwnerID:        item.UserID,
			SourceEntryID:  item.SourceEntryID,
			TargetEntryID:  item.TargetEntryID,
			LinkType:       entities.LinkType(item.LinkType),
			Strength:       item.LinkStrength,
			SharedKeywords: item.SharedKeywords,
			UpdatedAt:      updatedAt,
		})
	}
	return out, nil
}

func (s *Store) queryPrefix(ctx context.Context, ownerID, prefix string) ([]map[string]types.AttributeValue, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(userPK(ownerID))).
		And(expression.Key("SK").BeginsWith(prefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, classifyError(s.tableName, "query items", err)
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func classifyError(table, op string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return pkgerrors.NewSchemaMissing(table, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return pkgerrors.NewSchemaMissing(table, err)
	}
	return pkgerrors.NewDatabase(op, err)
}
