package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"kbgraph-backend/application/ports"
	pkgerrors "kbgraph-backend/pkg/errors"
)

// IdempotencyAPI is the subset of the DynamoDB client the idempotency store uses
type IdempotencyAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// idempotencyItem represents the structure of an idempotency item in DynamoDB
type idempotencyItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// IdempotencyStore claims keys with a conditional put. Expired claims are
// removed by the table's TTL on the TTL attribute.
type IdempotencyStore struct {
	client    IdempotencyAPI
	tableName string
	now       func() time.Time
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new DynamoDB-based idempotency store
func NewIdempotencyStore(client IdempotencyAPI, tableName string) *IdempotencyStore {
	return &IdempotencyStore{client: client, tableName: tableName, now: time.Now}
}

func idempotencyPK(key string) string { return fmt.Sprintf("IDEMPOTENCY#%s", key) }

// Claim implements ports.IdempotencyStore
func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	item, err := attributevalue.MarshalMap(idempotencyItem{
		PK:         idempotencyPK(key),
		SK:         "CLAIM",
		EntityType: "IDEMPOTENCY",
		CreatedAt:  now.UTC().Format(time.RFC3339),
		TTL:        now.Add(ttl).Unix(),
	})
	if err != nil {
		return false, pkgerrors.NewInternal("failed to marshal idempotency item", err)
	}

	// A claim whose TTL passed but that DynamoDB has not swept yet is free
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR #ttl < :now"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, classifyError(s.tableName, "failed to store idempotency key", err)
	}
	return true, nil
}

// Release implements ports.IdempotencyStore
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: idempotencyPK(key)},
			"SK": &types.AttributeValueMemberS{Value: "CLAIM"},
		},
	})
	if err != nil {
		return classifyError(s.tableName, "failed to delete idempotency key", err)
	}
	return nil
}
