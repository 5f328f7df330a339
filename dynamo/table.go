// Package dynamo provides a thin, typed DAO wrapper over DynamoDB. Items are
// marshaled with the SDK attributevalue codec; conditions and key expressions
// use the SDK expression builder. Durability, consistency, and partitioning
// remain DynamoDB's concern.
package dynamo

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/errors"
)

// Key identifies an item by attribute name/value pairs, e.g.
// dynamo.Key{"PK": "USER#42", "SK": "PROFILE"}.
type Key map[string]any

func (k Key) marshal() (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(k))
	for name, value := range k {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key attribute %s: %w", name, err)
		}
		out[name] = av
	}
	return out, nil
}

// Table is a typed view over a DynamoDB table: every operation marshals to
// and from T.
type Table[T any] struct {
	client *dynamodb.Client
	name   string
	logger *zap.Logger
}

// NewTable creates a typed table wrapper.
func NewTable[T any](client *dynamodb.Client, name string, logger *zap.Logger) *Table[T] {
	return &Table[T]{
		client: client,
		name:   name,
		logger: logger,
	}
}

// Put writes an item unconditionally.
func (t *Table[T]) Put(ctx context.Context, item T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	})
	if err != nil {
		return errors.NewTransient("failed to put item", err)
	}
	return nil
}

// PutIfAbsent writes an item only when no item with the same partition key
// exists; returns a conflict error otherwise.
func (t *Table[T]) PutIfAbsent(ctx context.Context, item T, partitionKeyAttr string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(partitionKeyAttr).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition expression: %w", err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(t.name),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if stderrors.As(err, &conditionFailed) {
			return errors.NewConflict("item already exists")
		}
		return errors.NewTransient("failed to put item", err)
	}
	return nil
}

// Get fetches a single item by key. Returns a not-found error when the item
// does not exist.
func (t *Table[T]) Get(ctx context.Context, key Key) (*T, error) {
	k, err := key.marshal()
	if err != nil {
		return nil, err
	}

	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       k,
	})
	if err != nil {
		return nil, errors.NewTransient("failed to get item", err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFound("item not found")
	}

	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// Delete removes an item by key. Deleting a missing item is not an error.
func (t *Table[T]) Delete(ctx context.Context, key Key) error {
	k, err := key.marshal()
	if err != nil {
		return err
	}

	_, err = t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       k,
	})
	if err != nil {
		return errors.NewTransient("failed to delete item", err)
	}
	return nil
}

// Query runs a key-condition query, optionally against an index (empty
// indexName queries the table), and unmarshals every page into T.
func (t *Table[T]) Query(ctx context.Context, indexName string, keyCond expression.KeyConditionBuilder) ([]T, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}

	var items []T
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewTransient("failed to query items", err)
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal query page: %w", err)
		}
		items = append(items, batch...)
	}

	t.logger.Debug("Query completed",
		zap.String("table", t.name),
		zap.String("index", indexName),
		zap.Int("items", len(items)),
	)
	return items, nil
}
