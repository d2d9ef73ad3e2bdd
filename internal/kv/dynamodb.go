// ABOUTME: DynamoDB implementation of Store for cloud-hosted state
// ABOUTME: One item per key: {"pk": key, "value": value, "updated_at": ts}

package kv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the store uses
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type dynamoItem struct {
	PK        string `dynamodbav:"pk"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStore implements Store on a DynamoDB table
type DynamoStore struct {
	client DynamoAPI
	table  string
	logger *slog.Logger
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "kv", "backend", "dynamodb", "table", table),
	}
}

// NewDynamoStoreFromEnv builds a client from the default AWS credential chain.
// endpoint overrides the service URL (DynamoDB Local, LocalStack).
func NewDynamoStoreFromEnv(ctx context.Context, table, region, endpoint string) (*DynamoStore, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodb store requires a table name")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, table), nil
}

func (d *DynamoStore) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: k},
	}
}

// Get returns the value stored under key.
func (d *DynamoStore) Get(ctx context.Context, key string) (string, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get item %s from table '%s': %w", key, d.table, err)
	}
	if len(out.Item) == 0 {
		return "", ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", fmt.Errorf("failed to unmarshal item %s: %w", key, err)
	}
	return item.Value, nil
}

// Set writes value under key.
func (d *DynamoStore) Set(ctx context.Context, key, value string) error {
	av, err := attributevalue.MarshalMap(dynamoItem{
		PK:        key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", d.table, err)
	}
	return nil
}

// Remove deletes key if present.
func (d *DynamoStore) Remove(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(key),
	}); err != nil {
		return fmt.Errorf("failed to delete item %s from table '%s': %w", key, d.table, err)
	}
	return nil
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (d *DynamoStore) Close() error {
	return nil
}
