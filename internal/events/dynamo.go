package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrDuplicateEntry is returned when an entry with the same ID already exists.
var ErrDuplicateEntry = errors.New("events: duplicate entry id")

// DynamoOptions configures the DynamoDB connection.
type DynamoOptions struct {
	Region          string
	Endpoint        string // Optional, e.g. http://localhost:8000 for DynamoDB Local
	AccessKeyID     string
	SecretAccessKey string
}

// NewDynamoClient builds a DynamoDB client. Static credentials are used when
// given, which DynamoDB Local needs even though it never checks them.
func NewDynamoClient(ctx context.Context, opts DynamoOptions) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("events: load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// dynamoAPI is the subset of *dynamodb.Client used by DynamoLog.
type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoLog stores entries in a DynamoDB table whose partition key is "id".
type DynamoLog struct {
	ddb       dynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoLog creates a DynamoLog writing to tableName.
func NewDynamoLog(ddb dynamoAPI, tableName string) *DynamoLog {
	return &DynamoLog{ddb: ddb, tableName: tableName, now: time.Now}
}

// Append implements Log. Writing an existing id fails with ErrDuplicateEntry.
func (l *DynamoLog) Append(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e, l.now)
	av, err := attributevalue.MarshalMap(e)
	if err != nil {
		return Entry{}, fmt.Errorf("events: marshal entry: %w", err)
	}

	_, err = l.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.ID)
		}
		return Entry{}, fmt.Errorf("events: put entry: %w", err)
	}
	return e, nil
}

// List implements Log, paging through the whole table.
func (l *DynamoLog) List(ctx context.Context) ([]Entry, error) {
	var (
		entries []Entry
		start   map[string]types.AttributeValue
	)
	for {
		out, err := l.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(l.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		for _, raw := range out.Items {
			var e Entry
			if err := attributevalue.UnmarshalMap(raw, &e); err != nil {
				return nil, fmt.Errorf("events: unmarshal entry: %w", err)
			}
			entries = append(entries, e)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sortByTime(entries)
	return entries, nil
}
