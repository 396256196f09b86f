package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	sortKeyLayout = "2006-01-02T15:04:05Z"
	historyTTL    = 90 * 24 * time.Hour
)

// s3API is the subset of the S3 client used here
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// dynamoAPI is the subset of the DynamoDB client used here
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSStorage keeps run history in DynamoDB, archives reports to S3 and reads
// record files from S3
type AWSStorage struct {
	dynamoDB  dynamoAPI
	s3Client  s3API
	tableName string
	bucket    string
}

// DynamoDBItem represents a run stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	RunID     string `dynamodbav:"RunID"`
	Succeeded bool   `dynamodbav:"Succeeded"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// NewAWSStorage connects to DynamoDB and S3. An empty profile uses the
// default credential chain (task role on ECS).
func NewAWSStorage(ctx context.Context, tableName, bucket, region, profile string) (*AWSStorage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &AWSStorage{
		dynamoDB:  dynamodb.NewFromConfig(cfg),
		s3Client:  s3.NewFromConfig(cfg),
		tableName: tableName,
		bucket:    bucket,
	}, nil
}

func runPK(kind string) string {
	return "RUN#" + kind
}

// SaveRunToDynamoDB stores one run entry, expiring after 90 days
func (s *AWSStorage) SaveRunToDynamoDB(ctx context.Context, entry RunEntry) error {
	if s.tableName == "" {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	item := DynamoDBItem{
		PK:        runPK(entry.Kind),
		SK:        entry.StartedAt.UTC().Format(sortKeyLayout) + "#" + entry.RunID,
		RunID:     entry.RunID,
		Succeeded: entry.Succeeded,
		Data:      string(data),
		Timestamp: entry.FinishedAt.UTC().Format(time.RFC3339),
		TTL:       entry.FinishedAt.Add(historyTTL).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// GetRuns returns runs of one kind started in [from, to], oldest first
func (s *AWSStorage) GetRuns(ctx context.Context, kind string, from, to time.Time) ([]RunEntry, error) {
	result, err := s.dynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: runPK(kind)},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format(sortKeyLayout)},
			// "~" sorts after the "#runid" suffix
			":to": &types.AttributeValueMemberS{Value: to.UTC().Format(sortKeyLayout) + "~"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	var runs []RunEntry
	for _, item := range result.Items {
		var dbItem DynamoDBItem
		if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
			continue
		}
		var entry RunEntry
		if err := json.Unmarshal([]byte(dbItem.Data), &entry); err != nil {
			continue
		}
		runs = append(runs, entry)
	}
	return runs, nil
}

// SaveToS3 saves data to the configured bucket as indented JSON
func (s *AWSStorage) SaveToS3(ctx context.Context, key string, data interface{}) error {
	if s.bucket == "" {
		return nil
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling data: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

// GetObject returns the raw bytes of an object in any bucket
func (s *AWSStorage) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return data, nil
}
