package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/opiniq/sentilens/internal/models"
)

const (
	SENTIMENT_RECORDS_TABLE_NAME = "SentimentRecords"

	// Fixed-width timestamp so the range key sorts chronologically as a
	// string. RFC3339Nano trims trailing zeros and cannot be used here.
	tsKeyFormat = "2006-01-02T15:04:05.000000000Z"

	maxBatchSize = 25
)

// DynamoAPI is the slice of the DynamoDB client the store uses.
type DynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// SentimentStore persists analysis records in DynamoDB. The table is
// keyed by query (partition) and ts_id (range), where ts_id is the
// record timestamp concatenated with the record ID so two records for
// the same instant never collide.
type SentimentStore struct {
	client    DynamoAPI
	tableName string
}

func NewSentimentStore(client DynamoAPI, tableName string) *SentimentStore {
	if tableName == "" {
		tableName = SENTIMENT_RECORDS_TABLE_NAME
	}
	return &SentimentStore{client: client, tableName: tableName}
}

func rangeKey(record models.SentimentRecord) string {
	return record.Timestamp.UTC().Format(tsKeyFormat) + "#" + record.ID
}

// BulkInsert writes records in chunks of 25 with unprocessed-item
// retries. Best effort: a chunk that cannot be written after retries is
// logged and skipped so later chunks still land.
func (s *SentimentStore) BulkInsert(ctx context.Context, records []models.SentimentRecord) error {
	var lastErr error

	for i := 0; i < len(records); i += maxBatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := i + maxBatchSize
		if end > len(records) {
			end = len(records)
		}

		if err := s.writeChunk(ctx, records[i:end]); err != nil {
			slog.Error("[SentimentStore] Chunk write failed, continuing with remaining chunks",
				slog.Int("chunk_start", i),
				slog.String("error", err.Error()))
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("[SentimentStore] bulk insert completed with failures: %w", lastErr)
	}
	slog.Info("[SentimentStore] Successfully stored sentiment records",
		slog.Int("count", len(records)))
	return nil
}

func (s *SentimentStore) writeChunk(ctx context.Context, records []models.SentimentRecord) error {
	writeRequests := make([]types.WriteRequest, 0, len(records))
	for _, record := range records {
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("[SentimentStore] Failed to marshal record %s: %w", record.ID, err)
		}
		item["ts_id"] = &types.AttributeValueMemberS{Value: rangeKey(record)}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.tableName: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[SentimentStore] Failed to batch write records: %w", err)
	}

	retryCount := 0
	backoff := 500 * time.Millisecond
	for len(out.UnprocessedItems) > 0 && retryCount < 3 {
		time.Sleep(backoff)
		backoff *= 2

		slog.Warn("[SentimentStore] Retrying unprocessed records...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[s.tableName])))

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[SentimentStore] Retry error: %w", err)
		}
		retryCount++
	}

	if len(out.UnprocessedItems) > 0 {
		return fmt.Errorf("[SentimentStore] %d records not written after retries",
			len(out.UnprocessedItems[s.tableName]))
	}
	return nil
}

// RecordsInWindow returns every record for the query with a timestamp
// in [from, to], oldest first.
func (s *SentimentStore) RecordsInWindow(ctx context.Context, query string, from, to time.Time) ([]models.SentimentRecord, error) {
	// "#" sorts below and "~" above every range-key character, so the
	// bounds are inclusive of both endpoint timestamps.
	fromKey := from.UTC().Format(tsKeyFormat)
	toKey := to.UTC().Format(tsKeyFormat) + "~"

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#q = :query AND ts_id BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#q": "query",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":query": &types.AttributeValueMemberS{Value: query},
			":from":  &types.AttributeValueMemberS{Value: fromKey},
			":to":    &types.AttributeValueMemberS{Value: toKey},
		},
	}

	var records []models.SentimentRecord
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[SentimentStore] Window query failed: %w", err)
		}

		var page []models.SentimentRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[SentimentStore] Failed to unmarshal record page: %w", err)
		}
		records = append(records, page...)
	}

	slog.Debug("[SentimentStore] Window query complete",
		slog.String("query", query),
		slog.Int("count", len(records)))
	return records, nil
}

// Recent returns up to limit of the newest records for the query,
// newest first.
func (s *SentimentStore) Recent(ctx context.Context, query string, limit int) ([]models.SentimentRecord, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#q = :query"),
		ExpressionAttributeNames: map[string]string{
			"#q": "query",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":query": &types.AttributeValueMemberS{Value: query},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("[SentimentStore] Recent query failed: %w", err)
	}

	var records []models.SentimentRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("[SentimentStore] Failed to unmarshal recent records: %w", err)
	}
	return records, nil
}

// DeleteOlderThan removes every record for the query older than the
// cutoff and returns how many were deleted.
func (s *SentimentStore) DeleteOlderThan(ctx context.Context, query string, cutoff time.Time) (int, error) {
	stale, err := s.RecordsInWindow(ctx, query, time.Unix(0, 0).UTC(), cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	deleted := 0
	for i := 0; i < len(stale); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(stale) {
			end = len(stale)
		}

		deleteRequests := make([]types.WriteRequest, 0, end-i)
		for _, record := range stale[i:end] {
			deleteRequests = append(deleteRequests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"query": &types.AttributeValueMemberS{Value: record.Query},
						"ts_id": &types.AttributeValueMemberS{Value: rangeKey(record)},
					},
				},
			})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: deleteRequests,
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("[SentimentStore] Failed to batch delete records: %w", err)
		}
		deleted += (end - i) - len(out.UnprocessedItems[s.tableName])
	}

	slog.Info("[SentimentStore] Deleted stale records",
		slog.String("query", query),
		slog.Int("count", deleted))
	return deleted, nil
}
