package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opiniq/sentilens/internal/db"
)

type countingDynamo struct {
	calls int
}

func (c *countingDynamo) BatchWriteItem(_ context.Context, _ *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	c.calls++
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (c *countingDynamo) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.calls++
	return &dynamodb.QueryOutput{}, nil
}

func TestRunCleanup_RequiresQuery(t *testing.T) {
	client := &countingDynamo{}
	store := db.NewSentimentStore(client, "")

	_, err := runCleanup(context.Background(), store, "", 30)
	require.Error(t, err)
	assert.Zero(t, client.calls)
}

func TestRunCleanup_DeletesForQuery(t *testing.T) {
	client := &countingDynamo{}
	store := db.NewSentimentStore(client, "")

	deleted, err := runCleanup(context.Background(), store, "widgets", 30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NotZero(t, client.calls)
}
