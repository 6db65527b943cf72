package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
)

type scriptedValkey struct {
	valkey.Client
	doResults      []valkey.ValkeyResult
	doCalls        int
	doMultiResults [][]valkey.ValkeyResult
	doMultiCalls   int
}

func (s *scriptedValkey) Do(_ context.Context, _ valkey.Completed) valkey.ValkeyResult {
	res := s.doResults[s.doCalls]
	s.doCalls++
	return res
}

func (s *scriptedValkey) DoMulti(_ context.Context, _ ...valkey.Completed) []valkey.ValkeyResult {
	res := s.doMultiResults[s.doMultiCalls]
	s.doMultiCalls++
	return res
}

func (s *scriptedValkey) Close() {}

func TestDoWithRetry_BuildsCommandPerAttempt(t *testing.T) {
	transient := mock.ErrorResult(errors.New("transient failure"))
	client := &scriptedValkey{doResults: []valkey.ValkeyResult{
		transient,
		transient,
		mock.Result(mock.ValkeyInt64(1)),
	}}
	vc := &ValkeyClient{Client: client}

	builds := 0
	result := vc.DoWithRetry(context.Background(), func(valkey.Client) valkey.Completed {
		builds++
		return valkey.Completed{}
	}, 3)

	require.NoError(t, result.Error())
	// Completed commands are single-use; every attempt needs its own.
	assert.Equal(t, 3, builds)
	assert.Equal(t, 3, client.doCalls)
}

func TestDoWithRetry_StopsOnFirstSuccess(t *testing.T) {
	client := &scriptedValkey{doResults: []valkey.ValkeyResult{
		mock.Result(mock.ValkeyInt64(1)),
	}}
	vc := &ValkeyClient{Client: client}

	builds := 0
	result := vc.DoWithRetry(context.Background(), func(valkey.Client) valkey.Completed {
		builds++
		return valkey.Completed{}
	}, 3)

	require.NoError(t, result.Error())
	assert.Equal(t, 1, builds)
}

func TestDoMultiWithRetry_BuildsBatchPerAttempt(t *testing.T) {
	client := &scriptedValkey{doMultiResults: [][]valkey.ValkeyResult{
		{mock.ErrorResult(errors.New("transient failure"))},
		{mock.Result(mock.ValkeyInt64(1))},
	}}
	vc := &ValkeyClient{Client: client}

	builds := 0
	results := vc.DoMultiWithRetry(context.Background(), func(valkey.Client) []valkey.Completed {
		builds++
		return []valkey.Completed{{}}
	}, 3)

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Error())
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, client.doMultiCalls)
}

func TestSeenKey_Normalized(t *testing.T) {
	assert.Equal(t, "retrieval:seen:reddit", seenKey("Reddit"))
}
