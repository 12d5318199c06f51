package db

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/biaxial/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items in memory, keyed by PK.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items map[string]map[string]*dynamodb.AttributeValue
}

func (f *fakeDynamo) PutItem(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
	f.items[*in.Item["PK"].S] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) BatchGetItem(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
	out := &dynamodb.BatchGetItemOutput{Responses: make(map[string][]map[string]*dynamodb.AttributeValue)}
	for table, req := range in.RequestItems {
		for _, key := range req.Keys {
			if item, ok := f.items[aws.StringValue(key["PK"].S)]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func TestRecordAndGetRuns(t *testing.T) {
	fake := &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
	l := New(fake, "runs")
	run := model.TrainingRun{
		ID:         "abc",
		StartedAt:  time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2022, 7, 1, 13, 0, 0, 0, time.UTC),
		Epochs:     3,
		TotalSteps: 1200,
		BestF1:     0.5,
	}

	require.NoError(t, l.Record(run))
	// attributes take their json names, only the key is renamed
	item := fake.items["abc"]
	require.Contains(t, item, "total_steps")
	assert.Equal(t, "1200", aws.StringValue(item["total_steps"].N))
	assert.Equal(t, "abc", aws.StringValue(item["PK"].S))
	assert.NotContains(t, item, "TotalSteps")
	assert.NotContains(t, item, "id")

	runs, err := l.GetRuns([]string{"abc", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.TrainingRun{"abc": run}, runs)
}

func TestGetRunsLimits(t *testing.T) {
	l := New(&fakeDynamo{}, "runs")

	runs, err := l.GetRuns(nil)
	assert.NoError(t, err)
	assert.Empty(t, runs)

	_, err = l.GetRuns(make([]string, maxBatchGet+1))
	assert.Error(t, err)
}

func TestNewFromEnvDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("DYNAMO_ENDPOINT", "")
	l, err := NewFromEnv()
	assert.NoError(t, err)
	assert.Nil(t, l)
}
