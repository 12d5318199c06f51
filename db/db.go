package db

import (
	"github.com/jsphweid/biaxial/constants"
	"github.com/jsphweid/biaxial/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// BatchGetItem accepts at most this many keys.
const maxBatchGet = 100

// RunLog stores training run summaries in a DynamoDB table keyed by run id.
type RunLog struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func New(client dynamodbiface.DynamoDBAPI, table string) *RunLog {
	return &RunLog{client: client, table: table}
}

// NewFromEnv connects to DYNAMO_ENDPOINT. It returns nil without an error
// when no endpoint is configured, which disables run logging.
func NewFromEnv() (*RunLog, error) {
	endpoint := constants.GetDynamoEndpoint()
	if endpoint == "" {
		return nil, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(constants.GetDynamoRegion()),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create a DynamoDB session")
	}
	log.WithFields(log.Fields{"endpoint": endpoint, "table": constants.GetRunsTable()}).Debug("Using DynamoDB run log")
	return New(dynamodb.New(sess), constants.GetRunsTable()), nil
}

func (l *RunLog) Record(run model.TrainingRun) error {
	item, err := dynamodbattribute.MarshalMap(run)
	if err != nil {
		return errors.Wrap(err, "could not marshal training run")
	}
	_, err = l.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "could not put run %s", run.ID)
	}
	return nil
}

// GetRuns looks up runs by id. Ids without a record are left out.
func (l *RunLog) GetRuns(ids []string) (map[string]model.TrainingRun, error) {
	if len(ids) > maxBatchGet {
		return nil, errors.Errorf("can not get more than %d runs at once", maxBatchGet)
	}

	res := make(map[string]model.TrainingRun)
	if len(ids) == 0 {
		return res, nil
	}

	var keys []map[string]*dynamodb.AttributeValue
	for _, id := range ids {
		keys = append(keys, map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(id)},
		})
	}

	out, err := l.client.BatchGetItem(&dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			l.table: {Keys: keys},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "error from DynamoDB")
	}

	for _, item := range out.Responses[l.table] {
		var run model.TrainingRun
		if err := dynamodbattribute.UnmarshalMap(item, &run); err != nil {
			return nil, errors.Wrap(err, "could not unmarshal training run")
		}
		res[run.ID] = run
	}
	return res, nil
}
