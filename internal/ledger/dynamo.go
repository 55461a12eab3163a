package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoLedger.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoLedger keeps manifests in a DynamoDB table keyed by run_id, for
// runs that publish to shared storage.
type DynamoLedger struct {
	client DynamoAPI
	table  string
}

func NewDynamo(client DynamoAPI, table string) *DynamoLedger {
	return &DynamoLedger{client: client, table: table}
}

func (l *DynamoLedger) Begin(ctx context.Context, m *Manifest) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("run_id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(l.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return fmt.Errorf("%w: %s", ErrRunExists, m.RunID)
	}
	if err != nil {
		return fmt.Errorf("put manifest %s: %w", m.RunID, err)
	}
	return nil
}

func (l *DynamoLedger) Finish(ctx context.Context, m *Manifest) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put manifest %s: %w", m.RunID, err)
	}
	return nil
}

func (l *DynamoLedger) List(ctx context.Context) ([]Manifest, error) {
	var out []Manifest
	p := dynamodb.NewScanPaginator(l.client, &dynamodb.ScanInput{TableName: aws.String(l.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.table, err)
		}
		var batch []Manifest
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal manifests: %w", err)
		}
		out = append(out, batch...)
	}
	sortNewestFirst(out)
	return out, nil
}

func (l *DynamoLedger) Close() error {
	return nil
}
