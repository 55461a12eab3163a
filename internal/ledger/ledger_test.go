package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerLedger {
	l, err := OpenBadger(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Close()
	})
	return l
}

func manifest(id string, started time.Time) *Manifest {
	return &Manifest{RunID: id, StartedAt: started, Status: StatusRunning}
}

func TestBadgerLedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	l := newTestBadger(t)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := manifest("run-a", t0)
	require.NoError(t, l.Begin(ctx, first))
	require.NoError(t, l.Begin(ctx, manifest("run-b", t0.Add(time.Hour))))

	err := l.Begin(ctx, manifest("run-a", t0))
	assert.ErrorIs(t, err, ErrRunExists)

	first.Status = StatusSucceeded
	first.FinishedAt = t0.Add(time.Minute)
	first.Tables = map[string]int{"songs": 71, "songplays": 319}
	first.EventDateMin = "2018-11-01"
	first.EventDateMax = "2018-11-30"
	require.NoError(t, l.Finish(ctx, first))

	runs, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, "run-a", runs[1].RunID)
	assert.Equal(t, StatusSucceeded, runs[1].Status)
	assert.Equal(t, 319, runs[1].Tables["songplays"])
	assert.True(t, runs[1].FinishedAt.Equal(t0.Add(time.Minute)))
}

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := in.Item["run_id"].(*types.AttributeValueMemberS).Value
	if in.ConditionExpression != nil {
		if _, ok := f.items[id]; ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func TestDynamoLedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
	l := NewDynamo(fake, "lake-etl-runs")
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m := manifest("run-a", t0)
	require.NoError(t, l.Begin(ctx, m))
	assert.ErrorIs(t, l.Begin(ctx, manifest("run-a", t0)), ErrRunExists)

	m.Status = StatusFailed
	m.Error = "read events: boom"
	require.NoError(t, l.Finish(ctx, m))
	require.NoError(t, l.Begin(ctx, manifest("run-b", t0.Add(time.Second))))

	runs, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, "read events: boom", runs[1].Error)
}

func TestNopLedger(t *testing.T) {
	var l Ledger = Nop{}
	require.NoError(t, l.Begin(context.Background(), manifest("x", time.Now())))
	runs, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
