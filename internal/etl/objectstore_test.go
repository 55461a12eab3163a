package etl

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/lake-etl/internal/ledger"
	"github.com/BartekS5/lake-etl/pkg/models"
	"github.com/BartekS5/lake-etl/pkg/storage"
)

// memS3 keeps objects as "bucket/key" -> body.
type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range m.objects {
		bucket, key, _ := strings.Cut(k, "/")
		if bucket == aws.ToString(in.Bucket) && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range in.Delete.Objects {
		delete(m.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (m *memS3) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type mixedStores struct {
	remote *storage.S3Store
}

func (s mixedStores) Store(uri string) (storage.Store, error) {
	if storage.IsObjectStore(uri) {
		return s.remote, nil
	}
	return storage.NewLocalStore(), nil
}

func TestPipelinePublishesToObjectStore(t *testing.T) {
	f := newFixture(t)
	f.catalog(catalogS1)
	f.events(playSongA)
	f.cfg.OutputRoot = "s3://lake/sparkify/"

	fake := &memS3{objects: map[string][]byte{
		"lake/sparkify/log_data/plays.parquet/year=2017/month=1/old.parquet": []byte("stale"),
		"lake/sparkify/log_data/plays.parquet.bak/keep.parquet":              []byte("other"),
	}}

	p := NewPipeline(f.cfg, models.DefaultMapping(), mixedStores{remote: storage.NewS3Store(fake)}, ledger.Nop{}, nil, false)
	p.newRunID = func() string { return "run-1" }
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.Published, "s3://lake/sparkify/log_data/plays.parquet")
	assert.True(t, fake.has("lake/sparkify/log_data/plays.parquet/year=2018/month=11/part-00000-run-1.snappy.parquet"))
	assert.True(t, fake.has("lake/sparkify/log_data/plays.parquet/_SUCCESS"))
	assert.True(t, fake.has("lake/sparkify/song_data/song.parquet/release_year=2000/group_id=G1/part-00000-run-1.snappy.parquet"))
	assert.False(t, fake.has("lake/sparkify/log_data/plays.parquet/year=2017/month=1/old.parquet"))
	assert.True(t, fake.has("lake/sparkify/log_data/plays.parquet.bak/keep.parquet"))
}
