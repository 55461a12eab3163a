package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte // "bucket/key"
}

func newFakeS3(keys ...string) *fakeS3 {
	f := &fakeS3{objects: make(map[string][]byte)}
	for _, k := range keys {
		f.objects[k] = []byte("{}")
	}
	return f
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	var keys []string
	for k := range f.objects {
		bucket, key, _ := strings.Cut(k, "/")
		if bucket == aws.ToString(in.Bucket) && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestParseObjectURI(t *testing.T) {
	loc, err := ParseObjectURI("s3a://udacity-dend/song_data/*/*/*/*.json")
	require.NoError(t, err)
	assert.Equal(t, ObjectLocation{Scheme: "s3a", Bucket: "udacity-dend", Key: "song_data/*/*/*/*.json"}, loc)
	assert.Equal(t, "s3a://udacity-dend/song_data/*/*/*/*.json", loc.String())

	_, err = ParseObjectURI("data/song_data")
	assert.Error(t, err)
	_, err = ParseObjectURI("s3://")
	assert.Error(t, err)

	assert.True(t, IsObjectStore("s3n://b/k"))
	assert.False(t, IsObjectStore("file:///tmp/x"))
}

func TestS3GlobMatchesPerSegment(t *testing.T) {
	fake := newFakeS3(
		"udacity-dend/song_data/A/A/A/TRAAAAW128F429D538.json",
		"udacity-dend/song_data/A/B/C/TRABCEI128F424C983.json",
		"udacity-dend/song_data/A/A/TRAAAAA.json",
		"udacity-dend/song_data/A/A/A/notes.txt",
		"udacity-dend/log_data/2018-11-01-events.json",
	)
	store := NewS3Store(fake)

	got, err := store.Glob(context.Background(), "s3a://udacity-dend/song_data/*/*/*/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3a://udacity-dend/song_data/A/A/A/TRAAAAW128F429D538.json",
		"s3a://udacity-dend/song_data/A/B/C/TRABCEI128F424C983.json",
	}, got)

	rc, err := store.Open(context.Background(), got[0])
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}

func TestS3ReplaceOverwritesPrefix(t *testing.T) {
	fake := newFakeS3(
		"out/data/log_data/users.parquet/part-00000-old.snappy.parquet",
		"out/data/log_data/users.parquet.bak",
		"out/data/log_data/time.parquet/_SUCCESS",
	)
	local := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(local, "part-00000-new.snappy.parquet"), []byte("PAR1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(local, "_SUCCESS"), nil, 0o644))

	err := NewS3Store(fake).Replace(context.Background(), "s3://out/data/log_data/users.parquet", local)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"out/data/log_data/time.parquet/_SUCCESS",
		"out/data/log_data/users.parquet.bak",
		"out/data/log_data/users.parquet/_SUCCESS",
		"out/data/log_data/users.parquet/part-00000-new.snappy.parquet",
	}, fake.keys())
}

func TestLocalGlobAndReplace(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"song_data/A/B/C/b.json", "song_data/A/B/C/a.json", "song_data/A/B/x.json"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("{}"), 0o644))
	}

	store := NewLocalStore()
	got, err := store.Glob(context.Background(), "file://"+filepath.Join(root, "song_data", "*", "*", "*", "*.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "song_data/A/B/C/a.json"),
		filepath.Join(root, "song_data/A/B/C/b.json"),
	}, got)

	dest := filepath.Join(root, "out", "users.parquet")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.parquet"), nil, 0o644))

	staged := filepath.Join(root, ".staging", "users.parquet")
	require.NoError(t, os.MkdirAll(staged, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "fresh.parquet"), nil, 0o644))

	require.NoError(t, store.Replace(context.Background(), dest, staged))
	assert.FileExists(t, filepath.Join(dest, "fresh.parquet"))
	assert.NoFileExists(t, filepath.Join(dest, "stale.parquet"))
	assert.NoDirExists(t, staged)
	assert.NoDirExists(t, dest+".replaced")
}
