package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// deleteBatch is the S3 limit for keys per DeleteObjects call.
const deleteBatch = 1000

// S3Store addresses objects with s3://, s3a:// or s3n:// URIs.
type S3Store struct {
	Client S3API
}

func NewS3Store(client S3API) *S3Store {
	return &S3Store{Client: client}
}

func (s *S3Store) Glob(ctx context.Context, pattern string) ([]string, error) {
	loc, err := ParseObjectURI(pattern)
	if err != nil {
		return nil, err
	}
	if _, err := path.Match(loc.Key, ""); err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	keys, err := s.list(ctx, loc.Bucket, staticPrefix(loc.Key))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, k := range keys {
		if ok, _ := path.Match(loc.Key, k); ok {
			out = append(out, ObjectLocation{Scheme: loc.Scheme, Bucket: loc.Bucket, Key: k}.String())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	loc, err := ParseObjectURI(name)
	if err != nil {
		return nil, err
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return out.Body, nil
}

// Replace deletes every object under dest/ and uploads localDir in its
// place. Object stores have no rename, so readers may briefly see an
// empty prefix.
func (s *S3Store) Replace(ctx context.Context, dest, localDir string) error {
	loc, err := ParseObjectURI(dest)
	if err != nil {
		return err
	}
	prefix := strings.TrimSuffix(loc.Key, "/") + "/"

	existing, err := s.list(ctx, loc.Bucket, prefix)
	if err != nil {
		return err
	}
	if err := s.deleteKeys(ctx, loc.Bucket, existing); err != nil {
		return err
	}

	return filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		return s.upload(ctx, loc.Bucket, prefix+filepath.ToSlash(rel), p)
	})
}

func (s *S3Store) list(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) deleteKeys(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			return fmt.Errorf("delete from s3://%s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete s3://%s/%s: %s", bucket, aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}
	return nil
}

func (s *S3Store) upload(ctx context.Context, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
