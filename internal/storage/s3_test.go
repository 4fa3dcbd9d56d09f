package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in a map and pages listings two keys at a time.
type fakeS3 struct {
	objects      map[string]string
	contentTypes map[string]string
	bucketExists bool
	createErr    error
	deleteCalls  int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(data)
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleteCalls++
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketExists {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	if len(keys) > 2 {
		keys = keys[:2]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Client_PutObject(t *testing.T) {
	fake := newFakeS3()
	c := &S3Client{client: fake, bucket: "b"}

	require.NoError(t, c.PutObject(context.Background(), "documents/1/a.txt", io.NopCloser(strings.NewReader("hello")), "text/plain"))
	assert.Equal(t, "hello", fake.objects["documents/1/a.txt"])
	assert.Equal(t, "text/plain", fake.contentTypes["documents/1/a.txt"])
}

func TestS3Client_DeletePrefix(t *testing.T) {
	fake := newFakeS3()
	for _, k := range []string{"documents/1/a", "documents/1/b", "documents/1/c", "documents/10/a", "documents/2/a"} {
		fake.objects[k] = "x"
	}
	c := &S3Client{client: fake, bucket: "b"}

	require.NoError(t, c.DeletePrefix(context.Background(), "documents/1/"))

	assert.Equal(t, map[string]string{"documents/10/a": "x", "documents/2/a": "x"}, fake.objects)
	assert.Equal(t, 2, fake.deleteCalls, "one batch per listed page")

	assert.Error(t, c.DeletePrefix(context.Background(), ""))
	assert.Len(t, fake.objects, 2)
}

func TestS3Client_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	fake := newFakeS3()
	c := &S3Client{client: fake, bucket: "b"}
	require.NoError(t, c.EnsureBucket(ctx))
	assert.True(t, fake.bucketExists)
	require.NoError(t, c.EnsureBucket(ctx))

	fake = newFakeS3()
	fake.createErr = &types.BucketAlreadyOwnedByYou{}
	c = &S3Client{client: fake, bucket: "b"}
	assert.NoError(t, c.EnsureBucket(ctx))

	fake = newFakeS3()
	fake.createErr = errors.New("denied")
	c = &S3Client{client: fake, bucket: "b"}
	assert.ErrorContains(t, c.EnsureBucket(ctx), "denied")
}
