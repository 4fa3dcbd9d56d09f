//go:build integration

package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/cloo-solutions/docrag/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_Integration(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)

	c, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSCredential,
		SecretAccessKey: testutil.RustFSCredential,
		Bucket:          "docrag-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, c.EnsureBucket(ctx))

	require.NoError(t, c.PutObject(ctx, "documents/1/a.txt", strings.NewReader("a"), "text/plain"))
	require.NoError(t, c.PutObject(ctx, "documents/1/b.txt", strings.NewReader("b"), "text/plain"))
	require.NoError(t, c.DeletePrefix(ctx, "documents/1/"))
	require.NoError(t, c.DeletePrefix(ctx, "documents/1/"))
	assert.Error(t, c.DeletePrefix(ctx, ""))
}
