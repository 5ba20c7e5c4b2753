package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeys(t *testing.T) {
	key := Key{PersonID: "p1", Date: "2024_05_01", Site: "PRA Group"}
	assert.Equal(t, "p1/2024_05_01/PRA Group_extracted_data.json", objectKey(key))
	assert.Equal(t, "p1/2024_05_01/PRA Group_extracted_data_unvalidated.json", unvalidatedObjectKey(key))
}

func TestNewMinIO_InvalidEndpoint(t *testing.T) {
	_, err := NewMinIO(MinIOConfig{Endpoint: "bad endpoint:9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio: create client")
}

// TestMinIOStore_Contract runs against a live server when DEBT_TEST_MINIO_ENDPOINT is set.
func TestMinIOStore_Contract(t *testing.T) {
	endpoint := os.Getenv("DEBT_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("DEBT_TEST_MINIO_ENDPOINT not set")
	}
	s, err := NewMinIO(MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("DEBT_TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("DEBT_TEST_MINIO_SECRET_KEY"),
		Bucket:    "debt-test-" + uuid.New().String()[:8],
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	exerciseStore(t, s)
}
