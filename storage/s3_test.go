package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"recipe-hand/config"
)

func TestBucketObjectURL(t *testing.T) {
	b := NewBucket(nil, config.S3Config{Endpoint: "https://s3.example.com/", Bucket: "recipes"})
	assert.Equal(t, "https://s3.example.com/recipes/uploads/recipe/a.png", b.ObjectURL("/uploads/recipe/a.png"))

	b = NewBucket(nil, config.S3Config{Endpoint: "https://s3.example.com", PublicURL: "https://cdn.example.com", Bucket: "recipes"})
	assert.Equal(t, "https://cdn.example.com/recipes/a.png", b.ObjectURL("a.png"))
}

func TestExpiredKeepsNewest(t *testing.T) {
	now := time.Now()
	objects := []Object{
		{Key: "backup-1", LastModified: now.Add(-3 * time.Hour)},
		{Key: "backup-3", LastModified: now.Add(-1 * time.Hour)},
		{Key: "backup-2", LastModified: now.Add(-2 * time.Hour)},
	}
	SortNewestFirst(objects)

	expired := Expired(objects, 2)
	if assert.Len(t, expired, 1) {
		assert.Equal(t, "backup-1", expired[0].Key)
	}
	assert.Empty(t, Expired(objects, 3))
	assert.Len(t, Expired(objects, -1), 3)
}
