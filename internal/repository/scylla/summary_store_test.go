package scylla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketDate(t *testing.T) {
	late := time.Date(2025, 1, 29, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	assert.Equal(t, time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC), bucketDate(late))

	noon := time.Date(2025, 1, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC), bucketDate(noon))
}
