package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw    string
		region string
		want   string
	}{
		{"(415) 555-2671", "US", "+14155552671"},
		{"415.555.2671", "us", "+14155552671"},
		{"+1 415 555 2671", "", "+14155552671"},
		{"  +44 20 7946 0958 ", "US", "+442079460958"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.raw, tc.region)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a number", "123"} {
		_, err := Normalize(raw, "US")
		assert.ErrorIs(t, err, apperrors.ErrValidation, raw)
	}
}

func TestNormalizeItemsKeepsUnparseable(t *testing.T) {
	items := []domain.WorkItem{
		{PhoneNumber: "(415) 555-2671", FirstSentence: "Hi"},
		{PhoneNumber: "garbage"},
	}
	out := NormalizeItems(items, "US", nil)

	require.Len(t, out, 2)
	assert.Equal(t, domain.WorkItem{PhoneNumber: "+14155552671", FirstSentence: "Hi"}, out[0])
	assert.Equal(t, "garbage", out[1].PhoneNumber)
	assert.Equal(t, "(415) 555-2671", items[0].PhoneNumber)
}
