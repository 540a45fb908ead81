package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhanapp/bandhan-server/internal/utils/pagination"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := pagination.Cursor{MessageID: "msg-123", SentUnix: 1724800000000}

	token, err := pagination.Encode(in)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	out, err := pagination.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeEmptyTokenIsFirstPage(t *testing.T) {
	c, err := pagination.Decode("")
	require.NoError(t, err)
	assert.Equal(t, pagination.Cursor{}, c)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := pagination.Decode("!!!not-base64!!!")
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)

	// Valid base64 but not a cursor payload.
	_, err = pagination.Decode("bm90LWpzb24")
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}
