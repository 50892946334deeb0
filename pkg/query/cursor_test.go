package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/authdb/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		Positions: []string{"p1", "", "p3"},
		Index:     "by_user_id",
		Sort:      "asc",
	}
	encoded, err := EncodeCursor(in)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	out, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestEncodeCursorEmptyPositions(t *testing.T) {
	encoded, err := EncodeCursor(Cursor{Index: "by_user_id"})
	require.NoError(t, err)
	assert.Empty(t, encoded)
}

func TestDecodeCursorEmptyIsNil(t *testing.T) {
	out, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidCursor)
}

func TestResumePositionsShapeChecks(t *testing.T) {
	encoded, err := EncodeCursor(Cursor{
		Positions: []string{"p1", "p2"},
		Index:     "by_user_id",
		Sort:      "asc",
	})
	require.NoError(t, err)

	t.Run("matching shape", func(t *testing.T) {
		positions, err := resumePositions(encoded, 2, "by_user_id", "asc")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2"}, positions)
	})

	t.Run("empty cursor yields blank positions", func(t *testing.T) {
		positions, err := resumePositions("", 3, "by_user_id", "asc")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "", ""}, positions)
	})

	t.Run("different index rejected", func(t *testing.T) {
		_, err := resumePositions(encoded, 2, "by_email", "asc")
		assert.ErrorIs(t, err, errors.ErrInvalidCursor)
	})

	t.Run("different sort rejected", func(t *testing.T) {
		_, err := resumePositions(encoded, 2, "by_user_id", "desc")
		assert.ErrorIs(t, err, errors.ErrInvalidCursor)
	})

	t.Run("scan count mismatch rejected", func(t *testing.T) {
		_, err := resumePositions(encoded, 3, "by_user_id", "asc")
		assert.ErrorIs(t, err, errors.ErrInvalidCursor)
	})
}
