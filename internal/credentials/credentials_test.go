package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemory()

	_, err := store.Get("wechat_read_cookie")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set("wechat_read_cookie", "session=abc"))
	got, err := store.Get("wechat_read_cookie")
	require.NoError(t, err)
	assert.Equal(t, "session=abc", got)

	require.NoError(t, store.Set("wechat_read_cookie", "session=def"))
	got, err = store.Get("wechat_read_cookie")
	require.NoError(t, err)
	assert.Equal(t, "session=def", got)

	require.NoError(t, store.Delete("wechat_read_cookie"))
	_, err = store.Get("wechat_read_cookie")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	require.NoError(t, store.Delete("wechat_read_cookie"))
}
