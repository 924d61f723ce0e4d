package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"redis":  NewRedis(client, ""),
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name+"/Newest first", func(t *testing.T) {
			require.NoError(t, s.Clear(ctx))

			first, err := s.Append(ctx, "first")
			require.NoError(t, err)
			_, err = s.Append(ctx, "second")
			require.NoError(t, err)

			got, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "second", got[0].Text)
			assert.Equal(t, "first", got[1].Text)
			assert.Equal(t, first.ID, got[1].ID)
			assert.NotEqual(t, got[0].ID, got[1].ID)
		})

		t.Run(name+"/Capped", func(t *testing.T) {
			require.NoError(t, s.Clear(ctx))

			for i := 0; i < MaxEntries+5; i++ {
				_, err := s.Append(ctx, fmt.Sprintf("msg-%d", i))
				require.NoError(t, err)
			}

			got, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, MaxEntries)
			assert.Equal(t, fmt.Sprintf("msg-%d", MaxEntries+4), got[0].Text)
			assert.Equal(t, "msg-5", got[MaxEntries-1].Text)
		})

		t.Run(name+"/Clear", func(t *testing.T) {
			_, err := s.Append(ctx, "x")
			require.NoError(t, err)
			require.NoError(t, s.Clear(ctx))

			got, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestMemory_ListIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Append(ctx, "a")
	require.NoError(t, err)

	got, _ := m.List(ctx)
	got[0].Text = "changed"

	again, _ := m.List(ctx)
	assert.Equal(t, "a", again[0].Text)
}
