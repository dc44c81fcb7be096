package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"command-server/internal/domain/user"
	"command-server/internal/infrastructure/random"
)

func TestTracker(t *testing.T) {
	base := time.Now()
	tr := NewTracker(time.Minute)
	tr.now = func() time.Time { return base }

	alice := &user.User{ID: "1", Username: "Alice", Platform: user.PlatformTwitch, Role: user.RoleUser}
	bob := &user.User{ID: "2", Username: "bob", Platform: user.PlatformTwitch, Role: user.RoleVIP}
	carol := &user.User{ID: "3", Username: "carol", Platform: user.PlatformYouTube, Role: user.RoleUser}

	tr.Touch(alice)
	tr.Touch(bob)
	tr.Touch(carol)
	tr.Touch(nil)

	t.Run("正常系: @付き・大文字小文字を無視して検索", func(t *testing.T) {
		u, ok := tr.Lookup(user.PlatformTwitch, "@alice")
		require.True(t, ok)
		assert.Equal(t, "1", u.ID)
	})

	t.Run("異常系: 別プラットフォームは見つからない", func(t *testing.T) {
		_, ok := tr.Lookup(user.PlatformTwitch, "carol")
		assert.False(t, ok)
	})

	t.Run("正常系: 自分以外から無作為に選ぶ", func(t *testing.T) {
		rng := random.NewSeeded(1)
		for i := 0; i < 20; i++ {
			u, ok := tr.Random(user.PlatformTwitch, alice, rng)
			require.True(t, ok)
			assert.Equal(t, "bob", u.Username)
		}
	})

	t.Run("正常系: 期限切れは除外", func(t *testing.T) {
		tr.now = func() time.Time { return base.Add(30 * time.Second) }
		tr.Touch(bob)
		tr.now = func() time.Time { return base.Add(90 * time.Second) }

		_, ok := tr.Lookup(user.PlatformTwitch, "alice")
		assert.False(t, ok)
		assert.Len(t, tr.Active(user.PlatformTwitch), 1)

		_, ok = tr.Random(user.PlatformTwitch, bob, random.NewSeeded(1))
		assert.False(t, ok)

		assert.Equal(t, 2, tr.Sweep())
	})
}
