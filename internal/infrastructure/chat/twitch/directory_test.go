package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

type helixUser struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type sentWhisper struct {
	from, to, message string
}

type fakeHelix struct {
	users       map[string]helixUser
	userLookups atomic.Int32
	whispers    []sentWhisper
}

func (f *fakeHelix) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		f.userLookups.Add(1)
		data := []helixUser{}
		for _, login := range r.URL.Query()["login"] {
			if u, ok := f.users[login]; ok {
				data = append(data, u)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	})
	mux.HandleFunc("/whispers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.whispers = append(f.whispers, sentWhisper{
			from:    r.URL.Query().Get("from_user_id"),
			to:      r.URL.Query().Get("to_user_id"),
			message: body.Message,
		})
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestDirectory(t *testing.T) (*Directory, *fakeHelix) {
	t.Helper()
	fake := &fakeHelix{users: map[string]helixUser{
		"bot": {ID: "100", Login: "bot", DisplayName: "Bot"},
		"bob": {ID: "2", Login: "bob", DisplayName: "Bob"},
		"eve": {ID: "5", Login: "eve"},
	}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	dir, err := NewDirectory(HelixConfig{
		ClientID:    "client-id",
		AccessToken: "token",
		APIBaseURL:  srv.URL,
	}, otelinfra.NewNopLogger())
	require.NoError(t, err)
	return dir, fake
}

func TestDirectory_LookupUser(t *testing.T) {
	tests := []struct {
		name     string
		platform user.Platform
		username string
		want     *user.User
	}{
		{
			name:     "正常系: 表示名で返す",
			platform: user.PlatformTwitch,
			username: "@Bob",
			want:     &user.User{ID: "2", Username: "Bob", Platform: user.PlatformTwitch, Role: user.RoleUser},
		},
		{
			name:     "正常系: 表示名がなければログイン名",
			platform: user.PlatformTwitch,
			username: "eve",
			want:     &user.User{ID: "5", Username: "eve", Platform: user.PlatformTwitch, Role: user.RoleUser},
		},
		{name: "異常系: 存在しないユーザー", platform: user.PlatformTwitch, username: "nobody"},
		{name: "異常系: 他プラットフォーム", platform: user.PlatformYouTube, username: "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, _ := newTestDirectory(t)

			got, ok := dir.LookupUser(context.Background(), tt.platform, tt.username)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectory_LookupUserCachesHits(t *testing.T) {
	dir, fake := newTestDirectory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok := dir.LookupUser(ctx, user.PlatformTwitch, "bob")
		require.True(t, ok)
	}
	assert.Equal(t, int32(1), fake.userLookups.Load())

	// 見つからなかった名前はキャッシュしない
	dir.LookupUser(ctx, user.PlatformTwitch, "nobody")
	dir.LookupUser(ctx, user.PlatformTwitch, "nobody")
	assert.Equal(t, int32(3), fake.userLookups.Load())
}

func TestDirectory_Whisper(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		wantErr error
		want    []sentWhisper
	}{
		{
			name: "正常系: ユーザーIDで送信",
			to:   "bob",
			want: []sentWhisper{{from: "100", to: "2", message: "your balance is 100"}},
		},
		{name: "異常系: 宛先が存在しない", to: "nobody", wantErr: ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, fake := newTestDirectory(t)

			err := dir.Whisper(context.Background(), "bot", tt.to, "your balance is 100")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, fake.whispers)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fake.whispers)
		})
	}
}

func TestAdapter_WhisperThroughDirectory(t *testing.T) {
	dir, fake := newTestDirectory(t)
	a := NewAdapter(Config{Username: "bot", Channels: []string{"streamer"}}, nil, otelinfra.NewNopLogger()).
		WithWhisperer(dir)

	require.NoError(t, a.Whisper(context.Background(), user.PlatformTwitch, "@bob", "psst", false))
	assert.Equal(t, []sentWhisper{{from: "100", to: "2", message: "psst"}}, fake.whispers)
}
