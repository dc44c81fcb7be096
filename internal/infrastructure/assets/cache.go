// Package assets リモートアセット（画像・音声）のローカルキャッシュ
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"command-server/internal/application/action"
)

var _ action.AssetCache = (*Cache)(nil)

// Cache URLの内容をディレクトリに保存し、ローカルパスを返す
// 同じURLの同時取得は1回にまとめる
type Cache struct {
	dir    string
	client *http.Client
	group  singleflight.Group

	mu    sync.RWMutex
	paths map[string]string
}

// NewCache 新しいCacheを作成
func NewCache(dir string, client *http.Client) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		dir:    dir,
		client: client,
		paths:  make(map[string]string),
	}, nil
}

// Fetch URLの内容を取得してローカルパスを返す
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	c.mu.RLock()
	p, ok := c.paths[rawURL]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := c.group.Do(rawURL, func() (interface{}, error) {
		return c.download(ctx, rawURL)
	})
	if err != nil {
		return "", err
	}
	p = v.(string)

	c.mu.Lock()
	c.paths[rawURL] = p
	c.mu.Unlock()
	return p, nil
}

func (c *Cache) download(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse asset url: %w", err)
	}
	sum := sha256.Sum256([]byte(rawURL))
	dst := filepath.Join(c.dir, hex.EncodeToString(sum[:16])+path.Ext(u.Path))

	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build asset request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("asset request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset returned %s", resp.Status)
	}

	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return dst, nil
}
