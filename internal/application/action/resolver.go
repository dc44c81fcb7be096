package action

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
)

var tokenRegex = regexp.MustCompile(`\$[a-zA-Z][a-zA-Z0-9_]*`)

// AssetCache リモートアセットのローカルキャッシュ
type AssetCache interface {
	// Fetch URLの内容を取得してローカルパスを返す（取得済みならそのまま返す）
	Fetch(ctx context.Context, url string) (string, error)
}

// Resolver アクションのパラメータ中のプレースホルダを解決する
// 同じ呼び出し内で同じトークンは常に同じ値になる
type Resolver struct {
	assets AssetCache
	rng    port.RNG
}

// NewResolver 新しいResolverを作成
func NewResolver(assets AssetCache, rng port.RNG) *Resolver {
	return &Resolver{assets: assets, rng: rng}
}

// Resolve テキスト中の $token を置換する。未知のトークンはそのまま残す
func (r *Resolver) Resolve(ctx context.Context, text string, p *command.Parameters) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}

	var firstErr error
	out := tokenRegex.ReplaceAllStringFunc(text, func(token string) string {
		if firstErr != nil {
			return token
		}
		v, ok, err := r.value(ctx, strings.ToLower(token[1:]), p)
		if err != nil {
			firstErr = err
			return token
		}
		if !ok {
			return token
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveAsset 値を解決し、http(s)のURLならキャッシュ済みのローカルパスに置き換える
func (r *Resolver) ResolveAsset(ctx context.Context, text string, p *command.Parameters) (string, error) {
	v, err := r.Resolve(ctx, text, p)
	if err != nil {
		return "", err
	}
	if r.assets == nil || !(strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")) {
		return v, nil
	}
	return p.Memoize("asset:"+v, func() (string, error) {
		return r.assets.Fetch(ctx, v)
	})
}

func (r *Resolver) value(ctx context.Context, name string, p *command.Parameters) (string, bool, error) {
	if v, ok := p.Identifier(name); ok {
		return v, true, nil
	}

	u := p.User
	t := p.Target
	switch name {
	case "user", "username":
		if u != nil {
			return u.Username, true, nil
		}
	case "usermention":
		if u != nil {
			return u.Mention(), true, nil
		}
	case "userid":
		if u != nil {
			return u.ID, true, nil
		}
	case "userrole":
		if u != nil {
			return u.Role.String(), true, nil
		}
	case "platform":
		return p.Platform.String(), true, nil
	case "channel":
		return p.Channel, true, nil
	case "targetuser", "targetusername":
		if t != nil {
			return t.Username, true, nil
		}
	case "targetuserid":
		if t != nil {
			return t.ID, true, nil
		}
	case "allargs":
		return strings.Join(p.Args, " "), true, nil
	case "argcount":
		return strconv.Itoa(len(p.Args)), true, nil
	case "date":
		return p.TriggeredAt.Format("2006-01-02"), true, nil
	case "time":
		return p.TriggeredAt.Format("15:04"), true, nil
	case "datetime":
		return p.TriggeredAt.Format("2006-01-02 15:04"), true, nil
	case "randomnumber":
		v, err := p.Memoize("randomnumber", func() (string, error) {
			return strconv.Itoa(r.rng.IntN(100) + 1), nil
		})
		return v, err == nil, err
	}

	if n, ok := argIndex(name); ok {
		if arg, ok := p.Arg(n); ok {
			return arg, true, nil
		}
	}
	return "", false, nil
}

// argIndex "argN" のNを返す
func argIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "arg")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
