package command

import (
	"fmt"
	"time"

	"command-server/internal/domain/user"
)

// RequirementKind 要件の種類
type RequirementKind string

const (
	RequirementRole     RequirementKind = "role"
	RequirementCooldown RequirementKind = "cooldown"
	RequirementCurrency RequirementKind = "currency"
)

// String 文字列表現を返す
func (k RequirementKind) String() string {
	return string(k)
}

// RequirementSet コマンド実行の前提条件
// 全て満たした場合のみ実行できる
type RequirementSet struct {
	Role     *RoleRequirement
	Cooldown *CooldownRequirement
	Currency *CurrencyRequirement
}

// RoleRequirement 最低権限
type RoleRequirement struct {
	Minimum user.Role
}

// CooldownScope クールダウンの適用範囲
type CooldownScope string

const (
	CooldownGlobal  CooldownScope = "global"
	CooldownPerUser CooldownScope = "per_user"
)

// CooldownRequirement クールダウン
type CooldownRequirement struct {
	Duration time.Duration
	Scope    CooldownScope
}

// Key クールダウン状態を保持するキーを返す
func (c *CooldownRequirement) Key(commandID string, u *user.User) string {
	if c.Scope == CooldownPerUser && u != nil {
		return commandID + ":" + string(u.Platform) + ":" + u.ID
	}
	return commandID
}

// CurrencyRequirement 通貨コスト
// Betがtrueの場合は引数から賭け金を決める
type CurrencyRequirement struct {
	CurrencyID string
	Amount     int64
	Bet        bool
	Min        int64
	Max        int64
}

// Validate 要件定義を検証
func (r RequirementSet) Validate() error {
	if r.Cooldown != nil {
		if r.Cooldown.Duration < 0 {
			return fmt.Errorf("%w: negative cooldown", ErrInvalidCommand)
		}
		if r.Cooldown.Scope != CooldownGlobal && r.Cooldown.Scope != CooldownPerUser {
			return fmt.Errorf("%w: invalid cooldown scope %q", ErrInvalidCommand, r.Cooldown.Scope)
		}
	}
	if c := r.Currency; c != nil {
		if c.CurrencyID == "" {
			return fmt.Errorf("%w: currency id is required", ErrInvalidCommand)
		}
		if c.Amount < 0 || c.Min < 0 || c.Max < 0 {
			return fmt.Errorf("%w: negative currency amount", ErrInvalidCommand)
		}
		if c.Bet && c.Max > 0 && c.Min > c.Max {
			return fmt.Errorf("%w: bet min exceeds max", ErrInvalidCommand)
		}
	}
	return nil
}
