package command

import (
	"errors"
	"fmt"
	"strings"

	"command-server/internal/domain/action"
	"command-server/internal/domain/game"
)

var (
	// ErrInvalidCommand コマンド定義が無効
	ErrInvalidCommand = errors.New("invalid command")
	// ErrDuplicateTrigger トリガーがカタログ内で重複
	ErrDuplicateTrigger = errors.New("duplicate trigger")
	// ErrCommandNotFound コマンドが見つからない
	ErrCommandNotFound = errors.New("command not found")
)

// Command チャットのトリガーに紐づくアクション列
type Command struct {
	ID           string
	Name         string
	Triggers     []string
	Actions      []action.Action
	Requirements RequirementSet
	Enabled      bool
	Game         *game.Settings
}

// IsGame ゲームコマンドかどうかを返す
func (c *Command) IsGame() bool {
	return c.Game != nil
}

// NormalizeTrigger トリガーを比較用に正規化
func NormalizeTrigger(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Validate コマンド定義を検証
func (c *Command) Validate() error {
	if c.ID == "" || c.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidCommand)
	}
	if len(c.Triggers) == 0 {
		return fmt.Errorf("%w: %s has no triggers", ErrInvalidCommand, c.Name)
	}
	seen := make(map[string]struct{}, len(c.Triggers))
	for _, t := range c.Triggers {
		n := NormalizeTrigger(t)
		if n == "" || strings.ContainsAny(n, " \t") {
			return fmt.Errorf("%w: %s has an invalid trigger %q", ErrInvalidCommand, c.Name, t)
		}
		if _, ok := seen[n]; ok {
			return fmt.Errorf("%w: %q repeated in %s", ErrDuplicateTrigger, t, c.Name)
		}
		seen[n] = struct{}{}
	}
	for i, a := range c.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s action %d: %w", c.Name, i, err)
		}
	}
	if err := c.Requirements.Validate(); err != nil {
		return err
	}
	if c.Game != nil {
		if err := c.Game.Validate(); err != nil {
			return err
		}
		if c.Requirements.Currency == nil && c.Game.Type.Playable() {
			return fmt.Errorf("%w: game %s needs a currency requirement", ErrInvalidCommand, c.Name)
		}
	}
	return nil
}
