package game

import (
	"context"
	"errors"
	"fmt"

	"command-server/internal/domain/command"
	"command-server/internal/domain/game"
)

// ErrUnsupportedGame 実行エンジンが未実装のゲーム
var ErrUnsupportedGame = errors.New("unsupported game type")

// Runner ゲームコマンドのランナー
type Runner interface {
	Play(ctx context.Context, p *command.Parameters) error
}

// NewRunner ゲームの種類に応じたランナーを作成
func NewRunner(cmd *command.Command, rt Runtime) (Runner, error) {
	if cmd.Game == nil {
		return nil, fmt.Errorf("%w: %s is not a game", ErrUnsupportedGame, cmd.ID)
	}
	switch cmd.Game.Type {
	case game.TypeDuel:
		return NewDuel(cmd, rt)
	case game.TypeSpin:
		return NewSpin(cmd, rt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGame, cmd.Game.Type)
	}
}
