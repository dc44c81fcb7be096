package game

import (
	"fmt"
	"strings"
)

// Type ゲームの種類
type Type string

const (
	TypeBeachBall       Type = "beachball"
	TypeBet             Type = "bet"
	TypeBid             Type = "bid"
	TypeCoinPusher      Type = "coinpusher"
	TypeDuel            Type = "duel"
	TypeHangman         Type = "hangman"
	TypeHeist           Type = "heist"
	TypeHitman          Type = "hitman"
	TypeHotPotato       Type = "hotpotato"
	TypeLockBox         Type = "lockbox"
	TypeRoulette        Type = "roulette"
	TypeRussianRoulette Type = "russianroulette"
	TypeSlotMachine     Type = "slotmachine"
	TypeSpin            Type = "spin"
	TypeSteal           Type = "steal"
	TypeTreasureDefense Type = "treasuredefense"
	TypeTrivia          Type = "trivia"
	TypeVolcano         Type = "volcano"
	TypeWordScramble    Type = "wordscramble"
)

var allTypes = []Type{
	TypeBeachBall, TypeBet, TypeBid, TypeCoinPusher, TypeDuel, TypeHangman,
	TypeHeist, TypeHitman, TypeHotPotato, TypeLockBox, TypeRoulette,
	TypeRussianRoulette, TypeSlotMachine, TypeSpin, TypeSteal,
	TypeTreasureDefense, TypeTrivia, TypeVolcano, TypeWordScramble,
}

// NewType 文字列からTypeを作成
func NewType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid game type: %s", s)
}

// String 文字列表現を返す
func (t Type) String() string {
	return string(t)
}

// Playable 実行エンジンが実装済みかどうかを返す
func (t Type) Playable() bool {
	return t == TypeDuel || t == TypeSpin
}

// SelectionType 対戦相手の選び方
type SelectionType string

const (
	SelectionTargeted SelectionType = "targeted" // 引数で指定
	SelectionRandom   SelectionType = "random"   // アクティブな視聴者から無作為
)

// NewSelectionType 文字列からSelectionTypeを作成
func NewSelectionType(s string) (SelectionType, error) {
	switch st := SelectionType(strings.ToLower(s)); st {
	case "", SelectionTargeted:
		return SelectionTargeted, nil
	case SelectionRandom:
		return SelectionRandom, nil
	default:
		return "", fmt.Errorf("invalid selection type: %s", s)
	}
}
