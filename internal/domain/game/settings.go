package game

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"command-server/internal/domain/action"
	"command-server/internal/domain/user"
)

var (
	// ErrInvalidSettings ゲーム設定が無効
	ErrInvalidSettings = errors.New("invalid game settings")
)

// 特殊識別子名
const (
	IdentifierBet            = "gamebet"
	IdentifierPayout         = "gamepayout"
	IdentifierTargetUser     = "targetuser"
	IdentifierTargetUsername = "targetusername"
)

// Settings ゲームコマンドの設定
type Settings struct {
	Type Type
	Duel *DuelSettings
	Spin *SpinSettings
}

// Outcome 結果ごとの確率とアクション
type Outcome struct {
	Name string
	// RoleProbabilities ロールごとの成功確率（0〜1）
	RoleProbabilities map[user.Role]float64
	// Multiplier 払い戻し倍率（Spinのみ使用）
	Multiplier float64
	Actions    []action.Action
}

// ProbabilityFor ユーザーのロールに対する確率を返す
// 該当ロールが未設定の場合は、ユーザーのロール以下で最も強いロールの値を使う
func (o Outcome) ProbabilityFor(role user.Role) float64 {
	if p, ok := o.RoleProbabilities[role]; ok {
		return p
	}
	roles := make([]user.Role, 0, len(o.RoleProbabilities))
	for r := range o.RoleProbabilities {
		if r <= role {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return 0
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] > roles[j] })
	return o.RoleProbabilities[roles[0]]
}

// DuelSettings 決闘ゲーム設定
type DuelSettings struct {
	TimeLimit     time.Duration
	SelectionType SelectionType

	Started     []action.Action
	NotAccepted []action.Action
	Success     Outcome
	Failed      []action.Action
}

// SpinSettings スピンゲーム設定
// Outcomesは順に評価され、確率の累積で1つが選ばれる
type SpinSettings struct {
	Outcomes []Outcome
}

// Validate 設定を検証
func (s *Settings) Validate() error {
	if s == nil {
		return nil
	}
	if _, err := NewType(string(s.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	switch s.Type {
	case TypeDuel:
		if s.Duel == nil {
			return fmt.Errorf("%w: duel settings missing", ErrInvalidSettings)
		}
		return s.Duel.validate()
	case TypeSpin:
		if s.Spin == nil {
			return fmt.Errorf("%w: spin settings missing", ErrInvalidSettings)
		}
		return s.Spin.validate()
	}
	return nil
}

func (d *DuelSettings) validate() error {
	if d.TimeLimit <= 0 {
		return fmt.Errorf("%w: duel time limit must be positive", ErrInvalidSettings)
	}
	if err := validateProbabilities(d.Success); err != nil {
		return err
	}
	return validateActions(d.Started, d.NotAccepted, d.Success.Actions, d.Failed)
}

func (s *SpinSettings) validate() error {
	if len(s.Outcomes) == 0 {
		return fmt.Errorf("%w: spin needs at least one outcome", ErrInvalidSettings)
	}
	for _, o := range s.Outcomes {
		if err := validateProbabilities(o); err != nil {
			return err
		}
		if o.Multiplier < 0 {
			return fmt.Errorf("%w: negative multiplier on %q", ErrInvalidSettings, o.Name)
		}
		if err := validateActions(o.Actions); err != nil {
			return err
		}
	}
	return nil
}

func validateProbabilities(o Outcome) error {
	for r, p := range o.RoleProbabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v for role %s out of range", ErrInvalidSettings, p, r)
		}
	}
	return nil
}

func validateActions(groups ...[]action.Action) error {
	for _, g := range groups {
		for _, a := range g {
			if err := a.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
