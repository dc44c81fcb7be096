// Package catalog YAMLファイルからのコマンドカタログ読み込み
package catalog

import "time"

// File カタログファイルの構造
type File struct {
	Commands []CommandDef `yaml:"commands"`
}

// CommandDef コマンド定義
type CommandDef struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Triggers     []string        `yaml:"triggers"`
	Enabled      *bool           `yaml:"enabled"`
	Requirements RequirementsDef `yaml:"requirements"`
	Actions      []ActionDef     `yaml:"actions"`
	Game         *GameDef        `yaml:"game"`
}

// RequirementsDef 要件定義
type RequirementsDef struct {
	Role     string       `yaml:"role"`
	Cooldown *CooldownDef `yaml:"cooldown"`
	Currency *CurrencyDef `yaml:"currency"`
}

// CooldownDef クールダウン定義
type CooldownDef struct {
	Duration time.Duration `yaml:"duration"`
	Scope    string        `yaml:"scope"`
}

// CurrencyDef 通貨コスト定義
type CurrencyDef struct {
	CurrencyID string `yaml:"currency_id"`
	Amount     int64  `yaml:"amount"`
	Bet        bool   `yaml:"bet"`
	Min        int64  `yaml:"min"`
	Max        int64  `yaml:"max"`
}

// ActionDef アクション定義
// kindに応じたフィールドだけを使う
type ActionDef struct {
	Kind string `yaml:"kind"`

	// chat
	Message    string `yaml:"message"`
	AsStreamer bool   `yaml:"as_streamer"`
	Whisper    bool   `yaml:"whisper"`
	To         string `yaml:"to"`

	// currency
	CurrencyID string `yaml:"currency_id"`
	Amount     string `yaml:"amount"`
	Target     string `yaml:"target"`

	// overlay / currency
	Operation string            `yaml:"operation"`
	Title     string            `yaml:"title"`
	Variables map[string]string `yaml:"variables"`

	// webhook
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Result  string            `yaml:"result"`

	// wait
	Duration time.Duration `yaml:"duration"`

	// special_identifier
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// GameDef ゲーム設定
type GameDef struct {
	Type        string        `yaml:"type"`
	TimeLimit   time.Duration `yaml:"time_limit"`
	Selection   string        `yaml:"selection"`
	Started     []ActionDef   `yaml:"started"`
	NotAccepted []ActionDef   `yaml:"not_accepted"`
	Success     OutcomeDef    `yaml:"success"`
	Failed      []ActionDef   `yaml:"failed"`
	Outcomes    []OutcomeDef  `yaml:"outcomes"`
}

// OutcomeDef 結果定義（確率はロール名ごと）
type OutcomeDef struct {
	Name          string             `yaml:"name"`
	Probabilities map[string]float64 `yaml:"probabilities"`
	Multiplier    float64            `yaml:"multiplier"`
	Actions       []ActionDef        `yaml:"actions"`
}
