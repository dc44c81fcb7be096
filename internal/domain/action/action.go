package action

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidAction アクション定義が無効
	ErrInvalidAction = errors.New("invalid action")
	// ErrReservedKind 予約済み種別のアクションは新規作成できない
	ErrReservedKind = errors.New("reserved action kind")
)

// Action コマンドを構成する1ステップ
// Kindに対応するパラメータだけが非nilになる
type Action struct {
	Kind Kind

	Chat              *Chat
	Currency          *Currency
	Overlay           *Overlay
	Webhook           *Webhook
	Wait              *Wait
	SpecialIdentifier *SpecialIdentifier
}

// Chat チャット送信パラメータ
type Chat struct {
	Message        string
	SendAsStreamer bool
	Whisper        bool
	WhisperTo      string // 空の場合は実行ユーザー
}

// CurrencyOperation 通貨操作の種類
type CurrencyOperation string

const (
	CurrencyAdd      CurrencyOperation = "add"
	CurrencySubtract CurrencyOperation = "subtract"
)

// Currency 通貨操作パラメータ
type Currency struct {
	CurrencyID string
	Amount     string // プレースホルダを含められる
	Target     CurrencyTarget
	Operation  CurrencyOperation
}

// CurrencyTarget 通貨操作の対象
type CurrencyTarget string

const (
	TargetInvoker CurrencyTarget = ""       // 実行ユーザー
	TargetUser    CurrencyTarget = "target" // 対象ユーザー（決闘相手など）
)

// OverlayOperation オーバーレイ操作の種類
type OverlayOperation string

const (
	OverlayShow    OverlayOperation = "show"
	OverlayHide    OverlayOperation = "hide"
	OverlayPlay    OverlayOperation = "play"
	OverlayUpdate  OverlayOperation = "update"
	OverlayEnable  OverlayOperation = "enable"
	OverlayDisable OverlayOperation = "disable"
)

// Overlay オーバーレイ更新パラメータ
type Overlay struct {
	Title     string
	Operation OverlayOperation
	Variables map[string]string
}

// Webhook 外部サービス呼び出しパラメータ
type Webhook struct {
	URL              string
	Method           string
	Headers          map[string]string
	Body             string
	ResultIdentifier string // レスポンス本文を格納する特殊識別子名
}

// Wait 待機パラメータ
type Wait struct {
	Duration time.Duration
}

// SpecialIdentifier 特殊識別子の設定パラメータ
type SpecialIdentifier struct {
	Name  string
	Value string
}

// Validate アクションがちょうど1つの種別に属していることを検証
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAction, int(a.Kind))
	}
	if a.Kind.Reserved() {
		if a.paramCount() != 0 {
			return fmt.Errorf("%w: reserved kind %s has parameters", ErrInvalidAction, a.Kind)
		}
		return nil
	}
	if a.paramCount() != 1 || a.paramKind() != a.Kind {
		return fmt.Errorf("%w: kind %s requires exactly its own parameters", ErrInvalidAction, a.Kind)
	}

	switch a.Kind {
	case KindChat:
		if a.Chat.Message == "" {
			return fmt.Errorf("%w: chat message is empty", ErrInvalidAction)
		}
	case KindCurrency:
		if a.Currency.CurrencyID == "" || a.Currency.Amount == "" {
			return fmt.Errorf("%w: currency id and amount are required", ErrInvalidAction)
		}
		if a.Currency.Operation != CurrencyAdd && a.Currency.Operation != CurrencySubtract {
			return fmt.Errorf("%w: invalid currency operation %q", ErrInvalidAction, a.Currency.Operation)
		}
		if a.Currency.Target != TargetInvoker && a.Currency.Target != TargetUser {
			return fmt.Errorf("%w: invalid currency target %q", ErrInvalidAction, a.Currency.Target)
		}
	case KindOverlay:
		switch a.Overlay.Operation {
		case OverlayShow, OverlayHide, OverlayPlay, OverlayUpdate, OverlayEnable, OverlayDisable:
		default:
			return fmt.Errorf("%w: invalid overlay operation %q", ErrInvalidAction, a.Overlay.Operation)
		}
	case KindWebhook:
		if a.Webhook.URL == "" {
			return fmt.Errorf("%w: webhook url is empty", ErrInvalidAction)
		}
	case KindWait:
		if a.Wait.Duration < 0 {
			return fmt.Errorf("%w: negative wait", ErrInvalidAction)
		}
	case KindSpecialIdentifier:
		if a.SpecialIdentifier.Name == "" {
			return fmt.Errorf("%w: identifier name is empty", ErrInvalidAction)
		}
	}
	return nil
}

func (a Action) paramCount() int {
	n := 0
	if a.Chat != nil {
		n++
	}
	if a.Currency != nil {
		n++
	}
	if a.Overlay != nil {
		n++
	}
	if a.Webhook != nil {
		n++
	}
	if a.Wait != nil {
		n++
	}
	if a.SpecialIdentifier != nil {
		n++
	}
	return n
}

func (a Action) paramKind() Kind {
	switch {
	case a.Chat != nil:
		return KindChat
	case a.Currency != nil:
		return KindCurrency
	case a.Overlay != nil:
		return KindOverlay
	case a.Webhook != nil:
		return KindWebhook
	case a.Wait != nil:
		return KindWait
	case a.SpecialIdentifier != nil:
		return KindSpecialIdentifier
	default:
		return KindUnknown
	}
}

// NewChat チャットアクションを作成
func NewChat(message string, asStreamer bool) Action {
	return Action{Kind: KindChat, Chat: &Chat{Message: message, SendAsStreamer: asStreamer}}
}

// NewWhisper ウィスパーアクションを作成
func NewWhisper(message, to string, asStreamer bool) Action {
	return Action{Kind: KindChat, Chat: &Chat{Message: message, SendAsStreamer: asStreamer, Whisper: true, WhisperTo: to}}
}

// NewOverlay オーバーレイアクションを作成
func NewOverlay(title string, op OverlayOperation, vars map[string]string) Action {
	return Action{Kind: KindOverlay, Overlay: &Overlay{Title: title, Operation: op, Variables: vars}}
}

// NewWait 待機アクションを作成
func NewWait(d time.Duration) Action {
	return Action{Kind: KindWait, Wait: &Wait{Duration: d}}
}

// NewSpecialIdentifier 特殊識別子アクションを作成
func NewSpecialIdentifier(name, value string) Action {
	return Action{Kind: KindSpecialIdentifier, SpecialIdentifier: &SpecialIdentifier{Name: name, Value: value}}
}

// NewCurrency 通貨アクションを作成
func NewCurrency(currencyID, amount string, target CurrencyTarget, op CurrencyOperation) Action {
	return Action{Kind: KindCurrency, Currency: &Currency{CurrencyID: currencyID, Amount: amount, Target: target, Operation: op}}
}

// NewWebhook 外部サービス呼び出しアクションを作成
func NewWebhook(method, url, body, resultIdentifier string) Action {
	return Action{Kind: KindWebhook, Webhook: &Webhook{Method: method, URL: url, Body: body, ResultIdentifier: resultIdentifier}}
}
