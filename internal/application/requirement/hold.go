package requirement

import (
	"sync/atomic"

	"github.com/google/uuid"

	"command-server/internal/domain/port"
)

const (
	holdActive int32 = iota
	holdRefunding
	holdRefunded
	holdSettled
)

// Hold 呼び出し1回分の通貨確保
// 返金と確定はどちらか一方だけが1回だけ成立する
type Hold struct {
	ID         string
	AccountID  string
	CurrencyID string
	Amount     int64

	state atomic.Int32
}

func newHold(accountID, currencyID string, amount int64) *Hold {
	return &Hold{
		ID:         port.HoldReferencePrefix + uuid.NewString(),
		AccountID:  accountID,
		CurrencyID: currencyID,
		Amount:     amount,
	}
}

// Active 未返金かつ未確定かどうかを返す
func (h *Hold) Active() bool {
	return h != nil && h.state.Load() == holdActive
}

// Refunded 返金済みかどうかを返す
func (h *Hold) Refunded() bool {
	return h != nil && h.state.Load() == holdRefunded
}
