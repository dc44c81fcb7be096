package requirement

import (
	"context"
	"strconv"
	"strings"

	"command-server/internal/domain/command"
)

// parseBet 引数から賭け金を決める
// 末尾から順に数値または "all" / "max" を探す。見つからなければ0
func (g *Gate) parseBet(ctx context.Context, req *command.CurrencyRequirement, p *command.Parameters) (int64, error) {
	for i := len(p.Args) - 1; i >= 0; i-- {
		arg := strings.ToLower(strings.TrimSpace(p.Args[i]))
		switch arg {
		case "all", "max":
			balance, err := g.ledger.Balance(ctx, p.User.AccountID(), req.CurrencyID)
			if err != nil {
				return 0, err
			}
			if req.Max > 0 && balance > req.Max {
				balance = req.Max
			}
			return balance, nil
		}
		n, err := strconv.ParseInt(arg, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	return 0, nil
}
