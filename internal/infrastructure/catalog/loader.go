package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/game"
	"command-server/internal/domain/user"
	otelinfra "command-server/internal/infrastructure/observability/otel"
)

// Loader カタログファイルの読み込み
type Loader struct {
	logger          *otelinfra.Logger
	defaultCurrency string
}

// NewLoader 新しいLoaderを作成
func NewLoader(logger *otelinfra.Logger) *Loader {
	return &Loader{logger: logger}
}

// WithDefaultCurrency currency_id省略時に使う通貨を設定する
func (l *Loader) WithDefaultCurrency(currencyID string) *Loader {
	l.defaultCurrency = currencyID
	return l
}

// LoadFile ファイルからカタログを読み込む
func (l *Loader) LoadFile(ctx context.Context, path string) (*command.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return l.Parse(ctx, data)
}

// Parse YAMLからカタログを組み立てる
// 実行エンジンのないゲームは無効化して読み込む
func (l *Loader) Parse(ctx context.Context, data []byte) (*command.Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	cat := command.NewCatalog()
	for i, def := range f.Commands {
		l.applyDefaults(&def)
		cmd, err := def.build()
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, def.ID, err)
		}
		if cmd.Game != nil && !cmd.Game.Type.Playable() && cmd.Enabled {
			l.logger.Warn(ctx, "Game type is not supported, command disabled", map[string]interface{}{
				"command_id": cmd.ID,
				"game_type":  cmd.Game.Type.String(),
			})
			cmd.Enabled = false
		}
		if err := cat.Add(cmd); err != nil {
			return nil, err
		}
	}

	l.logger.Info(ctx, "Command catalog loaded", map[string]interface{}{
		"commands": cat.Len(),
	})
	return cat, nil
}

func (l *Loader) applyDefaults(d *CommandDef) {
	if l.defaultCurrency == "" {
		return
	}
	if c := d.Requirements.Currency; c != nil && c.CurrencyID == "" {
		c.CurrencyID = l.defaultCurrency
	}
	for i := range d.Actions {
		a := &d.Actions[i]
		if kind, err := action.ParseKind(a.Kind); err == nil && kind == action.KindCurrency && a.CurrencyID == "" {
			a.CurrencyID = l.defaultCurrency
		}
	}
}

func (d CommandDef) build() (*command.Command, error) {
	cmd := &command.Command{
		ID:       d.ID,
		Name:     d.Name,
		Triggers: d.Triggers,
		Enabled:  d.Enabled == nil || *d.Enabled,
	}
	if cmd.Name == "" {
		cmd.Name = d.ID
	}

	reqs, err := d.Requirements.build()
	if err != nil {
		return nil, err
	}
	cmd.Requirements = reqs

	if cmd.Actions, err = buildActions(d.Actions); err != nil {
		return nil, err
	}
	if d.Game != nil {
		if cmd.Game, err = d.Game.build(); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func (d RequirementsDef) build() (command.RequirementSet, error) {
	var rs command.RequirementSet
	if d.Role != "" {
		r, err := user.NewRole(d.Role)
		if err != nil {
			return rs, err
		}
		rs.Role = &command.RoleRequirement{Minimum: r}
	}
	if c := d.Cooldown; c != nil {
		scope := command.CooldownScope(c.Scope)
		if scope == "" {
			scope = command.CooldownGlobal
		}
		rs.Cooldown = &command.CooldownRequirement{Duration: c.Duration, Scope: scope}
	}
	if c := d.Currency; c != nil {
		rs.Currency = &command.CurrencyRequirement{
			CurrencyID: c.CurrencyID,
			Amount:     c.Amount,
			Bet:        c.Bet,
			Min:        c.Min,
			Max:        c.Max,
		}
	}
	return rs, nil
}

func buildActions(defs []ActionDef) ([]action.Action, error) {
	out := make([]action.Action, 0, len(defs))
	for i, d := range defs {
		a, err := d.build()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (d ActionDef) build() (action.Action, error) {
	kind, err := action.ParseKind(d.Kind)
	if err != nil {
		return action.Action{}, err
	}

	switch kind {
	case action.KindChat:
		if d.Whisper {
			return action.NewWhisper(d.Message, d.To, d.AsStreamer), nil
		}
		return action.NewChat(d.Message, d.AsStreamer), nil
	case action.KindCurrency:
		return action.NewCurrency(d.CurrencyID, d.Amount, action.CurrencyTarget(d.Target), action.CurrencyOperation(d.Operation)), nil
	case action.KindOverlay:
		return action.NewOverlay(d.Title, action.OverlayOperation(d.Operation), d.Variables), nil
	case action.KindWebhook:
		a := action.NewWebhook(d.Method, d.URL, d.Body, d.Result)
		a.Webhook.Headers = d.Headers
		return a, nil
	case action.KindWait:
		return action.NewWait(d.Duration), nil
	case action.KindSpecialIdentifier:
		return action.NewSpecialIdentifier(d.Name, d.Value), nil
	default:
		// 予約済み種別はパラメータなしで読み込む
		return action.Action{Kind: kind}, nil
	}
}

func (d *GameDef) build() (*game.Settings, error) {
	t, err := game.NewType(d.Type)
	if err != nil {
		return nil, err
	}
	s := &game.Settings{Type: t}

	switch t {
	case game.TypeDuel:
		sel, err := game.NewSelectionType(d.Selection)
		if err != nil {
			return nil, err
		}
		duel := &game.DuelSettings{TimeLimit: d.TimeLimit, SelectionType: sel}
		if duel.Started, err = buildActions(d.Started); err != nil {
			return nil, err
		}
		if duel.NotAccepted, err = buildActions(d.NotAccepted); err != nil {
			return nil, err
		}
		if duel.Success, err = d.Success.build(); err != nil {
			return nil, err
		}
		if duel.Failed, err = buildActions(d.Failed); err != nil {
			return nil, err
		}
		s.Duel = duel
	case game.TypeSpin:
		spin := &game.SpinSettings{}
		for _, od := range d.Outcomes {
			o, err := od.build()
			if err != nil {
				return nil, err
			}
			spin.Outcomes = append(spin.Outcomes, o)
		}
		s.Spin = spin
	}
	return s, nil
}

func (d OutcomeDef) build() (game.Outcome, error) {
	o := game.Outcome{
		Name:              d.Name,
		Multiplier:        d.Multiplier,
		RoleProbabilities: make(map[user.Role]float64, len(d.Probabilities)),
	}
	for name, p := range d.Probabilities {
		r, err := user.NewRole(name)
		if err != nil {
			return o, err
		}
		o.RoleProbabilities[r] = p
	}
	var err error
	if o.Actions, err = buildActions(d.Actions); err != nil {
		return o, err
	}
	return o, nil
}
