package action

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "command-server/internal/domain/action"
	"command-server/internal/domain/command"
	"command-server/internal/domain/port"
)

func (e *Executor) chat(ctx context.Context, c *domain.Chat, p *command.Parameters) error {
	if e.deps.Chat == nil {
		return fmt.Errorf("chat sink is not configured")
	}
	text, err := e.deps.Resolver.Resolve(ctx, c.Message, p)
	if err != nil {
		return err
	}
	if !c.Whisper {
		return e.deps.Chat.SendMessage(ctx, text, c.SendAsStreamer)
	}

	to := ""
	if c.WhisperTo != "" {
		if to, err = e.deps.Resolver.Resolve(ctx, c.WhisperTo, p); err != nil {
			return err
		}
	} else if p.User != nil {
		to = p.User.Username
	}
	to = strings.TrimPrefix(to, "@")
	if to == "" {
		return fmt.Errorf("whisper has no recipient")
	}
	return e.deps.Chat.Whisper(ctx, p.Platform, to, text, c.SendAsStreamer)
}

func (e *Executor) overlay(ctx context.Context, o *domain.Overlay, p *command.Parameters) error {
	if e.deps.Overlay == nil {
		return fmt.Errorf("overlay sink is not configured")
	}
	title, err := e.deps.Resolver.Resolve(ctx, o.Title, p)
	if err != nil {
		return err
	}
	vars := make(map[string]string, len(o.Variables))
	for k, v := range o.Variables {
		resolved, err := e.deps.Resolver.ResolveAsset(ctx, v, p)
		if err != nil {
			return fmt.Errorf("overlay variable %s: %w", k, err)
		}
		vars[k] = resolved
	}
	return e.deps.Overlay.Update(ctx, port.OverlayCommand{
		Title:     title,
		Operation: string(o.Operation),
		Variables: vars,
	})
}

func (e *Executor) webhook(ctx context.Context, w *domain.Webhook, p *command.Parameters) error {
	if e.deps.Webhook == nil {
		return fmt.Errorf("webhook client is not configured")
	}
	url, err := e.deps.Resolver.Resolve(ctx, w.URL, p)
	if err != nil {
		return err
	}
	body, err := e.deps.Resolver.Resolve(ctx, w.Body, p)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(w.Headers))
	for k, v := range w.Headers {
		if headers[k], err = e.deps.Resolver.Resolve(ctx, v, p); err != nil {
			return err
		}
	}

	result, err := e.deps.Webhook.Call(ctx, WebhookRequest{
		Method:  w.Method,
		URL:     url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return err
	}
	if w.ResultIdentifier != "" {
		p.SetIdentifier(w.ResultIdentifier, result)
	}
	return nil
}

func (e *Executor) wait(ctx context.Context, w *domain.Wait) error {
	if w.Duration <= 0 {
		return nil
	}
	timer := time.NewTimer(w.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) currency(ctx context.Context, c *domain.Currency, p *command.Parameters) error {
	if e.deps.Ledger == nil {
		return fmt.Errorf("ledger is not configured")
	}
	raw, err := e.deps.Resolver.Resolve(ctx, c.Amount, p)
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("%w: currency amount %q is not a positive integer", domain.ErrInvalidAction, raw)
	}

	who := p.User
	if c.Target == domain.TargetUser {
		who = p.Target
	}
	if who == nil {
		return fmt.Errorf("currency action has no recipient")
	}

	switch c.Operation {
	case domain.CurrencyAdd:
		return e.deps.Ledger.AddAmount(ctx, who.AccountID(), c.CurrencyID, amount, "action")
	default:
		return e.deps.Ledger.SubtractAmount(ctx, who.AccountID(), c.CurrencyID, amount, "action")
	}
}

func (e *Executor) specialIdentifier(ctx context.Context, s *domain.SpecialIdentifier, p *command.Parameters) error {
	v, err := e.deps.Resolver.Resolve(ctx, s.Value, p)
	if err != nil {
		return err
	}
	p.SetIdentifier(s.Name, v)
	return nil
}
