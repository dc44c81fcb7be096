package command

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog 登録済みコマンドの集合
// トリガーはカタログ全体で一意
type Catalog struct {
	mu        sync.RWMutex
	byID      map[string]*Command
	byTrigger map[string]*Command
}

// NewCatalog 新しいCatalogを作成
func NewCatalog() *Catalog {
	return &Catalog{
		byID:      make(map[string]*Command),
		byTrigger: make(map[string]*Command),
	}
}

// Add コマンドを登録
func (c *Catalog) Add(cmd *Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[cmd.ID]; ok {
		return fmt.Errorf("%w: id %s already registered", ErrInvalidCommand, cmd.ID)
	}
	for _, t := range cmd.Triggers {
		if other, ok := c.byTrigger[NormalizeTrigger(t)]; ok {
			return fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateTrigger, t, other.Name, cmd.Name)
		}
	}

	c.byID[cmd.ID] = cmd
	for _, t := range cmd.Triggers {
		c.byTrigger[NormalizeTrigger(t)] = cmd
	}
	return nil
}

// Lookup トリガーからコマンドを取得
func (c *Catalog) Lookup(trigger string) (*Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.byTrigger[NormalizeTrigger(trigger)]
	return cmd, ok
}

// Get IDからコマンドを取得
func (c *Catalog) Get(id string) (*Command, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}
	return cmd, nil
}

// All 全コマンドを名前順で返す
func (c *Catalog) All() []*Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Command, 0, len(c.byID))
	for _, cmd := range c.byID {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len 登録数を返す
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
