package registry

import "sort"

// Ledger is an in-memory model.ResourceLedger.
type Ledger struct {
	stock map[string]int
}

func NewLedger(initial map[string]int) *Ledger {
	l := &Ledger{stock: map[string]int{}}
	for k, v := range initial {
		if v > 0 {
			l.stock[k] = v
		}
	}
	return l
}

func (l *Ledger) TryConsume(resource string, amount int) bool {
	if amount <= 0 {
		return true
	}
	if l.stock[resource] < amount {
		return false
	}
	l.stock[resource] -= amount
	return true
}

func (l *Ledger) Add(resource string, amount int) {
	if amount <= 0 {
		return
	}
	l.stock[resource] += amount
}

func (l *Ledger) Amount(resource string) int { return l.stock[resource] }

// Snapshot returns the non-zero stockpiles sorted by resource key.
func (l *Ledger) Snapshot() []Stock {
	keys := make([]string, 0, len(l.stock))
	for k, v := range l.stock {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Stock, 0, len(keys))
	for _, k := range keys {
		out = append(out, Stock{Resource: k, Amount: l.stock[k]})
	}
	return out
}

type Stock struct {
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}
