package core

import (
	"slices"
	"strings"
)

// Ledger is the in-memory bill of quantities: an ordered list of categories,
// each owning an ordered list of item handles. A category exists only while
// it owns at least one item.
//
// Ledger is not safe for concurrent use; callers serialize access.
type Ledger struct {
	categories []*category
	items      map[ItemID]*Item
}

type category struct {
	name  string
	items []ItemID
}

// Snapshot is an immutable ordered view of the ledger.
type Snapshot struct {
	Categories []CategorySnapshot
}

// CategorySnapshot is one category block in display order.
type CategorySnapshot struct {
	Name  string
	Items []Item
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{items: make(map[ItemID]*Item)}
}

// Len returns the number of items.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Item returns a copy of the item with the given handle.
func (l *Ledger) Item(id ItemID) (Item, bool) {
	it, ok := l.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Categories returns category names in display order.
func (l *Ledger) Categories() []string {
	names := make([]string, 0, len(l.categories))
	for _, c := range l.categories {
		names = append(names, c.name)
	}
	return names
}

// AddItem validates n and appends it after the last item of its category.
// A new category is created at the end of the category ordering.
func (l *Ledger) AddItem(n NewItem) (ItemID, error) {
	return l.RestoreItem("", n)
}

// RestoreItem is AddItem with a caller-supplied handle, used when hydrating
// from persisted records. A blank or already used id is replaced by a fresh one.
func (l *Ledger) RestoreItem(id ItemID, n NewItem) (ItemID, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	if _, taken := l.items[id]; id == "" || taken {
		id = NewItemID()
	}

	name := strings.TrimSpace(n.Category)
	l.items[id] = &Item{
		ID:             id,
		Category:       name,
		Description:    strings.TrimSpace(n.Description),
		Quantity:       n.Quantity,
		QuantityDetail: n.QuantityDetail,
		Unit:           strings.TrimSpace(n.Unit),
		UnitPrice:      n.UnitPrice,
	}

	c := l.category(name)
	if c == nil {
		c = &category{name: name}
		l.categories = append(l.categories, c)
	}
	c.items = append(c.items, id)
	return id, nil
}

// EditItem replaces description, unit, unit price and quantity in place.
// The quantity detail is cleared; category and position are kept.
func (l *Ledger) EditItem(id ItemID, e ItemEdit) error {
	it, ok := l.items[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if err := e.Validate(); err != nil {
		return err
	}
	it.Description = strings.TrimSpace(e.Description)
	it.Unit = strings.TrimSpace(e.Unit)
	it.UnitPrice = e.UnitPrice
	it.Quantity = e.Quantity
	it.QuantityDetail = ""
	return nil
}

// DeleteItem removes an item, and its category when it was the last one.
func (l *Ledger) DeleteItem(id ItemID) error {
	it, ok := l.items[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	delete(l.items, id)

	c := l.category(it.Category)
	c.items = slices.DeleteFunc(c.items, func(x ItemID) bool { return x == id })
	if len(c.items) == 0 {
		l.categories = slices.DeleteFunc(l.categories, func(x *category) bool { return x == c })
	}
	return nil
}

// MoveItem places an item at newIndex of the full item ordering (0-based,
// counted after the item is taken out). Category blocks stay contiguous:
// an item dropped inside another category's block joins that category, an
// item dropped next to its own block stays where it belongs, and the only
// item of a category carries its category along to the new spot.
func (l *Ledger) MoveItem(id ItemID, newIndex int) error {
	it, ok := l.items[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if newIndex < 0 || newIndex >= len(l.items) {
		return &InvalidMoveError{ID: id, Index: newIndex, Len: len(l.items)}
	}

	order := slices.DeleteFunc(l.order(), func(x ItemID) bool { return x == id })
	order = slices.Insert(order, newIndex, id)

	alone := len(l.category(it.Category).items) == 1
	it.Category = l.landingCategory(order, newIndex, it.Category, alone)
	l.regroup(order)
	return nil
}

// Snapshot returns a deep copy of the current ordering.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{Categories: make([]CategorySnapshot, 0, len(l.categories))}
	for _, c := range l.categories {
		cs := CategorySnapshot{Name: c.name, Items: make([]Item, 0, len(c.items))}
		for _, id := range c.items {
			cs.Items = append(cs.Items, *l.items[id])
		}
		s.Categories = append(s.Categories, cs)
	}
	return s
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{
		categories: make([]*category, 0, len(l.categories)),
		items:      make(map[ItemID]*Item, len(l.items)),
	}
	for id, it := range l.items {
		dup := *it
		cp.items[id] = &dup
	}
	for _, c := range l.categories {
		cp.categories = append(cp.categories, &category{name: c.name, items: slices.Clone(c.items)})
	}
	return cp
}

func (l *Ledger) category(name string) *category {
	for _, c := range l.categories {
		if c.name == name {
			return c
		}
	}
	return nil
}

// order flattens the categories into display order.
func (l *Ledger) order() []ItemID {
	out := make([]ItemID, 0, len(l.items))
	for _, c := range l.categories {
		out = append(out, c.items...)
	}
	return out
}

func (l *Ledger) landingCategory(order []ItemID, at int, own string, alone bool) string {
	var prev, next string
	hasPrev, hasNext := at > 0, at < len(order)-1
	if hasPrev {
		prev = l.items[order[at-1]].Category
	}
	if hasNext {
		next = l.items[order[at+1]].Category
	}

	switch {
	case hasPrev && hasNext && prev == next:
		return prev
	case (hasPrev && prev == own) || (hasNext && next == own):
		return own
	case alone:
		return own
	case hasPrev:
		return prev
	case hasNext:
		return next
	}
	return own
}

// regroup rebuilds the category lists from a flat ordering.
func (l *Ledger) regroup(order []ItemID) {
	var cats []*category
	byName := make(map[string]*category)
	for _, id := range order {
		name := l.items[id].Category
		c, ok := byName[name]
		if !ok {
			c = &category{name: name}
			byName[name] = c
			cats = append(cats, c)
		}
		c.items = append(c.items, id)
	}
	l.categories = cats
}

// Len returns the number of items in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Items)
	}
	return n
}

// Items returns all items in display order.
func (s Snapshot) Items() []Item {
	out := make([]Item, 0, s.Len())
	for _, c := range s.Categories {
		out = append(out, c.Items...)
	}
	return out
}
