// Package registry is the table store: a typed mapping from table name to a
// schema-validated dataset, loaded once and handed to every analysis.
//
// A table with a registered contract is checked when it is put, so a missing
// column surfaces at load time instead of as an empty column deep inside an
// aggregation. Tables without a contract are accepted as-is.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"insights/internal/schema"
	"insights/internal/table"
)

// Registry holds loaded tables by name. It is safe for concurrent use; the
// tables it holds are immutable.
type Registry struct {
	mu        sync.RWMutex
	tables    map[string]*table.Table
	contracts map[string]schema.Contract
}

// New returns an empty registry that validates against contracts.
func New(contracts ...schema.Contract) *Registry {
	r := &Registry{
		tables:    make(map[string]*table.Table),
		contracts: make(map[string]schema.Contract, len(contracts)),
	}
	for _, c := range contracts {
		r.contracts[c.Name] = c
	}
	return r
}

// Contract returns the contract registered for name.
func (r *Registry) Contract(name string) (schema.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[name]
	return c, ok
}

// Put stores t under its name, replacing any previous table of that name.
func (r *Registry) Put(t *table.Table) error {
	if t == nil {
		return fmt.Errorf("registry: nil table")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contracts[t.Name()]; ok {
		if err := c.Check(t); err != nil {
			return err
		}
	}
	r.tables[t.Name()] = t
	return nil
}

// Get returns the named table or a MissingTableError.
func (r *Registry) Get(name string) (*table.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, &table.MissingTableError{Table: name}
	}
	return t, nil
}

// Lookup returns the named table when it is loaded. It is meant for optional
// enrichment tables.
func (r *Registry) Lookup(name string) (*table.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Require returns the named table after checking it carries cols.
func (r *Registry) Require(name string, cols ...string) (*table.Table, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	return t, nil
}

// Names lists the loaded table names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for n := range r.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns a registry with the same contracts and tables. Putting into
// the clone does not affect r; this is how filtered views are built.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &Registry{
		tables:    make(map[string]*table.Table, len(r.tables)),
		contracts: r.contracts,
	}
	for n, t := range r.tables {
		out.tables[n] = t
	}
	return out
}

// Stats are the headline counts shown next to every page.
type Stats struct {
	Products         int `json:"products"`
	Locations        int `json:"locations"`
	InventoryRecords int `json:"inventory_records"`
}

// Stats counts products, distinct inventory locations, and inventory rows.
// Tables that are not loaded count as zero.
func (r *Registry) Stats() Stats {
	var s Stats
	if p, ok := r.Lookup(schema.Product); ok {
		s.Products = p.Len()
	}
	if inv, ok := r.Lookup(schema.ProductInventory); ok {
		s.InventoryRecords = inv.Len()
		if n, err := inv.Distinct("LocationID"); err == nil {
			s.Locations = n
		}
	}
	return s
}
