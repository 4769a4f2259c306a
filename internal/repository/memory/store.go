// Package memory is a process-local Store used for development and tests. It
// keeps the same conditional-update semantics as the postgres store; a
// Transaction holds the store lock for its whole duration and restores a
// snapshot when fn fails.
package memory

import (
	"context"
	"sync"

	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"
)

type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	ingredients map[string]models.Ingredient
	menuItems   map[string]models.MenuItem
	recipes     map[string]models.Recipe
	orders      map[string]models.Order
	shifts      map[string]models.Shift
	activities  []models.ShiftActivity
	tables      map[string]models.Table
	cashiers    map[string]models.Cashier
	nextLineID  uint
}

func New() *Store {
	return &Store{st: newState()}
}

func newState() *state {
	return &state{
		ingredients: make(map[string]models.Ingredient),
		menuItems:   make(map[string]models.MenuItem),
		recipes:     make(map[string]models.Recipe),
		orders:      make(map[string]models.Order),
		shifts:      make(map[string]models.Shift),
		tables:      make(map[string]models.Table),
		cashiers:    make(map[string]models.Cashier),
	}
}

// view routes repository calls either through the store lock or, inside a
// transaction, straight to the already locked state.
type view struct {
	s    *Store
	inTx bool
}

func (v *view) do(fn func(st *state) error) error {
	if v.inTx {
		return fn(v.s.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

func (s *Store) repos(inTx bool) repository.Repositories {
	v := &view{s: s, inTx: inTx}
	return repository.Repositories{
		Ingredients: &ingredientRepo{v},
		Recipes:     &recipeRepo{v},
		MenuItems:   &menuItemRepo{v},
		Orders:      &orderRepo{v},
		Shifts:      &shiftRepo{v},
		Activities:  &activityRepo{v},
		Tables:      &tableRepo{v},
		Cashiers:    &cashierRepo{v},
	}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

func (s *Store) Transaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range st.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range st.recipes {
		c.recipes[k] = cloneRecipe(v)
	}
	for k, v := range st.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range st.shifts {
		c.shifts[k] = cloneShift(v)
	}
	c.activities = append([]models.ShiftActivity(nil), st.activities...)
	for k, v := range st.tables {
		c.tables[k] = v
	}
	for k, v := range st.cashiers {
		c.cashiers[k] = v
	}
	c.nextLineID = st.nextLineID
	return c
}

func cloneRecipe(r models.Recipe) models.Recipe {
	r.Lines = append([]models.RecipeLine(nil), r.Lines...)
	return r
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.TableNumber = cloneString(o.TableNumber)
	o.ShiftID = cloneString(o.ShiftID)
	o.MergedIntoID = cloneString(o.MergedIntoID)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		o.CompletedAt = &t
	}
	return o
}

func cloneShift(s models.Shift) models.Shift {
	if s.EndTime != nil {
		t := *s.EndTime
		s.EndTime = &t
	}
	if s.ClosingCashCounted != nil {
		v := *s.ClosingCashCounted
		s.ClosingCashCounted = &v
	}
	if s.Variance != nil {
		v := *s.Variance
		s.Variance = &v
	}
	return s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
