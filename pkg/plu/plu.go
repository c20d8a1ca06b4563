// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package plu provides the price look-up code value type shared by the
// register driver and the import/export tooling.
package plu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Field limits enforced on construction.
const (
	MaxIDLength   = 13
	MaxNameLength = 21
	MinDepartment = 1
	MaxDepartment = 250
	MinTax        = 1
	MaxTax        = 9
	MinMacro      = 0
	MaxMacro      = 250
	MinQuantity   = 1
	MaxQuantity   = 99999
)

var (
	minPrice = decimal.RequireFromString("0.01")
	maxPrice = decimal.RequireFromString("999999.99")
)

// Info is a validated price look-up article. Identity is the Id; equality
// and ordering use ordinal comparison of Id. An Info is mutable until it is
// frozen for the completion phase of a sale; mutations are tracked so the
// driver can write back only the articles a caller actually changed.
type Info struct {
	mu         sync.Mutex
	id         string
	name       string
	price      decimal.Decimal
	department int
	tax        int
	macro      int
	quantity   int

	frozen bool
	dirty  bool
}

// New validates every field and constructs an article.
func New(id, name string, price decimal.Decimal, department, tax, macro, quantity int) (*Info, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if department < MinDepartment || department > MaxDepartment {
		return nil, fmt.Errorf("plu %q: department %d outside [%d, %d]", id, department, MinDepartment, MaxDepartment)
	}
	if tax < MinTax || tax > MaxTax {
		return nil, fmt.Errorf("plu %q: tax %d outside [%d, %d]", id, tax, MinTax, MaxTax)
	}
	if macro < MinMacro || macro > MaxMacro {
		return nil, fmt.Errorf("plu %q: macro %d outside [%d, %d]", id, macro, MinMacro, MaxMacro)
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return nil, fmt.Errorf("plu %q: quantity %d outside [%d, %d]", id, quantity, MinQuantity, MaxQuantity)
	}
	return &Info{
		id:         id,
		name:       name,
		price:      price,
		department: department,
		tax:        tax,
		macro:      macro,
		quantity:   quantity,
	}, nil
}

// validAlphabet reports whether s consists of printable ASCII excluding the
// field separators of the wire protocol.
func validAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7E || c == ':' || c == ';' {
			return false
		}
	}
	return true
}

func validateID(id string) error {
	if len(id) < 1 || len(id) > MaxIDLength {
		return fmt.Errorf("plu id %q: length outside [1, %d]", id, MaxIDLength)
	}
	if !validAlphabet(id) {
		return fmt.Errorf("plu id %q: contains characters outside the allowed alphabet", id)
	}
	return nil
}

func validateName(name string) error {
	if len(name) < 1 || len(name) > MaxNameLength {
		return fmt.Errorf("plu name %q: length outside [1, %d]", name, MaxNameLength)
	}
	if !validAlphabet(name) {
		return fmt.Errorf("plu name %q: contains characters outside the allowed alphabet", name)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.LessThan(minPrice) || price.GreaterThan(maxPrice) {
		return fmt.Errorf("plu price %s outside [%s, %s]", price, minPrice, maxPrice)
	}
	return nil
}

func (p *Info) ID() string { return p.id }

func (p *Info) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Info) Price() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.price
}

func (p *Info) Department() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.department
}

func (p *Info) Tax() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tax
}

func (p *Info) Macro() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.macro
}

func (p *Info) Quantity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quantity
}

// PriceCents returns the price in integer cents, rounded away from zero.
func (p *Info) PriceCents() int64 {
	return p.Price().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// SetName replaces the article name. Fails once the article is frozen.
func (p *Info) SetName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		return fmt.Errorf("plu %q is frozen", p.id)
	}
	if p.name != name {
		p.name = name
		p.dirty = true
	}
	return nil
}

// SetPrice replaces the article price. Fails once the article is frozen.
func (p *Info) SetPrice(price decimal.Decimal) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		return fmt.Errorf("plu %q is frozen", p.id)
	}
	if !p.price.Equal(price) {
		p.price = price
		p.dirty = true
	}
	return nil
}

// SetQuantity replaces the sale quantity. Fails once the article is frozen.
func (p *Info) SetQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return fmt.Errorf("plu %q: quantity %d outside [%d, %d]", p.id, quantity, MinQuantity, MaxQuantity)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frozen {
		return fmt.Errorf("plu %q is frozen", p.id)
	}
	p.quantity = quantity
	return nil
}

// Freeze makes the article immutable; Thaw restores mutability and clears
// the mutation mark.
func (p *Info) Freeze() {
	p.mu.Lock()
	p.frozen = true
	p.mu.Unlock()
}

func (p *Info) Thaw() {
	p.mu.Lock()
	p.frozen = false
	p.dirty = false
	p.mu.Unlock()
}

// Dirty reports whether the article was mutated since construction or the
// last Thaw.
func (p *Info) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Compare orders articles by ordinal comparison of Id.
func Compare(a, b *Info) int {
	return strings.Compare(a.id, b.id)
}

// Equal reports identity equality.
func Equal(a, b *Info) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id
}
