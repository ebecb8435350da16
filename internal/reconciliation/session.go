package reconciliation

import (
	"fmt"

	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// Edit operations accepted by Apply
const (
	OpSet        = "set"
	OpVAT        = "vat"
	OpItem       = "item"
	OpAddItem    = "add-item"
	OpRemoveItem = "remove-item"
)

// Edit is one user edit expressed as data, so that the CLI and tests can replay it.
type Edit struct {
	Op    string `json:"op"`
	Field string `json:"field,omitempty"`
	Index int    `json:"index,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Apply dispatches an Edit to the matching engine operation.
func Apply(rec models.InvoiceRecord, e Edit) (models.InvoiceRecord, error) {
	const op = "Apply"

	switch e.Op {
	case OpSet:
		return SetField(rec, Field(e.Field), e.Value)
	case OpVAT:
		return SetVATRate(rec, e.Value), nil
	case OpItem:
		return EditLineItem(rec, e.Index, ItemField(e.Field), e.Value)
	case OpAddItem:
		return AddLineItem(rec), nil
	case OpRemoveItem:
		return RemoveLineItem(rec, e.Index)
	default:
		return rec, newEditError(op, e.Op, -1, ErrUnknownOp)
	}
}

// Session holds the working record of one editing session.
//
// A Session is not safe for concurrent use; it models a single user editing a
// single record.
type Session struct {
	current models.InvoiceRecord
	history []models.InvoiceRecord
	log     zerolog.Logger
}

// NewSession starts a session on a copy of rec. Stored amounts are kept as they
// are until an item or VAT edit recomputes them.
func NewSession(rec models.InvoiceRecord) *Session {
	return &Session{
		current: rec.Clone(),
		log:     logger.WithComponent("reconciliation"),
	}
}

// Apply applies an edit. A rejected edit leaves the session unchanged.
func (s *Session) Apply(e Edit) error {
	next, err := Apply(s.current, e)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("op", e.Op).
			Str("field", e.Field).
			Int("index", e.Index).
			Msg("Edit rejected")
		return err
	}

	s.history = append(s.history, s.current)
	s.current = next

	s.log.Debug().
		Str("op", e.Op).
		Str("field", e.Field).
		Int("index", e.Index).
		Float64("total_amount", next.TotalAmount).
		Float64("vat_amount", next.VATAmount).
		Int("line_items", len(next.LineItems)).
		Msg("Edit applied")

	return nil
}

// SetField applies a header field edit.
func (s *Session) SetField(field Field, value any) error {
	return s.Apply(Edit{Op: OpSet, Field: string(field), Value: value})
}

// SetVATRate applies a VAT rate edit.
func (s *Session) SetVATRate(rate any) error {
	return s.Apply(Edit{Op: OpVAT, Value: rate})
}

// EditLineItem applies a line item edit.
func (s *Session) EditLineItem(index int, field ItemField, value any) error {
	return s.Apply(Edit{Op: OpItem, Index: index, Field: string(field), Value: value})
}

// AddLineItem appends a default line item.
func (s *Session) AddLineItem() error {
	return s.Apply(Edit{Op: OpAddItem})
}

// RemoveLineItem removes the line item at index.
func (s *Session) RemoveLineItem(index int) error {
	return s.Apply(Edit{Op: OpRemoveItem, Index: index})
}

// Undo reverts the last applied edit. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	if len(s.history) == 0 {
		return false
	}
	last := len(s.history) - 1
	s.current = s.history[last]
	s.history = s.history[:last]
	s.log.Debug().Int("remaining", len(s.history)).Msg("Edit undone")
	return true
}

// Snapshot returns a deep copy of the current record, safe to hand to other
// components while editing continues.
func (s *Session) Snapshot() models.InvoiceRecord {
	return s.current.Clone()
}

// Edits returns the number of applied edits that can still be undone.
func (s *Session) Edits() int {
	return len(s.history)
}

// GrandTotal returns the current grand total.
func (s *Session) GrandTotal() float64 {
	return GrandTotal(s.current)
}

// String implements fmt.Stringer for log and debug output.
func (s *Session) String() string {
	return fmt.Sprintf("%s: %d items, total %.2f, vat %.2f",
		s.current.InvoiceNumber, len(s.current.LineItems), s.current.TotalAmount, s.current.VATAmount)
}
