// Package invoice models the line items of an invoice form. Every change
// goes through Reduce, which returns a new collection with totals already
// recomputed, so a stale total is never observable.
package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"invoice-console/internal/domain"
)

type Field string

const (
	FieldName     Field = "name"
	FieldAmount   Field = "amount"
	FieldQuantity Field = "quantity"
)

var (
	ErrIndexOutOfRange = errors.New("line item index out of range")
	ErrUnknownField    = errors.New("unknown line item field")
	ErrInvalidValue    = errors.New("invalid line item value")
	// ErrIncompleteItem blocks appending while the last row is unusable.
	ErrIncompleteItem = errors.New("last line item needs a name, amount and quantity before adding another")
	ErrUnknownAction  = errors.New("unknown line item action")
)

// Items is an ordered collection of line items. Order is display and
// submission order.
type Items []domain.LineItem

// New returns the initial collection: a single zero-valued item.
func New() Items {
	return Items{{}}
}

// FromLineItems adopts items loaded from the backend, recomputing every
// total. An empty input yields New().
func FromLineItems(src []domain.LineItem) Items {
	if len(src) == 0 {
		return New()
	}
	out := make(Items, len(src))
	for i, it := range src {
		it.Total = it.Amount * it.Quantity
		out[i] = it
	}
	return out
}

// Total is the sum of all item totals.
func (items Items) Total() float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}

// CanAppend reports whether the last item is complete enough to add another.
func (items Items) CanAppend() bool {
	if len(items) == 0 {
		return true
	}
	return complete(items[len(items)-1])
}

func complete(it domain.LineItem) bool {
	return strings.TrimSpace(it.Name) != "" && it.Amount > 0 && it.Quantity > 0
}

// UnmarshalJSON recomputes totals of decoded items; a total sent by the
// caller is never trusted. An empty list stays empty so validation can
// reject it.
func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []domain.LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Items, len(raw))
	for i, it := range raw {
		it.Total = it.Amount * it.Quantity
		out[i] = it
	}
	*items = out
	return nil
}

func (items Items) clone() Items {
	out := make(Items, len(items))
	copy(out, items)
	return out
}

// Action is one discrete change to the collection.
type Action interface {
	apply(Items) (Items, error)
}

// UpdateField replaces one field of the item at Index. Value is a string
// for FieldName; numeric fields accept numbers or numeric strings.
type UpdateField struct {
	Index int
	Field Field
	Value any
}

// Append adds a zero-valued item at the end.
type Append struct{}

// Remove deletes the item at Index. Removing the only item is a no-op.
type Remove struct {
	Index int
}

// Reduce applies a to items and returns the resulting collection. items is
// never modified.
func Reduce(items Items, a Action) (Items, error) {
	if a == nil {
		return nil, ErrUnknownAction
	}
	return a.apply(items)
}

func (u UpdateField) apply(items Items) (Items, error) {
	if u.Index < 0 || u.Index >= len(items) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, u.Index)
	}

	out := items.clone()
	it := out[u.Index]
	switch u.Field {
	case FieldName:
		name, ok := u.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: name must be text", ErrInvalidValue)
		}
		it.Name = name
	case FieldAmount, FieldQuantity:
		n, err := toNumber(u.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, u.Field, err)
		}
		if u.Field == FieldAmount {
			it.Amount = n
		} else {
			it.Quantity = n
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, u.Field)
	}
	it.Total = it.Amount * it.Quantity
	out[u.Index] = it
	return out, nil
}

func (Append) apply(items Items) (Items, error) {
	if !items.CanAppend() {
		return nil, ErrIncompleteItem
	}
	out := make(Items, len(items), len(items)+1)
	copy(out, items)
	return append(out, domain.LineItem{}), nil
}

func (r Remove) apply(items Items) (Items, error) {
	if r.Index < 0 || r.Index >= len(items) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, r.Index)
	}
	if len(items) == 1 {
		return items.clone(), nil
	}
	out := make(Items, 0, len(items)-1)
	out = append(out, items[:r.Index]...)
	return append(out, items[r.Index+1:]...), nil
}

func toNumber(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		n = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		n = f
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not a finite number")
	}
	return n, nil
}

// ActionPayload is the wire form of an Action.
type ActionPayload struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Field Field  `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Action converts the payload into an Action.
func (p ActionPayload) Action() (Action, error) {
	switch strings.ToLower(p.Type) {
	case "update", "updatefield", "update_field":
		return UpdateField{Index: p.Index, Field: p.Field, Value: p.Value}, nil
	case "append":
		return Append{}, nil
	case "remove":
		return Remove{Index: p.Index}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, p.Type)
}
