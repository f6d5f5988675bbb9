package core

// lineitems.go parses the product_ids cell: a JSON list whose elements are
// either bare product references or objects carrying item details.
//
//	["SKU-1", 42]
//	[{"id": "SKU-1", "name": "Mug", "price": "12.50", "quantity": 2}]

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLineItems decodes a product_ids cell. The list must hold at least
// one element and every element must name a product reference.
func ParseLineItems(raw string) ([]LineItem, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: trailing data after list")
	}

	list, ok := v.([]any)
	if !ok {
		return nil, errors.New("must be a JSON list")
	}
	if len(list) == 0 {
		return nil, errors.New("must contain at least one product")
	}

	items := make([]LineItem, 0, len(list))
	for i, elem := range list {
		item, err := parseLineItem(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseLineItem(elem any) (LineItem, error) {
	switch e := elem.(type) {
	case map[string]any:
		return parseLineItemObject(e)
	default:
		ref, err := parseReference(elem)
		if err != nil {
			return LineItem{}, err
		}
		return LineItem{Reference: ref, Quantity: 1}, nil
	}
}

func parseReference(v any) (string, error) {
	switch r := v.(type) {
	case string:
		ref := strings.TrimSpace(r)
		if ref == "" {
			return "", errors.New("empty product reference")
		}
		return ref, nil
	case json.Number:
		return r.String(), nil
	case nil:
		return "", errors.New("missing product reference")
	default:
		return "", fmt.Errorf("product reference must be a string or number, got %T", v)
	}
}

func parseLineItemObject(obj map[string]any) (LineItem, error) {
	ref, err := parseReference(obj["id"])
	if err != nil {
		return LineItem{}, fmt.Errorf("id: %w", err)
	}
	item := LineItem{Reference: ref, Quantity: 1}

	if v, ok := obj["name"]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return LineItem{}, errors.New("name must be a string")
		}
		item.Name = strings.TrimSpace(name)
	}

	if v, ok := obj["price"]; ok && v != nil {
		var s string
		switch p := v.(type) {
		case json.Number:
			s = p.String()
		case string:
			s = p
		default:
			return LineItem{}, errors.New("price must be a number or string")
		}
		d, err := ParseAmount(s)
		if err != nil {
			return LineItem{}, fmt.Errorf("price: %w", err)
		}
		if d.IsNegative() {
			return LineItem{}, errors.New("price must not be negative")
		}
		if err := CheckAmount(d); err != nil {
			return LineItem{}, fmt.Errorf("price: %w", err)
		}
		item.Price = decimal.NewNullDecimal(d)
	}

	if v, ok := obj["quantity"]; ok && v != nil {
		n, ok := v.(json.Number)
		if !ok {
			return LineItem{}, errors.New("quantity must be an integer")
		}
		q, err := n.Int64()
		if err != nil {
			return LineItem{}, errors.New("quantity must be an integer")
		}
		if q < 1 {
			return LineItem{}, errors.New("quantity must be at least 1")
		}
		if q > math.MaxInt32 {
			return LineItem{}, fmt.Errorf("quantity must be at most %d", math.MaxInt32)
		}
		item.Quantity = int32(q)
	}

	if v, ok := obj["attributes"]; ok && v != nil {
		attrs, ok := v.(map[string]any)
		if !ok {
			return LineItem{}, errors.New("attributes must be a JSON object")
		}
		b, err := json.Marshal(attrs)
		if err != nil {
			return LineItem{}, fmt.Errorf("attributes: %w", err)
		}
		item.Attributes = b
	}

	return item, nil
}

// OrderTotal picks the stored order total: the explicit value when
// given, otherwise the sum of price times quantity when every item is
// priced, otherwise NULL.
func OrderTotal(explicit decimal.NullDecimal, items []LineItem) decimal.NullDecimal {
	if explicit.Valid {
		return explicit
	}
	if len(items) == 0 {
		return decimal.NullDecimal{}
	}

	sum := decimal.Zero
	for _, it := range items {
		if !it.Price.Valid {
			return decimal.NullDecimal{}
		}
		sum = sum.Add(it.Price.Decimal.Mul(decimal.NewFromInt32(it.Quantity)))
	}
	return decimal.NewNullDecimal(sum)
}
