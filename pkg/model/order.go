package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type OrderType string

const (
	DineIn     OrderType = "dine_in"
	Takeout    OrderType = "takeout"
	Delivery   OrderType = "delivery"
	PhoneOrder OrderType = "phone_order"
)

// Human renders the order type for people: "dine_in" -> "Dine In".
func (t OrderType) Human() string {
	// a Caser is stateful, so one per call
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}

type Modifier struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

type LineItem struct {
	MenuItemName string     `json:"menu_item_name"`
	Description  string     `json:"description,omitempty"`
	Quantity     int        `json:"quantity"`
	Price        *float64   `json:"price"`
	TotalPrice   *float64   `json:"total_price,omitempty"`
	Modifiers    []Modifier `json:"modifiers,omitempty"`
}

// LineTotal is the backend's total_price when present, otherwise
// price*quantity + sum(modifier prices)*quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	if li.TotalPrice != nil {
		return decimal.NewFromFloat(*li.TotalPrice)
	}
	qty := decimal.NewFromInt(int64(li.Quantity))
	unit := Decimal(li.Price)
	for _, m := range li.Modifiers {
		unit = unit.Add(Decimal(m.Price))
	}
	return unit.Mul(qty)
}

type Order struct {
	ID              FlexString `json:"id"`
	OrderNumber     FlexString `json:"order_number,omitempty"`
	Status          string     `json:"status,omitempty"`
	OrderType       OrderType  `json:"order_type,omitempty"`
	TableNumber     FlexString `json:"table_number,omitempty"`
	Items           []LineItem `json:"items"`
	Subtotal        *float64   `json:"subtotal"`
	Tax             *float64   `json:"tax"`
	Total           *float64   `json:"total"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CustomerPhone   string     `json:"customer_phone,omitempty"`
	CustomerAddress string     `json:"customer_address,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	ChangeAmount    *float64   `json:"change_amount,omitempty"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
}

// SubtotalOrItems is the order subtotal, falling back to the sum of line totals when the
// backend left it null.
func (o Order) SubtotalOrItems() decimal.Decimal {
	if o.Subtotal != nil {
		return decimal.NewFromFloat(*o.Subtotal)
	}
	sum := decimal.Zero
	for _, li := range o.Items {
		sum = sum.Add(li.LineTotal())
	}
	return sum
}

type CancelRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

const CancelReasonOther = "other"

type TaxRate struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	// Percent, e.g. 8.25.
	Rate      float64     `json:"rate"`
	IsActive  bool        `json:"is_active"`
	AppliesTo []OrderType `json:"applies_to,omitempty"`
}

// AppliesToType reports whether the rate covers t; an empty list covers every order type.
func (r TaxRate) AppliesToType(t OrderType) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, a := range r.AppliesTo {
		if a == t {
			return true
		}
	}
	return false
}

type Staff struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	Role string     `json:"role"`
}

type PinLoginResponse struct {
	AccessToken string `json:"access_token"`
	Staff       Staff  `json:"staff"`
}

// Decimal converts a nullable backend amount, treating null as zero.
func Decimal(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
