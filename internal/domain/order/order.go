package order

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

// Item is a snapshot of the product at order time. It is never re-derived from the catalog.
type Item struct {
	ProductID string `json:"productId"`
	SellerID  string `json:"sellerId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	ImageRef  string `json:"imageRef,omitempty"`
}

func (i Item) LineTotal() int64 { return i.UnitPrice * int64(i.Quantity) }

type Address struct {
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a Address) validate(field string) error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postalCode")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return Validation("%s is missing %s", field, strings.Join(missing, ", "))
	}
	return nil
}

type Tracking struct {
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	URL            string `json:"url,omitempty"`
}

// HistoryEntry is one append-only record of a status change.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

type Order struct {
	ID          string
	OrderNumber string
	BuyerID     string
	Items       []Item

	Subtotal     int64
	ShippingCost int64
	Tax          int64
	Total        int64
	Currency     string

	ShippingAddress Address
	BillingAddress  *Address

	PaymentMethod        string
	PaymentStatus        payment.Status
	GatewayCorrelationID string
	GatewayToken         string
	GatewayPaymentID     string
	AmountPaid           int64

	Status        Status
	StatusHistory []HistoryEntry
	Tracking      *Tracking

	PaidAt       *time.Time
	CancelledAt  *time.Time
	DeliveredAt  *time.Time
	RefundedAt   *time.Time
	RefundAmount int64
	RefundReason string

	// StockRestored is flipped by the same mutation that cancels the order, so exactly one
	// caller ever restores the reserved stock.
	StockRestored bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewParams are the inputs for a new order. Totals are computed, never supplied.
type NewParams struct {
	ID              string
	OrderNumber     string
	BuyerID         string
	Items           []Item
	ShippingAddress Address
	BillingAddress  *Address
	PaymentMethod   string
	Pricing         Pricing
	Now             time.Time
}

func New(p NewParams) (*Order, error) {
	if strings.TrimSpace(p.BuyerID) == "" {
		return nil, Validation("buyer id is required")
	}
	if p.ID == "" || p.OrderNumber == "" {
		return nil, Validation("order id and number are required")
	}
	if err := ValidateItems(p.Items); err != nil {
		return nil, err
	}
	if err := p.ShippingAddress.validate("shipping address"); err != nil {
		return nil, err
	}
	if p.BillingAddress != nil {
		if err := p.BillingAddress.validate("billing address"); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		return nil, Validation("payment method is required")
	}

	totals := p.Pricing.Quote(p.Items)
	now := p.Now.UTC()

	items := make([]Item, len(p.Items))
	copy(items, p.Items)

	return &Order{
		ID:              p.ID,
		OrderNumber:     p.OrderNumber,
		BuyerID:         p.BuyerID,
		Items:           items,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.ShippingCost,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Currency:        p.Pricing.Currency,
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		PaymentMethod:   strings.ToLower(p.PaymentMethod),
		PaymentStatus:   payment.StatusPending,
		Status:          StatusPlaced,
		StatusHistory:   []HistoryEntry{{Status: StatusPlaced, Timestamp: now, Note: "order placed"}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ValidateItems checks the snapshot lines independently of the catalog.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return Validation("order must contain at least one item")
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return Validation("item product id is required")
		}
		if it.Quantity <= 0 {
			return Validation("quantity for product %s must be greater than zero", it.ProductID)
		}
		if it.UnitPrice < 0 {
			return Validation("unit price for product %s must not be negative", it.ProductID)
		}
	}
	return nil
}

// Lines returns the stock movements this order reserved.
func (o *Order) Lines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// TotalsConsistent reports whether the pricing invariant holds.
func (o *Order) TotalsConsistent() bool {
	return o.Total == o.Subtotal+o.ShippingCost+o.Tax
}

func (o *Order) IsCOD() bool {
	return o.PaymentMethod == MethodCOD
}

// MethodCOD is the cash-on-delivery payment method.
const MethodCOD = "cod"

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	if o.BillingAddress != nil {
		b := *o.BillingAddress
		c.BillingAddress = &b
	}
	if o.Tracking != nil {
		t := *o.Tracking
		c.Tracking = &t
	}
	c.PaidAt = cloneTime(o.PaidAt)
	c.CancelledAt = cloneTime(o.CancelledAt)
	c.DeliveredAt = cloneTime(o.DeliveredAt)
	c.RefundedAt = cloneTime(o.RefundedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (o *Order) appendHistory(s Status, note string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: s, Timestamp: now, Note: note})
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
}
