package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CartLine is the local mirror of one basket position.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// CartItem is a basket position exactly as the baskets API returns it.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Slug  string          `json:"slug,omitempty"`
	Price decimal.Decimal `json:"price"`
	Image ProductImage    `json:"image"`

	// Attributes keeps the product fields not listed above, as sent.
	Attributes map[string]json.RawMessage `json:"-"`
}

var productFields = []string{"id", "title", "slug", "price", "image"}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, f := range productFields {
		delete(raw, f)
	}
	if len(raw) > 0 {
		v.Attributes = raw
	}
	*p = Product(v)
	return nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return mergeAttributes(plain(p), p.Attributes)
}

type ProductImage struct {
	File ImageFile `json:"file"`
}

type ImageFile struct {
	URL string `json:"url"`
}

// ProductView is Product with the image reference flattened to its URL.
type ProductView struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Slug  string          `json:"slug,omitempty"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`

	Attributes map[string]json.RawMessage `json:"-"`
}

// MarshalJSON writes the extra attributes next to the known fields.
func (v ProductView) MarshalJSON() ([]byte, error) {
	type plain ProductView
	return mergeAttributes(plain(v), v.Attributes)
}

// mergeAttributes encodes known and adds attrs as top-level fields. Known
// fields win on a name clash.
func mergeAttributes(known any, attrs map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(attrs) == 0 {
		return data, err
	}
	out := make(map[string]json.RawMessage, len(attrs)+len(productFields))
	for k, val := range attrs {
		out[k] = val
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, val := range fields {
		out[k] = val
	}
	return json.Marshal(out)
}

type DetailLine struct {
	ProductID int64       `json:"product_id"`
	Amount    int         `json:"amount"`
	Product   ProductView `json:"product"`
}

type LoadingStatus struct {
	Loading bool `json:"loading"`
	Failed  bool `json:"failed"`
}

func (p Product) View() ProductView {
	return ProductView{
		ID:    p.ID,
		Title: p.Title,
		Slug:  p.Slug,
		Price: p.Price,
		Image: p.Image.File.URL,

		Attributes: p.Attributes,
	}
}
