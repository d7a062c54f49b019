package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ProductStatus is the review state of a product listing.
type ProductStatus string

const (
    ProductDraft    ProductStatus = "draft"
    ProductPending  ProductStatus = "pending"
    ProductApproved ProductStatus = "approved"
    ProductRejected ProductStatus = "rejected"
)

// LocalizedText holds the Chinese and English renditions of a text field.
type LocalizedText struct {
    ZH string `json:"zh"`
    EN string `json:"en"`
}

// Empty reports whether neither language is filled in.
func (t LocalizedText) Empty() bool { return t.ZH == "" && t.EN == "" }

// Product is a tour listed by exactly one merchant.  It corresponds to a
// row in the `products` table.  Orders keep their own copy of the title
// and price, so deleting a product never invalidates existing orders.
type Product struct {
    ID              string          `json:"id"`                          // products.id
    OwnerMerchantID string          `json:"owner_merchant_id"`           // products.owner_merchant_id
    Title           LocalizedText   `json:"title"`                       // products.title_zh / title_en
    Description     LocalizedText   `json:"description"`                 // products.description_zh / description_en
    BasePrice       decimal.Decimal `json:"base_price"`                  // products.base_price
    Status          ProductStatus   `json:"status"`                      // products.status
    RejectionReason string          `json:"rejection_reason,omitempty"` // products.rejection_reason (nullable)
    CreatedAt       time.Time       `json:"created_at"`                  // products.created_at
    UpdatedAt       time.Time       `json:"updated_at"`                  // products.updated_at
}

// DisplayTitle returns the English title, falling back to Chinese.
func (p Product) DisplayTitle() string {
    if p.Title.EN != "" {
        return p.Title.EN
    }
    return p.Title.ZH
}
