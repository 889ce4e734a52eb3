package models

import "time"

// Sale is one sales line booked by a representative.
type Sale struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	RepresentativeID uint      `json:"representative_id" gorm:"index;not null"`
	Date             Date      `json:"date" gorm:"not null"`
	ProductGroup     string    `json:"product_group" gorm:"not null"`
	Brand            string    `json:"brand" gorm:"not null"`
	ProductName      string    `json:"product_name" gorm:"not null"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	UnitPrice        float64   `json:"unit_price" gorm:"not null"`
	TotalPrice       float64   `json:"total_price" gorm:"not null"`
	NetPrice         float64   `json:"net_price" gorm:"not null"`
	CustomerName     string    `json:"customer_name"`
	CustomerCode     string    `json:"customer_code"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for Sale Model
func (Sale) TableName() string {
	return "sales"
}

// Return is one returned-goods line booked against a representative.
type Return struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	RepresentativeID uint      `json:"representative_id" gorm:"index;not null"`
	Date             Date      `json:"date" gorm:"not null"`
	ProductGroup     string    `json:"product_group" gorm:"not null"`
	Brand            string    `json:"brand" gorm:"not null"`
	ProductName      string    `json:"product_name" gorm:"not null"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	UnitPrice        float64   `json:"unit_price" gorm:"not null"`
	TotalPrice       float64   `json:"total_price" gorm:"not null"`
	NetPrice         float64   `json:"net_price" gorm:"not null"`
	ReturnReason     string    `json:"return_reason"`
	CustomerName     string    `json:"customer_name"`
	CustomerCode     string    `json:"customer_code"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for Return Model
func (Return) TableName() string {
	return "returns"
}
