package models

import "time"

type MonthlySales struct {
	Month  string  `bson:"_id"    json:"month"` // YYYY-MM
	Sales  float64 `bson:"sales"  json:"sales"`
	Orders int     `bson:"orders" json:"orders"`
}

type DashboardStats struct {
	TotalSales        float64               `json:"totalSales"`
	OrdersByStatus    map[OrderStatus]int64 `json:"ordersByStatus"`
	TotalOrders       int64                 `json:"totalOrders"`
	ProductCount      int64                 `json:"productCount"`
	CustomerCount     int64                 `json:"customerCount"`
	AverageOrderValue float64               `json:"averageOrderValue"`
	MonthlySales      []MonthlySales        `json:"monthlySales"`
}

// Customer is derived from orders; there are no customer accounts.
type Customer struct {
	Email       string    `bson:"_id"         json:"email"`
	Name        string    `bson:"name"        json:"name"`
	Phone       string    `bson:"phone"       json:"phone"`
	City        string    `bson:"city"        json:"city"`
	OrderCount  int       `bson:"orderCount"  json:"orderCount"`
	TotalSpent  float64   `bson:"totalSpent"  json:"totalSpent"`
	LastOrderAt time.Time `bson:"lastOrderAt" json:"lastOrderAt"`
}
