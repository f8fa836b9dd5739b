// internal/service/order/infrastructure/models.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderModel 是订单表的数据库模型。
type OrderModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	CustomerID  string    `gorm:"size:36;index"`
	OrderNumber string    `gorm:"size:32;uniqueIndex"`
	Status      string    `gorm:"size:16;index"`
	OrderDate   time.Time `gorm:"index"`

	SubTotal       decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2)"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2)"`

	Notes string `gorm:"type:text"`

	ShipLine1      string `gorm:"size:255"`
	ShipLine2      string `gorm:"size:255"`
	ShipCity       string `gorm:"size:100"`
	ShipState      string `gorm:"size:100"`
	ShipPostalCode string `gorm:"size:20"`
	ShipCountry    string `gorm:"size:100"`

	// Version 是乐观锁列，UPDATE 必须带 WHERE version = ? 条件。
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 是订单行表的数据库模型。
type OrderItemModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	OrderID     string          `gorm:"size:36;index"`
	ProductID   string          `gorm:"size:36;index"`
	ProductName string          `gorm:"size:255"`
	ProductSKU  string          `gorm:"size:64"`
	Quantity    int
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// OutboxModel 是事务性 outbox 表：领域事件和业务变更在同一个事务里落库，
// relay 轮询未发送的行并发布到 Kafka。
type OutboxModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	EventID   string `gorm:"size:36;uniqueIndex"`
	EventType string `gorm:"size:64"`
	Topic     string `gorm:"size:128"`
	MsgKey    string `gorm:"size:64"`
	Payload   []byte `gorm:"type:json"`
	CreatedAt time.Time
	SentAt    *time.Time `gorm:"index"`
}

func (OutboxModel) TableName() string { return "order_outbox" }

// AutoMigrate 建表。生产环境由 DBA 管理 schema，这里服务于本地和集成测试。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OrderModel{}, &OrderItemModel{}, &OutboxModel{})
}
