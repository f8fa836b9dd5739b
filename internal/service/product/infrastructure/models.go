// internal/service/product/infrastructure/models.go
package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel 对应 products 表。
type ProductModel struct {
	ID           string          `gorm:"primaryKey;size:36"`
	Name         string          `gorm:"size:255;not null"`
	SKU          string          `gorm:"size:64;uniqueIndex;not null"`
	Description  string          `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock        int             `gorm:"not null"`
	MinimumStock int             `gorm:"not null;default:0"`
	IsActive     bool            `gorm:"not null;default:true"`
	Version      int64           `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ProductModel) TableName() string { return "products" }

// AutoMigrate 建表。生产环境应改用迁移脚本，这里跟随演示环境的做法。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ProductModel{})
}
