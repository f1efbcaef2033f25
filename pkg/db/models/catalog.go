package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// Product is a sellable device model. Prices live on its variants.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	Brand      string    `gorm:"column:brand;not null;default:''"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	Variants   []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Variant is a storage/colour configuration of a product with its own base price.
type Variant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Label     string    `gorm:"column:label;not null"`
	BasePrice int64     `gorm:"column:base_price;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Variant) TableName() string { return "product_variants" }

// SellQuestion is a condition question shown by the sell wizard for a category.
type SellQuestion struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  uuid.UUID             `gorm:"column:category_id;type:uuid;not null"`
	Section     string                `gorm:"column:section;not null;default:''"`
	Key         string                `gorm:"column:key;not null"`
	Title       string                `gorm:"column:title;not null"`
	SortOrder   int                   `gorm:"column:sort_order;not null;default:0"`
	UIType      string                `gorm:"column:ui_type;not null;default:'radio'"`
	MultiSelect bool                  `gorm:"column:multi_select;not null;default:false"`
	Options     types.QuestionOptions `gorm:"column:options;type:jsonb;serializer:json"`
	IsActive    bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// SellDefect is a selectable physical defect with its price adjustment.
type SellDefect struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID            `gorm:"column:category_id;type:uuid;not null"`
	Key        string               `gorm:"column:key;not null"`
	Title      string               `gorm:"column:title;not null"`
	Delta      types.Delta          `gorm:"column:delta;type:jsonb;serializer:json"`
	Severity   enums.DefectSeverity `gorm:"column:severity;not null;default:'minor'"`
	IsActive   bool                 `gorm:"column:is_active;not null;default:true"`
	SortOrder  int                  `gorm:"column:sort_order;not null;default:0"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SellAccessory is a selectable accessory (charger, box) with its price adjustment.
type SellAccessory struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID uuid.UUID   `gorm:"column:category_id;type:uuid;not null"`
	Key        string      `gorm:"column:key;not null"`
	Title      string      `gorm:"column:title;not null"`
	Delta      types.Delta `gorm:"column:delta;type:jsonb;serializer:json"`
	IsActive   bool        `gorm:"column:is_active;not null;default:true"`
	SortOrder  int         `gorm:"column:sort_order;not null;default:0"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellAccessory) TableName() string { return "sell_accessories" }
