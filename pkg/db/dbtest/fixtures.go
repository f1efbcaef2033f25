package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// Catalog is a seeded phone with one variant and a small condition catalog:
// question "screen" (flawless +0, cracked -15%), defect "dent" (-20%),
// accessory "charger" (+300 abs).
type Catalog struct {
	CategoryID uuid.UUID
	Product    models.Product
	Variant    models.Variant
	Question   models.SellQuestion
	Defect     models.SellDefect
	Accessory  models.SellAccessory
}

// SeedCatalog inserts the fixture catalog with the given variant base price.
func SeedCatalog(t testing.TB, db *gorm.DB, basePrice int64) Catalog {
	t.Helper()

	categoryID := uuid.New()
	product := models.Product{ID: uuid.New(), CategoryID: categoryID, Name: "Pixel 8", Brand: "Google", IsActive: true}
	variant := models.Variant{ID: uuid.New(), ProductID: product.ID, Label: "128GB", BasePrice: basePrice, IsActive: true}
	question := models.SellQuestion{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Section:    "condition",
		Key:        "screen",
		Title:      "Screen condition",
		UIType:     "radio",
		IsActive:   true,
		Options: types.QuestionOptions{
			{Key: "flawless", Label: "Flawless", Delta: &types.Delta{Type: enums.DeltaTypeAbs, Sign: "+", Value: 0}},
			{Key: "cracked", Label: "Cracked", Delta: &types.Delta{Type: enums.DeltaTypePercent, Sign: "-", Value: 15}},
		},
	}
	defect := models.SellDefect{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Key:        "dent",
		Title:      "Dented frame",
		Delta:      types.Delta{Type: enums.DeltaTypePercent, Sign: "-", Value: 20},
		Severity:   enums.DefectSeverityModerate,
		IsActive:   true,
	}
	accessory := models.SellAccessory{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Key:        "charger",
		Title:      "Original charger",
		Delta:      types.Delta{Type: enums.DeltaTypeAbs, Sign: "+", Value: 300},
		IsActive:   true,
	}

	MustCreate(t, db, &product, &variant, &question, &defect, &accessory)
	return Catalog{
		CategoryID: categoryID,
		Product:    product,
		Variant:    variant,
		Question:   question,
		Defect:     defect,
		Accessory:  accessory,
	}
}
