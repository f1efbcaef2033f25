package catalog

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// WizardDTO is everything the sell wizard needs to render a product.
type WizardDTO struct {
	Product     ProductDTO     `json:"product"`
	Variants    []VariantDTO   `json:"variants"`
	Questions   []QuestionDTO  `json:"questions"`
	Defects     []DefectDTO    `json:"defects"`
	Accessories []AccessoryDTO `json:"accessories"`
}

type ProductDTO struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
}

type VariantDTO struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	BasePrice int64     `json:"basePrice"`
}

type QuestionDTO struct {
	ID          uuid.UUID             `json:"id"`
	Section     string                `json:"section"`
	Key         string                `json:"key"`
	Title       string                `json:"title"`
	Order       int                   `json:"order"`
	UIType      string                `json:"uiType"`
	MultiSelect bool                  `json:"multiSelect"`
	Options     types.QuestionOptions `json:"options"`
}

type DefectDTO struct {
	ID       uuid.UUID            `json:"id"`
	Key      string               `json:"key"`
	Title    string               `json:"title"`
	Severity enums.DefectSeverity `json:"severity"`
	Delta    types.Delta          `json:"delta"`
}

type AccessoryDTO struct {
	ID    uuid.UUID   `json:"id"`
	Key   string      `json:"key"`
	Title string      `json:"title"`
	Order int         `json:"order"`
	Delta types.Delta `json:"delta"`
}

func toProductDTO(p models.Product) ProductDTO {
	return ProductDTO{ID: p.ID, CategoryID: p.CategoryID, Name: p.Name, Brand: p.Brand}
}

func toWizardDTO(product models.Product, questions []models.SellQuestion, defects []models.SellDefect, accessories []models.SellAccessory) WizardDTO {
	dto := WizardDTO{
		Product:     toProductDTO(product),
		Variants:    make([]VariantDTO, 0, len(product.Variants)),
		Questions:   make([]QuestionDTO, 0, len(questions)),
		Defects:     make([]DefectDTO, 0, len(defects)),
		Accessories: make([]AccessoryDTO, 0, len(accessories)),
	}
	for _, v := range product.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{ID: v.ID, Label: v.Label, BasePrice: v.BasePrice})
	}
	for _, q := range questions {
		dto.Questions = append(dto.Questions, QuestionDTO{
			ID:          q.ID,
			Section:     q.Section,
			Key:         q.Key,
			Title:       q.Title,
			Order:       q.SortOrder,
			UIType:      q.UIType,
			MultiSelect: q.MultiSelect,
			Options:     q.Options,
		})
	}
	for _, d := range defects {
		dto.Defects = append(dto.Defects, DefectDTO{ID: d.ID, Key: d.Key, Title: d.Title, Severity: d.Severity, Delta: d.Delta})
	}
	for _, a := range accessories {
		dto.Accessories = append(dto.Accessories, AccessoryDTO{ID: a.ID, Key: a.Key, Title: a.Title, Order: a.SortOrder, Delta: a.Delta})
	}
	return dto
}
