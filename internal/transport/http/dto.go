package http

import (
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/samber/lo"
)

type MarkGeneratorRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type MarkUniqueRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
}

type OutcomeResponse struct {
	CategoryID string `json:"category_id"`
	Outcome    string `json:"outcome"`
}

type GeneratorItem struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UniqueCategoryItem struct {
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

type RoomsResponse struct {
	CategoryID string   `json:"category_id"`
	Items      []string `json:"items"`
}

func toGeneratorItems(gens []domain.GeneratorCategory) []GeneratorItem {
	return lo.Map(gens, func(g domain.GeneratorCategory, _ int) GeneratorItem {
		return GeneratorItem{
			CategoryID: g.CategoryID,
			Name:       g.Name,
			CreatedAt:  g.CreatedAt,
			UpdatedAt:  g.UpdatedAt,
		}
	})
}

func toUniqueCategoryItems(cats []domain.UniqueCategory) []UniqueCategoryItem {
	return lo.Map(cats, func(c domain.UniqueCategory, _ int) UniqueCategoryItem {
		return UniqueCategoryItem{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Kind:       string(c.Kind),
			CreatedAt:  c.CreatedAt,
		}
	})
}
