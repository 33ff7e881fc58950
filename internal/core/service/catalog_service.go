package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

// CatalogService resolves equipment for the storefront. Prices always come
// from here, never from the client.
type CatalogService struct {
	catalog port.CatalogRepository
}

func NewCatalogService(catalog port.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) Equipment(ctx context.Context, equipmentID string) (domain.EquipmentItem, error) {
	item, err := s.catalog.GetEquipment(ctx, equipmentID)
	if err != nil {
		return domain.EquipmentItem{}, fmt.Errorf("get equipment: %w", err)
	}
	if item == nil {
		return domain.EquipmentItem{}, fmt.Errorf("%w: %s", ErrEquipmentNotFound, equipmentID)
	}
	return *item, nil
}

func (s *CatalogService) List(ctx context.Context) ([]domain.EquipmentItem, error) {
	items, err := s.catalog.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return items, nil
}

// PackageLine is one entry of a bundle request before catalog resolution.
type PackageLine struct {
	EquipmentID   string               `json:"equipmentId"`
	Quantity      int                  `json:"quantity"`
	Customization domain.Customization `json:"customization"`
}

// ResolvePackage turns bundle entries into cart lines priced from the catalog.
func (s *CatalogService) ResolvePackage(ctx context.Context, lines []PackageLine) ([]domain.CartLineItem, error) {
	out := make([]domain.CartLineItem, 0, len(lines))
	for _, l := range lines {
		item, err := s.Equipment(ctx, l.EquipmentID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CartLineItem{Equipment: item, Quantity: l.Quantity, Customization: l.Customization})
	}
	return out, nil
}

// DecodeSeed reads a JSON array of equipment items.
func DecodeSeed(r io.Reader) ([]domain.EquipmentItem, error) {
	var items []domain.EquipmentItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}
	return items, nil
}

// Seed writes items through seeder. Items without an id are rejected before
// anything is written; unknown availability is stored as in-stock.
func (s *CatalogService) Seed(ctx context.Context, seeder port.CatalogSeeder, items []domain.EquipmentItem) (int, error) {
	for i, it := range items {
		if it.ID == "" {
			return 0, fmt.Errorf("catalog seed entry %d has no id", i)
		}
		if it.Price < 0 {
			return 0, fmt.Errorf("catalog seed entry %s has a negative price", it.ID)
		}
	}

	for n, it := range items {
		if it.AvailabilityStatus != domain.AvailabilityMadeToOrder {
			it.AvailabilityStatus = domain.AvailabilityInStock
		}
		if err := seeder.UpsertEquipment(ctx, it); err != nil {
			return n, fmt.Errorf("upsert %s: %w", it.ID, err)
		}
	}
	return len(items), nil
}
