package vault

import (
	"context"
	"errors"
)

// Default records created by SeedDefaults.
const (
	DefaultCatalogName           = "MTGJSON Catalog"
	DefaultCollectionName        = "My Collection"
	DefaultCollectionDescription = "Default Magic: The Gathering collection"
)

// SeedDefaults ensures the default MTGJSON catalog and its collection exist.
// Existing records are matched by name and returned unchanged, so the call
// can be repeated.
func (s *Store) SeedDefaults(ctx context.Context) (*Catalog, *Collection, error) {
	cat, err := s.FindCatalogByName(ctx, DefaultCatalogName)
	if errors.Is(err, ErrNotFound) {
		cat, err = s.CreateCatalog(ctx, NewCatalog{
			Name:         DefaultCatalogName,
			SourceType:   SourceMTGJSON,
			SourceConfig: map[string]any{"version": nil, "last_updated": nil},
		})
	}
	if err != nil {
		return nil, nil, err
	}

	all, err := s.ListCollections(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range all {
		if all[i].Name == DefaultCollectionName {
			s.log.Debug("defaults already seeded", "catalog", cat.ID, "collection", all[i].ID)
			return cat, &all[i], nil
		}
	}

	col, err := s.CreateCollection(ctx, NewCollection{
		Name:        DefaultCollectionName,
		Description: DefaultCollectionDescription,
		ItemType:    ItemTypeMTGCard,
		CatalogID:   cat.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("seeded defaults", "catalog", cat.ID, "collection", col.ID)
	return cat, col, nil
}
