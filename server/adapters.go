package server

import (
	"context"

	"gorm.io/gorm"

	"ptw/internal/api"
	"ptw/internal/models"
	"ptw/internal/permit"
	"ptw/internal/repo"
	"ptw/internal/sweep"
)

// catalogSource — справочник, который устраивает и движок (чек-лист гейт),
// и catalog-эндпоинты API.
type catalogSource interface {
	permit.Catalog
	api.CatalogReader
}

// buildCore выбирает реализацию хранилищ: gorm поверх настроенной БД либо
// in-memory (dev-режим без БД). Пустые справочники и таблица политик
// засеиваются baseline-набором.
func buildCore(ctx context.Context, gdb *gorm.DB) (permit.Store, catalogSource, []models.ApprovalPolicy, sweep.Source, error) {
	if gdb == nil {
		store := permit.NewMemStore()
		return store, permit.DefaultCatalog(), permit.DefaultPolicies(), store, nil
	}

	ps := repo.NewPermitStore(gdb)
	cs := repo.NewCatalogStore(gdb)
	pols := repo.NewPolicyStore(gdb)

	if err := cs.Seed(ctx); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := pols.Seed(ctx); err != nil {
		return nil, nil, nil, nil, err
	}
	rows, err := pols.LoadAll(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return ps, cs, rows, ps, nil
}
