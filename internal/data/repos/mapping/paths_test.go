package mapping_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ontoroute/ontoroute/internal/data/repos/mapping"
	"github.com/ontoroute/ontoroute/internal/data/repos/testutil"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
)

func TestListPaths(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := mapping.NewMappingPathRepo(gdb, testutil.Logger(t))

	uniprotAPI := testutil.SeedResource(t, ctx, gdb, "uniprot-api")
	sifts := testutil.SeedResource(t, ctx, gdb, "sifts")

	testutil.SeedPath(t, ctx, gdb, "secondary", "uniprot", "pdb", 20, sifts)
	testutil.SeedPath(t, ctx, gdb, "primary", "uniprot", "pdb", 10, uniprotAPI, sifts)
	testutil.SeedPath(t, ctx, gdb, "other pair", "uniprot", "ensembl", 1, uniprotAPI)

	inactive := testutil.SeedPath(t, ctx, gdb, "disabled", "uniprot", "pdb", 1, uniprotAPI)
	if err := gdb.Model(inactive).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate path: %v", err)
	}

	paths, err := repo.ListPaths(dbctx.Context{Ctx: ctx}, "uniprot", "pdb")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("want 2 paths, got %d", len(paths))
	}
	if paths[0].Name != "primary" || paths[1].Name != "secondary" {
		t.Fatalf("not ordered by priority: %s, %s", paths[0].Name, paths[1].Name)
	}
	if len(paths[0].Steps) != 2 {
		t.Fatalf("steps not preloaded: %d", len(paths[0].Steps))
	}
	if paths[0].Steps[0].Resource.Name == "" {
		t.Fatal("step resource not preloaded")
	}
}

func TestListPathsEmptyArgs(t *testing.T) {
	gdb := testutil.DB(t)
	repo := mapping.NewMappingPathRepo(gdb, testutil.Logger(t))

	paths, err := repo.ListPaths(dbctx.Context{Ctx: context.Background()}, "", "pdb")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("want no paths, got %d", len(paths))
	}
}

func TestCreatePaths(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	repo := mapping.NewMappingPathRepo(gdb, testutil.Logger(t))

	res := testutil.SeedResource(t, ctx, gdb, "uniprot-api")
	err := repo.Create(dbctx.Context{Ctx: ctx}, []*types.MappingPath{
		{ID: uuid.New(), Name: "created", SourceType: "uniprot", TargetType: "pdb", Priority: 1, Active: true,
			Steps: []types.MappingPathStep{{ID: uuid.New(), ResourceID: res.ID, StepOrder: 1}}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	paths, err := repo.ListPaths(dbctx.Context{Ctx: ctx}, "uniprot", "pdb")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 1 || paths[0].Name != "created" {
		t.Fatalf("created path not listed: %+v", paths)
	}
}
