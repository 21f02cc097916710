package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/Tasklane/internal/domain"
	"github.com/Strob0t/Tasklane/internal/domain/project"
)

func TestProjectService_Isolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	demoAdmin := f.demoAdmin(t)
	acme := f.tenant(t, AcmeSubdomain)

	acmeProjects, _, err := f.projects.List(ctx, f.acmeAdmin(t), project.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(acmeProjects) != 1 {
		t.Fatalf("acme projects = %+v", acmeProjects)
	}
	acmeProject := acmeProjects[0]

	t.Run("own listing excludes other tenants", func(t *testing.T) {
		list, pg, err := f.projects.List(ctx, demoAdmin, project.ListFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || pg.Total != 1 || list[0].TenantID != demoAdmin.TenantID() {
			t.Fatalf("list = %+v", list)
		}
	})

	t.Run("other tenant in filter is not found", func(t *testing.T) {
		list, _, err := f.projects.List(ctx, demoAdmin, project.ListFilter{TenantID: acme.ID})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v (list %+v)", err, list)
		}
	})

	t.Run("own tenant in filter is allowed", func(t *testing.T) {
		list, _, err := f.projects.List(ctx, demoAdmin, project.ListFilter{TenantID: demoAdmin.TenantID()})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].TenantID != demoAdmin.TenantID() {
			t.Fatalf("list = %+v", list)
		}
	})

	t.Run("cross tenant get update delete are not found", func(t *testing.T) {
		if _, err := f.projects.Get(ctx, demoAdmin, acmeProject.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		name := "pwned"
		if _, err := f.projects.Update(ctx, demoAdmin, acmeProject.ID, project.UpdateRequest{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("update: expected ErrNotFound, got %v", err)
		}
		if err := f.projects.Delete(ctx, demoAdmin, acmeProject.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("delete: expected ErrNotFound, got %v", err)
		}
		if _, _, err := f.projects.ListForTenant(ctx, demoAdmin, acme.ID, project.ListFilter{}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("tenant listing: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("create in other tenant is not found", func(t *testing.T) {
		_, err := f.projects.Create(ctx, demoAdmin, project.CreateRequest{Name: "Elsewhere", TenantID: acme.ID})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		list, _, err := f.projects.List(ctx, demoAdmin, project.ListFilter{})
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range list {
			if p.Name == "Elsewhere" {
				t.Fatalf("project redirected into caller tenant: %+v", p)
			}
		}
	})

	t.Run("create naming own tenant", func(t *testing.T) {
		p, err := f.projects.Create(ctx, demoAdmin, project.CreateRequest{Name: "Mine", TenantID: demoAdmin.TenantID()})
		if err != nil {
			t.Fatal(err)
		}
		if p.TenantID != demoAdmin.TenantID() {
			t.Fatalf("project created in %s, want %s", p.TenantID, demoAdmin.TenantID())
		}
	})
}

func TestProjectService_SuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	super := f.superAdmin(t)
	demo := f.tenant(t, DemoSubdomain)

	all, _, err := f.projects.List(ctx, super, project.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("super admin sees %d projects, want 2", len(all))
	}

	demoOnly, _, err := f.projects.ListForTenant(ctx, super, demo.ID, project.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(demoOnly) != 1 || demoOnly[0].TenantID != demo.ID {
		t.Fatalf("demo projects = %+v", demoOnly)
	}
	if _, err := f.projects.Get(ctx, super, demoOnly[0].ID); err != nil {
		t.Fatalf("super admin get: %v", err)
	}

	if _, err := f.projects.Create(ctx, super, project.CreateRequest{Name: "No tenant"}); !errors.Is(err, domain.ErrInput) {
		t.Fatalf("expected ErrInput without tenantId, got %v", err)
	}
	p, err := f.projects.Create(ctx, super, project.CreateRequest{Name: "Ops", TenantID: demo.ID})
	if err != nil {
		t.Fatal(err)
	}
	if p.TenantID != demo.ID {
		t.Fatalf("tenant = %s", p.TenantID)
	}
}

func TestProjectService_MemberDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.demoAdmin(t)
	member := f.member(t, DemoSubdomain, "m@demo.com")

	adminProject, err := f.projects.Create(ctx, admin, project.CreateRequest{Name: "Admin's"})
	if err != nil {
		t.Fatal(err)
	}
	own, err := f.projects.Create(ctx, member, project.CreateRequest{Name: "Member's"})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.projects.Delete(ctx, member, adminProject.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.projects.Delete(ctx, member, own.ID); err != nil {
		t.Fatalf("member deleting own project: %v", err)
	}
	if err := f.projects.Delete(ctx, admin, adminProject.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestProjectService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.demoAdmin(t)
	p, err := f.projects.Create(ctx, admin, project.CreateRequest{Name: "Draft"})
	if err != nil {
		t.Fatal(err)
	}

	name := "Final"
	got, err := f.projects.Update(ctx, admin, p.ID, project.UpdateRequest{Name: &name, Status: project.StatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Final" || got.Status != project.StatusCompleted {
		t.Fatalf("project = %+v", got)
	}
	if _, err := f.projects.Update(ctx, admin, p.ID, project.UpdateRequest{Status: "paused"}); !errors.Is(err, domain.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}
