package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/Strob0t/Tasklane/internal/domain/access"
)

// psql is the statement builder for every query on tenant-owned tables.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// tenantColumn returns the ownership column of from, qualified with the
// table alias when from is written as "table alias".
func tenantColumn(from string) string {
	if i := strings.LastIndexByte(from, ' '); i >= 0 {
		return from[i+1:] + ".tenant_id"
	}
	return "tenant_id"
}

// scopedSelect starts a SELECT on a tenant-owned table restricted to scope.
// A zero scope is refused with domain.ErrUnscoped.
func scopedSelect(scope access.Scope, from string, columns ...string) (sq.SelectBuilder, error) {
	if err := scope.Check(); err != nil {
		return sq.SelectBuilder{}, err
	}
	b := psql.Select(columns...).From(from)
	if !scope.AllTenants {
		b = b.Where(sq.Eq{tenantColumn(from): scope.TenantID})
	}
	return b, nil
}

// scopedUpdate starts an UPDATE on a tenant-owned table restricted to scope.
func scopedUpdate(scope access.Scope, table string) (sq.UpdateBuilder, error) {
	if err := scope.Check(); err != nil {
		return sq.UpdateBuilder{}, err
	}
	b := psql.Update(table)
	if !scope.AllTenants {
		b = b.Where(sq.Eq{"tenant_id": scope.TenantID})
	}
	return b, nil
}

// scopedDelete starts a DELETE on a tenant-owned table restricted to scope.
func scopedDelete(scope access.Scope, table string) (sq.DeleteBuilder, error) {
	if err := scope.Check(); err != nil {
		return sq.DeleteBuilder{}, err
	}
	b := psql.Delete(table)
	if !scope.AllTenants {
		b = b.Where(sq.Eq{"tenant_id": scope.TenantID})
	}
	return b, nil
}
