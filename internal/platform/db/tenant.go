package db

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	DBConnKey   contextKey = "db_conn"
)

// TenantHeader selects the ward tenant when no token claim does.
const TenantHeader = "X-Tenant-ID"

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SchemaName maps a tenant identifier to its Postgres schema.
func SchemaName(tenantID string) string {
	return "tenant_" + tenantID
}

// ValidTenantID reports whether id is safe to splice into a schema name.
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// TenantMiddleware pins one pooled connection per request to the tenant's
// schema and stores it in the request context for repositories to pick up.
func TenantMiddleware(pool *pgxpool.Pool, defaultTenant string, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := extractTenantID(c, defaultTenant)
			if !ValidTenantID(tenantID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid tenant identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				logger.Error().Err(err).Str("tenant_id", tenantID).Msg("acquire connection")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaName(tenantID))); err != nil {
				logger.Error().Err(err).Str("tenant_id", tenantID).Msg("set search_path")
				return echo.NewHTTPError(http.StatusInternalServerError, "tenant resolution failed")
			}

			ctx = context.WithValue(ctx, TenantIDKey, tenantID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("tenant_id", tenantID)

			return next(c)
		}
	}
}

// extractTenantID prefers the token claim, then the header, then the default.
func extractTenantID(c echo.Context, defaultTenant string) string {
	if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
		return tid
	}
	if tid := c.Request().Header.Get(TenantHeader); tid != "" {
		return tid
	}
	return defaultTenant
}

// ConnFromContext retrieves the tenant-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TenantFromContext retrieves the tenant ID from context.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(TenantIDKey).(string)
	return tid
}

// CreateTenantSchema creates the tenant's schema and, when migrations is not
// nil, applies every pending migration to it.
func CreateTenantSchema(ctx context.Context, pool *pgxpool.Pool, tenantID string, migrations fs.FS) (int, error) {
	if !ValidTenantID(tenantID) {
		return 0, fmt.Errorf("invalid tenant identifier: %s", tenantID)
	}
	schema := SchemaName(tenantID)

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return 0, fmt.Errorf("create schema %s: %w", schema, err)
	}
	if migrations == nil {
		return 0, nil
	}
	n, err := NewMigrator(pool, migrations).Up(ctx, schema)
	if err != nil {
		return n, fmt.Errorf("run migrations for %s: %w", schema, err)
	}
	return n, nil
}
