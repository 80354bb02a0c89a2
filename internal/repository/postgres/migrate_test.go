package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/dispatch?sslmode=disable", "pgx5://u:p@db:5432/dispatch?sslmode=disable"},
		{"postgresql://db/dispatch", "pgx5://db/dispatch"},
		{"pgx5://db/dispatch", "pgx5://db/dispatch"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in))
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "migrations/000001_create_deliveries.up.sql")
	assert.Contains(t, files, "migrations/000001_create_deliveries.down.sql")
}
