package database

import (
	"path/filepath"
	"testing"

	"github.com/skondo/wordkeep/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		path func(tmpDir string) string
	}{
		{
			name: "creates database file in existing directory",
			path: func(tmpDir string) string {
				return filepath.Join(tmpDir, "wordkeep.db")
			},
		},
		{
			name: "creates missing parent directories",
			path: func(tmpDir string) string {
				return filepath.Join(tmpDir, "nested", "data", "wordkeep.db")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(config.DatabaseConfig{Path: tt.path(t.TempDir())})
			require.NoError(t, err)
			require.NotNil(t, got)
			defer got.Close()

			assert.Equal(t, "sqlite3", got.DriverName())
			assert.NoError(t, got.Ping())
		})
	}
}
