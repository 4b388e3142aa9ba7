package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Pool = (*pgxpool.Pool)(nil)
	_ Pool = (pgxmock.PgxPoolIface)(nil)
)

func TestQualifiedTable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postcodes", `"postcodes"`},
		{"ref.postcodes", `"ref"."postcodes"`},
		{`evil"; DROP TABLE x; --`, `"evil""; DROP TABLE x; --"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifiedTable(tt.in))
		})
	}
}

func TestOpen_EmptyConnString(t *testing.T) {
	_, err := Open(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty connection string")
}

func TestOpen_InvalidConnString(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", &PoolConfig{MaxConns: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
