package database

import (
	"testing"

	"go-pos/pkg/config"

	drv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMysqlDSN(t *testing.T) {
	dsn := MysqlDSN(config.MysqlConfig{Host: "db", Port: 3307, User: "pos", Password: "p@ss:word", DbName: "pos_audit"})

	parsed, err := drv.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "pos", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "pos_audit", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
