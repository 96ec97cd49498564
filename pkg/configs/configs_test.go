package configs

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_DSN(t *testing.T) {
	pg := PostgresConfig{
		Driver:  "postgres",
		Host:    "db",
		Port:    5432,
		DBName:  "acaso",
		Auth:    PostgresAuth{User: "u", Password: "p"},
		SslMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=acaso sslmode=disable", pg.DSN())

	lite := PostgresConfig{Driver: "sqlite", DBName: "file:acaso.db"}
	assert.Equal(t, "file:acaso.db", lite.DSN())
}

func TestPostgresConfig_Validation(t *testing.T) {
	validate := validator.New()

	assert.NoError(t, validate.Struct(PostgresConfig{Driver: "sqlite", DBName: ":memory:"}))
	assert.Error(t, validate.Struct(PostgresConfig{Driver: "postgres", DBName: "acaso"}), "postgres needs a host")
	assert.Error(t, validate.Struct(PostgresConfig{Driver: "mysql", DBName: "acaso"}))
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{Host: "localhost", Port: 6379}.Addr())
}
