package app

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tour-marketplace/internal/config"
	"github.com/iliyamo/tour-marketplace/internal/model"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBuildMemoryStoreAndSeed(t *testing.T) {
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg := config.Config{
		StoreDriver:       "memory",
		BusinessTZ:        "UTC",
		BcryptCost:        bcrypt.MinCost,
		MaxRetries:        1,
		SeedAdminEmail:    "root@example.com",
		SeedAdminPassword: "s3cret-pass",
	}
	a, err := Build(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Redis)

	require.NoError(t, a.SeedAdmin(context.Background()))
	require.NoError(t, a.SeedAdmin(context.Background()))
	u, err := a.Engine.UserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, model.UserApproved, u.Status)
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	_, err := Build(context.Background(), config.Config{StoreDriver: "sqlite"}, quiet())
	assert.ErrorContains(t, err, "sqlite")
}
