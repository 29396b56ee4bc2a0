//go:build e2e

package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// startMongoTC returns the URI of a throwaway MongoDB container.
func startMongoTC(ctx context.Context, t *testing.T) string {
	t.Helper()
	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:8.0",
			ExposedPorts: []string{"27017/tcp"},
			Env: map[string]string{
				"MONGO_INITDB_ROOT_USERNAME": "root",
				"MONGO_INITDB_ROOT_PASSWORD": "example",
			},
			WaitingFor: wait.ForExec([]string{"mongosh", "--eval", "db.adminCommand('ping')"}).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoC.Terminate(context.Background()) })

	host, err := mongoC.Host(ctx)
	require.NoError(t, err)
	port, err := mongoC.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://root:example@%s:%s/", host, port.Port())
}

func newE2ERepo(t *testing.T) *KVRepo {
	t.Helper()
	ctx := context.Background()
	uri := startMongoTC(ctx, t)

	cli, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Disconnect(context.Background()) })

	repo, err := NewKVRepo(ctx, cli.Database("postit_e2e"))
	require.NoError(t, err)
	require.NoError(t, repo.Ping(ctx))
	return repo
}

func TestKVRepoE2E(t *testing.T) {
	repo := newE2ERepo(t)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "postit:notes", json.RawMessage(`{"p1":{"note1":{"color":"yellow"}}}`)))
	require.NoError(t, repo.Set(ctx, "theme", json.RawMessage(`"dark"`)))
	require.NoError(t, repo.Set(ctx, "postit:notes", json.RawMessage(`{}`)))

	v, found, err := repo.Get(ctx, "postit:notes")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{}`, string(v))

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"postit:notes", "theme"}, keys)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.JSONEq(t, `"dark"`, string(all["theme"]))

	require.NoError(t, repo.Remove(ctx, "theme"))
	require.NoError(t, repo.Remove(ctx, "theme"))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Clear(ctx))
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestKVRepoE2ERejectsBadInput(t *testing.T) {
	repo := newE2ERepo(t)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", json.RawMessage(`1`)))
	assert.Error(t, repo.Set(ctx, "k", json.RawMessage(`{nope`)))

	require.NoError(t, repo.Set(ctx, "k", nil))
	v, _, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "null", string(v))
}
