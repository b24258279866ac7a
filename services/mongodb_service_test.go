package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"xandpulse/models"
)

const thirtyDays = 30 * 24 * time.Hour

func mockStore(mt *mtest.T) *MongoDBService {
	return &MongoDBService{client: mt.Client, db: mt.DB, enabled: true, retention: thirtyDays}
}

func TestTTLIndexExpiry(t *testing.T) {
	m := &MongoDBService{retention: thirtyDays}
	idx := m.ttlIndex()

	assert.Equal(t, bson.D{{Key: "timestamp", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options.ExpireAfterSeconds)
	assert.Equal(t, int32(2592000), *idx.Options.ExpireAfterSeconds)
	assert.Equal(t, ttlIndexName, *idx.Options.Name)
}

func TestIndexSpecs(t *testing.T) {
	m := &MongoDBService{retention: thirtyDays}
	specs := m.indexSpecs()

	require.Len(t, specs, 3)
	assert.Equal(t, CollectionNetworkSnapshots, specs[0].collection)
	assert.Equal(t, CollectionNodeHistory, specs[1].collection)
	assert.Equal(t, CollectionPodRegistry, specs[2].collection)

	for _, spec := range specs {
		last := spec.models[len(spec.models)-1]
		assert.Equal(t, ttlIndexName, *last.Options.Name, spec.collection)
		assert.Equal(t, int32(2592000), *last.Options.ExpireAfterSeconds, spec.collection)
	}

	history := specs[1].models
	assert.Equal(t, bson.D{{Key: "address", Value: 1}, {Key: "timestamp", Value: -1}}, history[0].Keys)
	assert.Equal(t, bson.D{{Key: "network", Value: 1}, {Key: "timestamp", Value: -1}}, history[1].Keys)
}

func TestMongoDBServiceMock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("node history is one insert", func(mt *mtest.T) {
		m := mockStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		now := time.Now().UTC()
		records := []models.NodeHistoryRecord{
			{Address: "1.1.1.1:9001", Network: "devnet", Timestamp: now, Status: "online"},
			{Address: "2.2.2.2:9001", Network: "devnet", Timestamp: now, Status: "online"},
			{Address: "3.3.3.3:9001", Network: "devnet", Timestamp: now, Status: "online"},
		}
		require.NoError(t, m.SaveNodeHistory(context.Background(), records))

		events := mt.GetAllStartedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "insert", events[0].CommandName)
		assert.Equal(t, CollectionNodeHistory, events[0].Command.Lookup("insert").StringValue())
		docs, err := events[0].Command.Lookup("documents").Array().Values()
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	mt.Run("empty node history sends nothing", func(mt *mtest.T) {
		m := mockStore(mt)

		require.NoError(t, m.SaveNodeHistory(context.Background(), nil))
		require.NoError(t, m.SaveNodeHistory(context.Background(), []models.NodeHistoryRecord{}))
		assert.Empty(t, mt.GetAllStartedEvents())
	})

	mt.Run("latest snapshot missing", func(mt *mtest.T) {
		m := mockStore(mt)
		ns := mt.DB.Name() + "." + CollectionNetworkSnapshots
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		snap, err := m.LatestNetworkSnapshot(context.Background(), "devnet")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	mt.Run("latest snapshot found", func(mt *mtest.T) {
		m := mockStore(mt)
		ns := mt.DB.Name() + "." + CollectionNetworkSnapshots
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "network", Value: "devnet"},
			{Key: "onlineNodes", Value: 12},
			{Key: "totalPods", Value: 20},
		}))

		snap, err := m.LatestNetworkSnapshot(context.Background(), "devnet")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "devnet", snap.Network)
		assert.Equal(t, 12, snap.OnlineNodes)
		assert.Equal(t, 20, snap.TotalPods)
	})

	mt.Run("index failure does not stop other collections", func(mt *mtest.T) {
		m := mockStore(mt)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := m.createIndexes(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), CollectionNetworkSnapshots)
		assert.NotContains(t, err.Error(), CollectionNodeHistory)

		var targets []string
		for _, evt := range mt.GetAllStartedEvents() {
			require.Equal(t, "createIndexes", evt.CommandName)
			targets = append(targets, evt.Command.Lookup("createIndexes").StringValue())
		}
		assert.Equal(t, []string{CollectionNetworkSnapshots, CollectionNodeHistory, CollectionPodRegistry}, targets)
	})

	mt.Run("changed retention is applied with collMod", func(mt *mtest.T) {
		m := mockStore(mt)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    codeIndexOptionsConflict,
				Name:    "IndexOptionsConflict",
				Message: "An equivalent index already exists with a different name and options",
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(t, m.createIndexes(context.Background()))

		events := mt.GetAllStartedEvents()
		var names []string
		for _, evt := range events {
			names = append(names, evt.CommandName)
		}
		assert.Equal(t, []string{"createIndexes", "collMod", "createIndexes", "createIndexes", "createIndexes"}, names)

		collMod := events[1].Command
		assert.Equal(t, CollectionNetworkSnapshots, collMod.Lookup("collMod").StringValue())
		assert.Equal(t, ttlIndexName, collMod.Lookup("index", "name").StringValue())
		assert.Equal(t, int32(2592000), collMod.Lookup("index", "expireAfterSeconds").Int32())
	})

	mt.Run("disabled store sends nothing", func(mt *mtest.T) {
		m := mockStore(mt)
		m.enabled = false

		require.NoError(t, m.createIndexes(context.Background()))
		require.NoError(t, m.SaveNodeHistory(context.Background(), []models.NodeHistoryRecord{{Address: "a"}}))
		snap, err := m.LatestNetworkSnapshot(context.Background(), "devnet")
		require.NoError(t, err)
		assert.Nil(t, snap)
		assert.Empty(t, mt.GetAllStartedEvents())
	})
}
