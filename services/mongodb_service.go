package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"xandpulse/config"
	"xandpulse/models"
)

// TelemetryStore persists snapshots and node history. A disconnected store
// accepts writes as no-ops and answers reads with empty results.
type TelemetryStore interface {
	Connected() bool
	SaveNetworkSnapshot(ctx context.Context, snapshot *models.NetworkSnapshot) error
	SaveNodeHistory(ctx context.Context, records []models.NodeHistoryRecord) error
	SaveRegistryDump(ctx context.Context, dump *models.RegistryDump) error
	NetworkSnapshotsSince(ctx context.Context, network string, start time.Time) ([]models.NetworkSnapshot, error)
	NodeHistorySince(ctx context.Context, address string, start time.Time) ([]models.NodeHistoryRecord, error)
	LatestNetworkSnapshot(ctx context.Context, network string) (*models.NetworkSnapshot, error)
	AggregateSnapshotStats(ctx context.Context, start time.Time) (*models.AggregatedStats, error)
}

type MongoDBService struct {
	client    *mongo.Client
	db        *mongo.Database
	enabled   bool
	retention time.Duration
}

const (
	CollectionNetworkSnapshots = "network_snapshots"
	CollectionNodeHistory      = "node_history"
	CollectionPodRegistry      = "pod_registry"
)

// NewMongoDBService always returns a usable service. When MongoDB is disabled
// or unreachable the service runs in no-op mode and the connection error is
// returned alongside it for logging.
func NewMongoDBService(cfg *config.Config) (*MongoDBService, error) {
	disabled := &MongoDBService{enabled: false, retention: cfg.RetentionDuration()}

	if !cfg.MongoDB.Enabled {
		log.Println("MongoDB is disabled in configuration")
		return disabled, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.MongoDB.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return disabled, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return disabled, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	service := &MongoDBService{
		client:    client,
		db:        client.Database(cfg.MongoDB.Database),
		enabled:   true,
		retention: cfg.RetentionDuration(),
	}

	if err := service.createIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	log.Printf("MongoDB connected successfully to database: %s (retention %v)", cfg.MongoDB.Database, service.retention)
	return service, nil
}

func (m *MongoDBService) Connected() bool {
	return m != nil && m.enabled
}

const ttlIndexName = "timestamp_ttl"

// codeIndexOptionsConflict is returned when an index exists under the same
// name with different options, e.g. after the retention was changed.
const codeIndexOptionsConflict = 85

// ttlIndex expires documents retention after their timestamp.
func (m *MongoDBService) ttlIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}},
		Options: options.Index().
			SetName(ttlIndexName).
			SetExpireAfterSeconds(m.ttlSeconds()),
	}
}

func (m *MongoDBService) ttlSeconds() int32 {
	return int32(m.retention.Seconds())
}

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func (m *MongoDBService) indexSpecs() []collectionIndexes {
	byNetwork := mongo.IndexModel{
		Keys:    bson.D{{Key: "network", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("network_timestamp"),
	}

	return []collectionIndexes{
		{
			collection: CollectionNetworkSnapshots,
			models:     []mongo.IndexModel{byNetwork, m.ttlIndex()},
		},
		{
			collection: CollectionNodeHistory,
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "address", Value: 1}, {Key: "timestamp", Value: -1}},
					Options: options.Index().SetName("address_timestamp"),
				},
				byNetwork,
				m.ttlIndex(),
			},
		},
		{
			collection: CollectionPodRegistry,
			models:     []mongo.IndexModel{byNetwork, m.ttlIndex()},
		},
	}
}

// createIndexes builds every collection's indexes independently; one
// collection failing does not leave the others without their TTL.
func (m *MongoDBService) createIndexes(ctx context.Context) error {
	if !m.enabled {
		return nil
	}

	var errs []error
	for _, spec := range m.indexSpecs() {
		if err := m.ensureIndexes(ctx, spec); err != nil {
			errs = append(errs, fmt.Errorf("%s indexes: %w", spec.collection, err))
		}
	}
	return errors.Join(errs...)
}

// ensureIndexes creates spec's indexes. An existing TTL index with another
// expiry is updated in place with collMod and the creation retried once.
func (m *MongoDBService) ensureIndexes(ctx context.Context, spec collectionIndexes) error {
	indexes := m.db.Collection(spec.collection).Indexes()

	_, err := indexes.CreateMany(ctx, spec.models)
	if !isIndexOptionsConflict(err) {
		return err
	}

	log.Printf("Updating %s TTL to %v", spec.collection, m.retention)
	cmd := bson.D{
		{Key: "collMod", Value: spec.collection},
		{Key: "index", Value: bson.D{
			{Key: "name", Value: ttlIndexName},
			{Key: "expireAfterSeconds", Value: m.ttlSeconds()},
		}},
	}
	if err := m.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("collMod %s: %w", ttlIndexName, err)
	}

	_, err = indexes.CreateMany(ctx, spec.models)
	return err
}

func isIndexOptionsConflict(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == codeIndexOptionsConflict
}

func (m *MongoDBService) Close() error {
	if !m.enabled || m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// ============================================
// INSERT METHODS
// ============================================

func (m *MongoDBService) SaveNetworkSnapshot(ctx context.Context, snapshot *models.NetworkSnapshot) error {
	if !m.enabled {
		return nil
	}
	_, err := m.db.Collection(CollectionNetworkSnapshots).InsertOne(ctx, snapshot)
	return err
}

// SaveNodeHistory writes all records in one batch.
func (m *MongoDBService) SaveNodeHistory(ctx context.Context, records []models.NodeHistoryRecord) error {
	if !m.enabled || len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	_, err := m.db.Collection(CollectionNodeHistory).InsertMany(ctx, docs)
	return err
}

func (m *MongoDBService) SaveRegistryDump(ctx context.Context, dump *models.RegistryDump) error {
	if !m.enabled {
		return nil
	}
	_, err := m.db.Collection(CollectionPodRegistry).InsertOne(ctx, dump)
	return err
}

// ============================================
// QUERY METHODS
// ============================================

func (m *MongoDBService) NetworkSnapshotsSince(ctx context.Context, network string, start time.Time) ([]models.NetworkSnapshot, error) {
	if !m.enabled {
		return []models.NetworkSnapshot{}, nil
	}

	filter := bson.M{
		"network":   network,
		"timestamp": bson.M{"$gte": start},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := m.db.Collection(CollectionNetworkSnapshots).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snapshots := []models.NetworkSnapshot{}
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}

	return snapshots, nil
}

func (m *MongoDBService) NodeHistorySince(ctx context.Context, address string, start time.Time) ([]models.NodeHistoryRecord, error) {
	if !m.enabled {
		return []models.NodeHistoryRecord{}, nil
	}

	filter := bson.M{
		"address":   address,
		"timestamp": bson.M{"$gte": start},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := m.db.Collection(CollectionNodeHistory).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.NodeHistoryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// LatestNetworkSnapshot returns nil, nil when the network has no stored snapshot.
func (m *MongoDBService) LatestNetworkSnapshot(ctx context.Context, network string) (*models.NetworkSnapshot, error) {
	if !m.enabled {
		return nil, nil
	}

	var snapshot models.NetworkSnapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	err := m.db.Collection(CollectionNetworkSnapshots).FindOne(ctx, bson.M{"network": network}, opts).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// AggregateSnapshotStats summarizes every network's snapshots since start.
func (m *MongoDBService) AggregateSnapshotStats(ctx context.Context, start time.Time) (*models.AggregatedStats, error) {
	if !m.enabled {
		return &models.AggregatedStats{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"timestamp": bson.M{"$gte": start},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"avgOnline":     bson.M{"$avg": "$onlineNodes"},
			"minOnline":     bson.M{"$min": "$onlineNodes"},
			"maxOnline":     bson.M{"$max": "$onlineNodes"},
			"avgCpu":        bson.M{"$avg": "$avgCpu"},
			"avgRam":        bson.M{"$avg": "$avgRam"},
			"snapshotCount": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := m.db.Collection(CollectionNetworkSnapshots).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := &models.AggregatedStats{}
	if cursor.Next(ctx) {
		if err := cursor.Decode(stats); err != nil {
			return nil, err
		}
	}
	return stats, cursor.Err()
}

// GetDatabaseStats returns document counts per collection.
func (m *MongoDBService) GetDatabaseStats(ctx context.Context) (map[string]int64, error) {
	stats := map[string]int64{}
	if !m.enabled {
		return stats, nil
	}

	for _, name := range []string{CollectionNetworkSnapshots, CollectionNodeHistory, CollectionPodRegistry} {
		count, err := m.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		stats[name] = count
	}
	return stats, nil
}
