package mongo_provider

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CDbName = "kafkaauth"
const CDbCorrelations = "correlations"
const CDbSecrets = "secrets"
const CEnvDbName = "KAUTH_DBNAME"

var pLog = log.New(os.Stdout, "MONGO: ", log.Ldate|log.Ltime)

// secretRec is the stored form of a secret store entry.
type secretRec struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

// MongoProvider persists correlation records and secrets in MongoDB. The
// correlation record carries the admin connection properties so revocation
// still works after a process restart.
type MongoProvider struct {
	DbUrl     string
	DbName    string
	client    *mongo.Client
	authDb    *mongo.Database
	corrCol   *mongo.Collection
	secretCol *mongo.Collection
	dbInit    bool
}

func (m *MongoProvider) Name() string {
	return m.DbName
}

func (m *MongoProvider) initialize(ctx context.Context) error {
	m.authDb = m.client.Database(m.DbName)
	m.corrCol = m.authDb.Collection(CDbCorrelations)
	m.secretCol = m.authDb.Collection(CDbSecrets)

	indexTransfer := mongo.IndexModel{
		Keys:    bson.D{{Key: "transfer_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.corrCol.Indexes().CreateOne(ctx, indexTransfer); err != nil {
		return err
	}

	indexKey := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.secretCol.Indexes().CreateOne(ctx, indexKey); err != nil {
		return err
	}

	m.dbInit = true
	return nil
}

// Open connects to the Mongo database at the URL given and initializes the
// correlation and secret collections if necessary.
func Open(dbUrl string, dbName string) (*MongoProvider, error) {
	ctx := context.Background()

	if dbName == "" {
		dbEnvName, dbDefined := os.LookupEnv(CEnvDbName)
		if dbDefined {
			dbName = dbEnvName
		} else {
			dbName = CDbName
		}
	}

	if dbUrl == "" {
		dbUrl = "mongodb://localhost:27017/"
		pLog.Printf("Defaulting Mongo Database to local: %s", dbUrl)
	}

	opts := options.Client().ApplyURI(dbUrl)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	m := &MongoProvider{
		DbUrl:  dbUrl,
		DbName: dbName,
		client: client,
	}

	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	pLog.Printf("Connected to database [%s]", dbName)
	return m, nil
}

func (m *MongoProvider) Check() error {
	return m.client.Ping(context.Background(), nil)
}

func (m *MongoProvider) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *MongoProvider) ResetDb() error {
	err := m.authDb.Drop(context.TODO())
	m.dbInit = false
	if err != nil {
		return err
	}
	return m.initialize(context.TODO())
}

func (m *MongoProvider) PutCorrelation(record model.CorrelationRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.corrCol.ReplaceOne(context.TODO(), bson.D{{Key: "transfer_id", Value: record.TransferId}}, record, opts)
	return err
}

func (m *MongoProvider) GetCorrelation(transferId string) (*model.CorrelationRecord, error) {
	var record model.CorrelationRecord
	err := m.corrCol.FindOne(context.TODO(), bson.D{{Key: "transfer_id", Value: transferId}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (m *MongoProvider) MarkProvisioned(transferId string) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "state", Value: model.CorrelationProvisioned}}}}
	res, err := m.corrCol.UpdateOne(context.TODO(), bson.D{{Key: "transfer_id", Value: transferId}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (m *MongoProvider) DeleteCorrelation(transferId string) error {
	res, err := m.corrCol.DeleteOne(context.TODO(), bson.D{{Key: "transfer_id", Value: transferId}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (m *MongoProvider) ListPending(olderThan time.Time) ([]model.CorrelationRecord, error) {
	filter := bson.D{
		{Key: "state", Value: model.CorrelationPending},
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: olderThan}}},
	}
	cursor, err := m.corrCol.Find(context.TODO(), filter)
	if err != nil {
		return nil, err
	}
	var records []model.CorrelationRecord
	if err := cursor.All(context.TODO(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoProvider) ResolveSecret(key string) (string, bool) {
	var rec secretRec
	err := m.secretCol.FindOne(context.TODO(), bson.D{{Key: "key", Value: key}}).Decode(&rec)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			pLog.Printf("Error resolving secret [%s]: %s", key, err.Error())
		}
		return "", false
	}
	return rec.Value, true
}

func (m *MongoProvider) StoreSecret(key string, value string) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.secretCol.ReplaceOne(context.TODO(), bson.D{{Key: "key", Value: key}}, secretRec{Key: key, Value: value}, opts)
	return err
}

func (m *MongoProvider) DeleteSecret(key string) error {
	_, err := m.secretCol.DeleteOne(context.TODO(), bson.D{{Key: "key", Value: key}})
	return err
}
