package mem_provider

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

var pLog = log.New(os.Stdout, "MEMDB: ", log.Ldate|log.Ltime)

// MemProvider is the in-memory twin of the Mongo provider, used in tests and
// for "mockdb:" URLs. It deliberately does not survive restarts, which is why
// production deployments use the Mongo provider.
type MemProvider struct {
	DbUrl  string
	DbName string

	mu           sync.RWMutex
	correlations map[string]model.CorrelationRecord
	secrets      map[string]string
}

func Open(dbUrl string, dbName string) (*MemProvider, error) {
	if dbUrl != "" && !strings.HasPrefix(dbUrl, "mockdb:") {
		return nil, fmt.Errorf("memory provider only supports 'mockdb:' URL prefix, got: %s", dbUrl)
	}
	if dbName == "" {
		dbName = "kafkaauth"
	}

	pLog.Println("Initializing new in-memory database [" + dbName + "]")
	return &MemProvider{
		DbUrl:        dbUrl,
		DbName:       dbName,
		correlations: map[string]model.CorrelationRecord{},
		secrets:      map[string]string{},
	}, nil
}

func (m *MemProvider) Name() string {
	return m.DbName
}

func (m *MemProvider) Check() error {
	return nil
}

func (m *MemProvider) Close() error {
	return nil
}

func (m *MemProvider) PutCorrelation(record model.CorrelationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.correlations[record.TransferId] = record
	return nil
}

func (m *MemProvider) GetCorrelation(transferId string) (*model.CorrelationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.correlations[transferId]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &record, nil
}

func (m *MemProvider) MarkProvisioned(transferId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.correlations[transferId]
	if !ok {
		return model.ErrNotFound
	}
	record.State = model.CorrelationProvisioned
	m.correlations[transferId] = record
	return nil
}

func (m *MemProvider) DeleteCorrelation(transferId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.correlations[transferId]; !ok {
		return model.ErrNotFound
	}
	delete(m.correlations, transferId)
	return nil
}

func (m *MemProvider) ListPending(olderThan time.Time) ([]model.CorrelationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []model.CorrelationRecord
	for _, record := range m.correlations {
		if record.State == model.CorrelationPending && record.CreatedAt.Before(olderThan) {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *MemProvider) ResolveSecret(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.secrets[key]
	return value, ok
}

func (m *MemProvider) StoreSecret(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[key] = value
	return nil
}

func (m *MemProvider) DeleteSecret(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, key)
	return nil
}
