package corrStore

import (
	"strings"

	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore/mem_provider"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore/mongo_provider"
)

// OpenProvider detects the database URL and returns the matching provider.
// URLs starting with "mockdb:" select the in-memory provider, anything else
// is handed to the MongoDB provider.
func OpenProvider(dbUrl string, dbName string) (Provider, error) {
	if strings.HasPrefix(dbUrl, "mockdb:") {
		return mem_provider.Open(dbUrl, dbName)
	}
	return mongo_provider.Open(dbUrl, dbName)
}
