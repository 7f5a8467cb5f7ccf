package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexFields(models []mongo.IndexModel) []string {
	fields := make([]string, len(models))
	for i, m := range models {
		fields[i] = m.Keys.(bson.D)[0].Key
	}
	return fields
}

func isUnique(m mongo.IndexModel) bool {
	return m.Options != nil && m.Options.Unique != nil && *m.Options.Unique
}

func TestCollectionIndexes(t *testing.T) {
	assert.Equal(t, []string{"category_id"}, indexFields(categoryIndexes))
	assert.Equal(t,
		[]string{"product_id", "category_id", "is_active", "base_price"},
		indexFields(productIndexes))
	assert.Equal(t,
		[]string{"user_id", "geo_data.state", "registration_date"},
		indexFields(userIndexes))
	assert.Equal(t,
		[]string{"transaction_id", "user_id", "session_id", "timestamp", "status", "items.product_id"},
		indexFields(transactionIndexes))
}

func TestCollectionIndexes_PrimaryIDsUnique(t *testing.T) {
	for _, models := range [][]mongo.IndexModel{
		categoryIndexes, productIndexes, userIndexes, transactionIndexes,
	} {
		require.NotEmpty(t, models)
		assert.True(t, isUnique(models[0]), "first index of %v must be unique", indexFields(models))
		for _, m := range models[1:] {
			assert.False(t, isUnique(m), "secondary index %v must not be unique", m.Keys)
		}
	}
}
