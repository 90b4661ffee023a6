package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Handle is the db.Handle for the MongoDB backend: the connected client and
// the configured database. Build stores on it with NewStore.
type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func (h *Handle) Close() error {
	return h.Client.Disconnect(context.Background())
}
