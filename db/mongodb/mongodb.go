// Package mongodb provides the silk storage backend for MongoDB, built on
// the official driver. Use Open to connect, then NewStore to get a per
// entity type store over one collection.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dekarrin/silk/types"
)

// Config holds what Open needs to reach a MongoDB deployment.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the name of the database stores will live in.
	Database string

	// ConnectTimeout bounds the initial connect-and-ping. Zero means a
	// 3-second default.
	ConnectTimeout time.Duration
}

// Open connects to the deployment named by cfg and verifies the connection
// with a ping before returning the client. A nil logger is allowed.
func Open(cfg Config, log types.Logger) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is empty")
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if log != nil {
		log.Infof("connected to mongodb database %q", cfg.Database)
	}
	return client, nil
}

// WrapDBError wraps an error from the MongoDB driver into an error useable
// by the rest of the silk module. It should be called on any error returned
// from the driver before the store passes the error back to a caller.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return types.ErrConstraintViolation
	}
	return err
}
