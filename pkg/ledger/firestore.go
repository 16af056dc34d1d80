package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewFirestoreClient creates a Firestore client, using Application Default
// Credentials unless a credentials file is configured.
func NewFirestoreClient(ctx context.Context, cfg *Config, logger zerolog.Logger) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	logger.Info().Str("project_id", cfg.ProjectID).Msg("Firestore client created successfully.")
	return client, nil
}

// FirestoreLedger stores marks as documents keyed by record id. Suitable for
// deployments where a dedicated Redis instance is overkill.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreLedger creates a FirestoreLedger over an externally managed client.
func NewFirestoreLedger(client *firestore.Client, collectionName string) (*FirestoreLedger, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if collectionName == "" {
		return nil, errors.New("collection name cannot be empty")
	}
	return &FirestoreLedger{
		client:     client,
		collection: collectionName,
	}, nil
}

// Seen reports whether a document exists for the record id.
func (l *FirestoreLedger) Seen(ctx context.Context, recordID string) (bool, error) {
	_, err := l.client.Collection(l.collection).Doc(recordID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("firestore get failed for record %s: %w", recordID, err)
	}
	return true, nil
}

// MarkDelivered creates or overwrites the record's document.
func (l *FirestoreLedger) MarkDelivered(ctx context.Context, recordID string, mark Mark) error {
	if mark.DeliveredAt.IsZero() {
		mark.DeliveredAt = time.Now().UTC()
	}
	if _, err := l.client.Collection(l.collection).Doc(recordID).Set(ctx, mark); err != nil {
		return fmt.Errorf("failed to set mark in firestore for record %s: %w", recordID, err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (l *FirestoreLedger) Close() error {
	return nil
}
