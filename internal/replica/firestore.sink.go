package replica

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

type FirestoreSink struct {
	client *firestore.Client
}

// NewFirestoreSink connects through the Firebase admin SDK. Without explicit
// credentials it falls back to application default credentials.
func NewFirestoreSink(ctx context.Context, cfg FirestoreConfig) (*FirestoreSink, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	default:
		logger.Warn("firestore: no explicit credentials, using application defaults")
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase app")
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init firestore client")
	}

	logger.Info("firestore sink initialized", "project", cfg.ProjectID)
	return &FirestoreSink{client: client}, nil
}

func (s *FirestoreSink) Name() string {
	return SinkFirestore
}

func (s *FirestoreSink) Upsert(ctx context.Context, collection, docID string, doc map[string]any) error {
	_, err := s.client.Collection(collection).Doc(docID).Set(ctx, doc, firestore.MergeAll)
	return errors.Wrapf(err, "firestore upsert %s/%s", collection, docID)
}

// Delete is idempotent: a missing document is not an error.
func (s *FirestoreSink) Delete(ctx context.Context, collection, docID string) error {
	_, err := s.client.Collection(collection).Doc(docID).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return errors.Wrapf(err, "firestore delete %s/%s", collection, docID)
}

func (s *FirestoreSink) Close() error {
	return s.client.Close()
}
