package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	"firebase_auth_session/internal/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// NewApp initializes the Firebase SDK app. A service account key is optional: without
// one the SDK falls back to application default credentials, or to the emulator when
// FIRESTORE_EMULATOR_HOST is set.
func NewApp(cfg *config.Config, logger *zap.Logger) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseServiceAccountKeyPath != "" {
		opts = append(opts, option.WithCredentialsFile(filepath.Clean(cfg.FirebaseServiceAccountKeyPath)))
	}

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(context.Background(), conf, opts...)
	if err != nil {
		logger.Error("Failed to initialize Firebase app", zap.Error(err), zap.String("projectID", cfg.FirebaseProjectID))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	logger.Info("Firebase app initialized", zap.String("projectID", cfg.FirebaseProjectID))
	return app, nil
}

// NewFirestoreClient opens the Firestore client holding user documents.
func NewFirestoreClient(app *firebase.App, logger *zap.Logger) (*firestore.Client, func(), error) {
	client, err := app.Firestore(context.Background())
	if err != nil {
		logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Firestore client", zap.Error(err))
		}
	}
	return client, cleanup, nil
}
