// File: cmd/authctl/providers.go
package main

import (
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/firebase"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/user"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Wire cannot call variadic constructors, so these pin the arguments.

func provideIdentityService(cfg *config.Config, store localstore.Store, logger *zap.Logger) (*firebase.IdentityService, func(), error) {
	return firebase.NewIdentityService(cfg, store, logger)
}

func provideValidator() *validator.Validate {
	return validator.New()
}

func provideUserRepository(cfg *config.Config, client *firestore.Client) user.Repository {
	return user.NewFirestoreRepository(client, cfg.UsersCollection)
}
