// File: cmd/authctl/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"firebase_auth_session/internal/app"
	"firebase_auth_session/internal/auth"
	"firebase_auth_session/internal/backend"
	"firebase_auth_session/internal/config"
	"firebase_auth_session/internal/firebase"
	"firebase_auth_session/internal/localstore"
	"firebase_auth_session/internal/oauth"
	"firebase_auth_session/internal/platform/logger"
	"firebase_auth_session/internal/session"
	"firebase_auth_session/internal/shared"

	"github.com/google/wire"
)

// initializeApp is the main Wire injector.
func initializeApp(cfg *config.Config, prompt oauth.Prompter) (*app.App, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		localstore.New,

		// Firebase
		firebase.NewApp,
		firebase.NewFirestoreClient,
		provideIdentityService,
		wire.Bind(new(shared.IdentityProvider), new(*firebase.IdentityService)),
		provideUserRepository,

		// Federated sign-in and backend session
		oauth.NewGoogleFlow,
		wire.Bind(new(shared.FederatedFlow), new(*oauth.GoogleFlow)),
		backend.NewSessionClient,
		wire.Bind(new(shared.SessionBackend), new(*backend.SessionClient)),

		// Auth
		provideValidator,
		session.New,
		auth.NewPlatformAdapter,
		wire.Bind(new(auth.Operations), new(*auth.PlatformAdapter)),
		auth.NewService,

		// Application Layer
		app.New,
	)
	return nil, nil, nil
}
