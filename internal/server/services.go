package server

import (
	"context"
	"fmt"

	"github.com/openmined/songbox/internal/db"
	"github.com/openmined/songbox/internal/server/blob"
	"github.com/openmined/songbox/internal/server/upload"
)

type Services struct {
	Blob   blob.Backend
	Upload *upload.SessionManager
}

// NewServices wires the blob backend, the session index and the session manager.
// opts are passed on to the session manager.
func NewServices(ctx context.Context, config *Config, opts ...upload.Option) (*Services, error) {
	backend, err := blob.NewBackend(ctx, &config.Blob)
	if err != nil {
		return nil, fmt.Errorf("create blob backend: %w", err)
	}

	database, err := db.NewSqliteDB(db.WithPath(config.DBPath()), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}

	mgr, err := upload.NewSessionManager(&config.Upload, database, backend, opts...)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	return &Services{
		Blob:   backend,
		Upload: mgr,
	}, nil
}

func (s *Services) Start(ctx context.Context) error {
	if err := s.Upload.Start(ctx); err != nil {
		return fmt.Errorf("start session manager: %w", err)
	}
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.Upload.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop session manager: %w", err)
	}
	return nil
}
