package service

import (
	"context"

	billyfs "github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/forgeworks/componentvault/catalog"
	"github.com/forgeworks/componentvault/config"
	"github.com/forgeworks/componentvault/index"
	"github.com/forgeworks/componentvault/logging"
	"github.com/forgeworks/componentvault/repository"
	"github.com/forgeworks/componentvault/storage"
	"github.com/forgeworks/componentvault/validation"
)

// Bootstrap builds a fully wired Service from configuration: logger, store,
// repository manager, index, catalog and pipeline. The returned close
// function releases the store and must be called on shutdown.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Service, func() error, error) {
	logger := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Service: "componentvault",
		JSON:    cfg.Logging.JSON,
	})

	store, err := storage.Open(storage.Config{
		Path:       cfg.Storage.Path,
		SyncWrites: cfg.Storage.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	author := repository.Signature{
		Name:  cfg.Repository.AuthorName,
		Email: cfg.Repository.AuthorEmail,
	}

	repo, err := repository.OpenOrClone(ctx, &repository.Options{
		FS:             billyfs.NewOSFS(cfg.Repository.Path),
		RemoteURL:      cfg.Repository.RemoteURL,
		Branch:         cfg.Repository.Branch,
		LockPath:       cfg.Repository.LockPath,
		Maintainer:     author,
		NetworkTimeout: cfg.Repository.NetworkTimeout,
		Logger:         logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc, err := New(Options{
		Repo:    repo,
		Index:   index.New(store, logger),
		Catalog: catalog.New(store, logger),
		Pipeline: validation.New(validation.Options{
			StageTimeout: cfg.Validation.StageTimeout,
			Logger:       logger,
		}),
		Author: author,
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return svc, store.Close, nil
}
