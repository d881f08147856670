package config

import (
	"fmt"
	"time"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/pdfdoc"
	"pdf-workbench/internal/render"
	"pdf-workbench/internal/repository"
	"pdf-workbench/internal/service"
	"pdf-workbench/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config   domain.Config
	Settings Settings
	Logger   domain.Logger

	Engine   domain.DocumentEngine
	Renderer domain.Renderer

	EditorService    *service.EditorService
	SignatureService *service.SignatureService
	PreviewService   *service.PreviewService
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	config := NewConfig()
	return NewContainerWithConfig(config, logger.NewLogger(config.GetLogLevel()))
}

// named tags a logger with a component when it supports it.
func named(l domain.Logger, component string) domain.Logger {
	if n, ok := l.(interface {
		Named(string) *logger.AppLogger
	}); ok {
		return n.Named(component)
	}
	return l
}

// NewContainerWithConfig wires the services over an explicit configuration.
func NewContainerWithConfig(config domain.Config, appLogger domain.Logger) (*Container, error) {
	settings, err := LoadSettings(config.GetSettingsPath())
	if err != nil {
		return nil, err
	}

	engine := pdfdoc.NewEngine(named(appLogger, "pdf"))
	renderer := render.NewFitzRenderer(named(appLogger, "render"))
	timeout := time.Duration(config.GetNetworkTimeoutSeconds()) * time.Second

	signLogger := named(appLogger, "sign")
	store := service.NewResourceStore(timeout, signLogger)
	saver := service.NewSaveService(config.GetSaveDir(), config.GetWorkDir(), named(appLogger, "save"))
	signer := service.NewSignatureService(store, config.GetKeyDir(), config.GetSignatureDir(), settings.PubkeyStorageBase, signLogger)
	preview := service.NewPreviewService(renderer, service.DefaultThumbnailWidth, service.DefaultThumbnailWorkers, named(appLogger, "preview"))
	extract := service.NewExtractService(engine, renderer, config.GetWorkDir(), appLogger)
	editor := service.NewEditorService(engine, saver, signer, preview, extract, named(appLogger, "editor"))

	return &Container{
		Config:           config,
		Settings:         settings,
		Logger:           appLogger,
		Engine:           engine,
		Renderer:         renderer,
		EditorService:    editor,
		SignatureService: signer,
		PreviewService:   preview,
	}, nil
}

// NewKeyRepository builds the public key store selected by
// KEY_STORE_BACKEND. The Supabase backend connects immediately.
func (c *Container) NewKeyRepository() (domain.KeyRepository, error) {
	switch c.Config.GetKeyStoreBackend() {
	case KeyStoreFile, "":
		return repository.NewFileKeyRepository(c.Config.GetKeyFilesDir(), c.Logger), nil
	case KeyStoreSupabase:
		client := repository.NewSupabaseClient(c.Config, c.Logger)
		if err := client.Initialize(); err != nil {
			return nil, err
		}
		return repository.NewSupabaseKeyRepository(client, c.Logger), nil
	}
	return nil, fmt.Errorf("unknown key store backend %q", c.Config.GetKeyStoreBackend())
}
