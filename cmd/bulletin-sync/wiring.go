package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignite/bulletin-sync/internal/config"
	"github.com/ignite/bulletin-sync/internal/mautic"
	"github.com/ignite/bulletin-sync/internal/odoo"
	"github.com/ignite/bulletin-sync/internal/pkg/httpclient"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
	"github.com/ignite/bulletin-sync/internal/pkg/runlock"
	"github.com/ignite/bulletin-sync/internal/runner"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
	"github.com/ignite/bulletin-sync/internal/service/contacts"
	"github.com/ignite/bulletin-sync/internal/storage"
)

// app holds everything a command needs for one process lifetime
type app struct {
	runner  *runner.Runner
	storage *storage.Storage
	close   func()
}

// paths selects which runs the app must be able to execute
type paths struct {
	imports    bool
	dispatches bool
}

func buildApp(ctx context.Context, cfg *config.Config, want paths) (*app, error) {
	var importer runner.Importer
	if want.imports {
		if err := cfg.ValidateImport(); err != nil {
			return nil, err
		}
		importer = buildContactService(cfg)
	}

	var dispatcher runner.Dispatcher
	if want.dispatches {
		if err := cfg.ValidateDispatch(); err != nil {
			return nil, err
		}
		svc, err := buildBulletinService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dispatcher = svc
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	locker, closeLocker, err := buildLocker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		runner:  runner.New(importer, dispatcher, locker, store),
		storage: store,
		close:   closeLocker,
	}, nil
}

func buildContactService(cfg *config.Config) *contacts.Service {
	dir := odoo.NewClient(odoo.Config{
		BaseURL:  cfg.Odoo.BaseURL,
		Database: cfg.Odoo.Database,
		Username: cfg.Odoo.Username,
		Password: cfg.Odoo.Password,
	}, httpclient.New(nil, "odoo", cfg.Odoo.Timeout()))

	m := cfg.Import.FieldMapping
	mapping := contacts.FieldMapping{
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
		Mobile:    m.Mobile,
		City:      m.City,
		OptIn:     m.OptIn,
	}
	return contacts.NewService(dir, mapping, cfg.Import.TagName)
}

func buildBulletinService(ctx context.Context, cfg *config.Config) (*bulletin.Service, error) {
	channels, err := bulletin.ParseChannels(cfg.Bulletin.Channels)
	if err != nil {
		return nil, fmt.Errorf("bulletin.channels: %w", err)
	}

	platform := mautic.NewClient(mautic.Config{
		BaseURL:   cfg.Mautic.BaseURL,
		Username:  cfg.Mautic.Username,
		Password:  cfg.Mautic.Password,
		BasicAuth: !cfg.Mautic.UsesOAuth2(),
	}, mauticHTTPClient(ctx, cfg.Mautic), mautic.NewConsole(cfg.Mautic.ConsoleCommand, mautic.ExecRunner{}))

	return bulletin.NewService(platform, bulletin.Settings{
		EmailTemplateID:  cfg.Bulletin.EmailTemplateID,
		SMSTemplateID:    cfg.Bulletin.SMSTemplateID,
		SourceCampaignID: cfg.Bulletin.SourceCampaignID,
		BaseCampaignName: cfg.Bulletin.BaseCampaignName,
		OptInField:       cfg.Bulletin.OptInField,
		DefaultChannels:  channels,
	}), nil
}

// mauticHTTPClient returns an OAuth2 client when client credentials are
// configured, a plain client otherwise.
func mauticHTTPClient(ctx context.Context, cfg config.MauticConfig) *httpclient.Client {
	base := &http.Client{Timeout: cfg.Timeout()}
	if !cfg.UsesOAuth2() {
		return httpclient.New(base, "mautic", cfg.Timeout())
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, base)
	client := cc.Client(oauthCtx)
	client.Timeout = cfg.Timeout()
	return httpclient.New(client, "mautic", cfg.Timeout())
}

// buildLocker connects the run lock backend. Redis wins over Postgres.
func buildLocker(ctx context.Context, cfg *config.Config) (runlock.Locker, func(), error) {
	nop := func() {}
	if !cfg.Lock.Enabled {
		return nil, nop, nil
	}

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nop, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("run lock uses redis", "addr", cfg.Redis.Addr)
		return runlock.New(client, nil, cfg.Lock.KeyPrefix, cfg.Lock.TTL()), func() { client.Close() }, nil
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nop, fmt.Errorf("opening database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nop, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("run lock uses postgres advisory locks")
		return runlock.New(nil, db, cfg.Lock.KeyPrefix, cfg.Lock.TTL()), func() { db.Close() }, nil
	}

	logger.Warn("run lock enabled without a backend, runs are not serialized")
	return nil, nop, nil
}
