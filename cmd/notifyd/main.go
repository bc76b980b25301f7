// notifyd subscribes to relays for gift-wrapped events addressed to the
// local identities and surfaces matching ones as notifications.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"nostr-notify/internal/cache"
	"nostr-notify/internal/config"
	"nostr-notify/internal/keys"
	"nostr-notify/internal/notify"
	"nostr-notify/internal/relay"
	"nostr-notify/internal/store"
	"nostr-notify/internal/types"
	"nostr-notify/internal/unwrap"
	"nostr-notify/internal/util"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "notifyd",
		Short: "Notification pipeline for gift-wrapped Nostr events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	util.InitLogger(cfg.LogLevel)

	keyring, err := buildKeyring(cfg)
	if err != nil {
		return err
	}
	identities := keyring.UsableIdentities()
	if len(identities) == 0 {
		return fmt.Errorf("no usable identities configured")
	}
	if len(cfg.Relays) == 0 {
		return fmt.Errorf("no relays configured")
	}

	backend, err := buildCache(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	cacheCfg := cache.DefaultConfig()
	engine := unwrap.NewEngine(backend, cacheCfg)
	eventStore := store.NewMemoryStore()
	consumer := notify.NewConsumer(
		keyring, engine, eventStore, backend, cacheCfg,
		notify.SlogSink{},
		notify.WithMaxParallel(cfg.MaxParallel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recipients := make([]string, 0, len(identities))
	for _, id := range identities {
		recipients = append(recipients, id.PubKey)
	}

	handler := func(ctx context.Context, evt *types.Event) {
		_ = consumer.Consume(ctx, evt)
	}

	var wg sync.WaitGroup
	for _, url := range cfg.Relays {
		sub := relay.NewSubscriber(url, recipients, handler)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func buildKeyring(cfg *config.Config) (*keys.MemoryKeyring, error) {
	keyring := keys.NewMemoryKeyring()
	for _, keyHex := range cfg.IdentityKeys {
		id, err := keys.NewIdentity(keyHex)
		if err != nil {
			return nil, fmt.Errorf("bad identity key: %w", err)
		}
		graph := keyring.Add(id)
		for _, pk := range cfg.Follows {
			graph.AddFollow(pk)
		}
		for _, pk := range cfg.Hidden {
			graph.Hide(pk)
		}
	}
	return keyring, nil
}

func buildCache(cfg *config.Config) (cache.Backend, error) {
	if cfg.RedisURL != "" {
		return cache.NewRedisBackend(cfg.RedisURL, "notifyd:")
	}
	return cache.NewMemoryBackend(cache.DefaultConfig().UnwrapTTL / 4), nil
}
