package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nftrelay/service/internal/config"
	"nftrelay/service/internal/logger"
	"nftrelay/service/internal/services"
	"nftrelay/service/internal/stores"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", false).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	signer, err := stores.LoadSigner(cfg.Wallet)
	if err != nil {
		log.Fatal().Err(err).Msg("load signing key")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := services.Bootstrap(ctx, cfg, signer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to starknet node")
	}
	defer rt.Close()

	startCtx, stop := context.WithTimeout(ctx, cfg.Chain.RPCTimeout)
	if err := rt.Provider.VerifyChainID(startCtx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("node check failed")
	}
	stop()
	log.Info().
		Str("network", cfg.Chain.Network.Name).
		Str("contract", cfg.Chain.ContractAddress).
		Str("sender", rt.Service.Sender()).
		Msg("connected to starknet node")

	if err := os.MkdirAll(filepath.Dir(cfg.Service.IdempotencyDBPath), 0o700); err != nil {
		log.Fatal().Err(err).Msg("create data dir")
	}
	idem, err := stores.NewLocalIdempotencyStore(cfg.Service.IdempotencyDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("init idempotency store")
	}
	defer idem.Close()

	publisher := services.NewBlockPublisher(rt.Client, 10*time.Second)
	api := services.NewApiService(rt.Service, idem, services.ApiConfig{
		Addr:              cfg.Service.HTTPAddr,
		IdempotencyWindow: cfg.Service.IdempotencyWindow,
		Heads:             publisher,
	}, logger.Component(log, "api"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := publisher.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		heads := logger.Component(log, "blocks")
		for {
			select {
			case n, ok := <-publisher.Out():
				if !ok {
					return nil
				}
				heads.Debug().Uint64("block", n).Msg("new block")
			case err, ok := <-publisher.Err():
				if !ok {
					return nil
				}
				heads.Warn().Err(err).Msg("block poll failed")
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := idem.Purge(gctx); err != nil {
					log.Warn().Err(err).Msg("purge idempotency records")
				} else if n > 0 {
					log.Debug().Int("removed", n).Msg("purged idempotency records")
				}
			}
		}
	})

	g.Go(func() error {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer stop()
		return api.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
