package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomatomall/tomatomall/internal/auth"
	"github.com/tomatomall/tomatomall/internal/bookinfo"
	"github.com/tomatomall/tomatomall/internal/config"
	httpserver "github.com/tomatomall/tomatomall/internal/http"
	"github.com/tomatomall/tomatomall/internal/rating"
	"github.com/tomatomall/tomatomall/internal/repository"
	"github.com/tomatomall/tomatomall/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[catalog-api] ", log.LstdFlags|log.Lshortfile)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	bookClient, err := bookinfo.NewHTTPClient(cfg.BookInfoURL, cfg.BookInfoAPIKey, time.Duration(cfg.BookInfoTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init bookinfo client: %v", err)
	}

	repo := repository.New(st)
	aggregator := rating.New(st.Pool(), logger, cfg.RatingRetryLimit)
	resolver := auth.NewResolver(cfg.JWTSecret)
	server := httpserver.New(cfg, st, repo, aggregator, bookClient, resolver, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}
