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

	"github.com/joho/godotenv"

	"github.com/deleyapp/lawcopilot/internal/client/audio"
	"github.com/deleyapp/lawcopilot/internal/client/knowledge"
	"github.com/deleyapp/lawcopilot/internal/config"
	"github.com/deleyapp/lawcopilot/internal/handler"
	"github.com/deleyapp/lawcopilot/internal/model/educator"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	educatorStore := educator.NewMemoryStore(educator.Seed())

	sessionStore, err := store.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}

	audioClient, err := audio.New(cfg.Audio.BaseURL,
		audio.WithHTTPClient(&http.Client{Timeout: cfg.Audio.Timeout}))
	if err != nil {
		log.Fatalf("failed to initialize audio client: %v", err)
	}

	knowledgeClient, err := knowledge.New(cfg.Knowledge.BaseURL,
		knowledge.WithHTTPClient(&http.Client{Timeout: cfg.Knowledge.Timeout}),
		knowledge.WithRetrieval(cfg.Knowledge.TopK, cfg.Knowledge.ScoreThreshold))
	if err != nil {
		log.Fatalf("failed to initialize knowledge client: %v", err)
	}

	voiceSvc := voice.NewService(audioClient, knowledgeClient, sessionStore, educatorStore,
		voice.WithDebounce(cfg.Turn.Debounce))

	router := handler.NewRouter(educatorStore, sessionStore, voiceSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Law Copilot gateway listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
