package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"compareeconomize/backend/database"
	"compareeconomize/backend/middlewares"
	"compareeconomize/backend/routes"
	"compareeconomize/backend/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Run the HTTP API.\n\n" + storageHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// buildDeps wires optional integrations; missing credentials leave them nil.
func buildDeps(ctx context.Context, store database.Store) (routes.Deps, func(), error) {
	plans, err := loadPlans(ctx, store)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	deps := routes.Deps{
		Store:  store,
		Plans:  plans,
		Google: utils.GoogleOAuth{ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleSecret},
	}
	cleanup := func() {}

	if cfg.GeminiAPIKey != "" {
		gen, err := utils.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return routes.Deps{}, nil, err
		}
		deps.AI = gen
		cleanup = func() { _ = gen.Close() }
	} else {
		log.Printf("GEMINI_API_KEY not set; /api/ai routes will fail")
	}

	if cfg.BillingEnabled() {
		mp, err := utils.NewMercadoPago(cfg.MPAccessToken, cfg.MPSandbox)
		if err != nil {
			cleanup()
			return routes.Deps{}, nil, err
		}
		deps.Payments = mp
	} else {
		log.Printf("MP_ACCESS_TOKEN not set; billing routes answer 503")
	}
	return deps, cleanup, nil
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	deps, cleanup, err := buildDeps(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	r := gin.Default()
	r.Use(middlewares.CORS(cfg.CORSOrigins()))
	routes.Register(r, cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
