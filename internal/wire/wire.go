package wire

import (
	"net/http"

	"trekko-booking/internal/adaptor"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/queue"
	"trekko-booking/internal/usecase"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/middleware"
	"trekko-booking/pkg/storage"
	"trekko-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired router and the service layer for the background
// workers.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes services, handlers and routes.
func Wiring(
	repo *repository.Repository,
	gw gateway.Gateway,
	publisher *queue.Publisher,
	store storage.Store,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, gw, publisher, store, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, repo, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, repo *repository.Repository, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireReservation(r, handler, repo, logger)
	wireWebhook(r, handler)
	wireGuide(r, handler, repo, logger)
	wireAdmin(r, handler, repo, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
