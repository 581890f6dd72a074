package main

import (
	"log"

	"trekko-booking/cmd"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/queue"
	"trekko-booking/internal/wire"
	"trekko-booking/internal/worker"
	"trekko-booking/pkg/cache"
	"trekko-booking/pkg/database"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/storage"
	"trekko-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	cacheClient := cache.NewClient(config.Redis, logger)
	defer cacheClient.Close()

	repos := repository.NewRepository(db, cacheClient, logger)

	gw := gateway.NewMercadoPago(config.Payments.MPBaseURL, config.Payments.MPAccessToken, logger)

	publisher := queue.NewPublisher(config.Queue.URL, logger)
	defer publisher.Close()

	store, err := storage.NewCloudinaryStore(config.Storage.CloudinaryURL, config.Storage.UploadFolder, logger)
	if err != nil {
		logger.Fatal("Failed to init document storage", zap.Error(err))
	}

	app := wire.Wiring(repos, gw, publisher, store, config, logger)

	ctx, wait := cmd.APIServer(app.Router, config.App.Port, logger)

	go worker.New(app.Service, config.Queue.URL, logger).Run(ctx)

	wait()
}
