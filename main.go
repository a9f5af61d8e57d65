package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"harmony-backend/internal/blob"
	"harmony-backend/internal/database"
	"harmony-backend/internal/handlers"
	"harmony-backend/internal/hub"
	"harmony-backend/internal/jwt"
	"harmony-backend/internal/keyValue"
	"harmony-backend/internal/models"
	"harmony-backend/internal/moderation"
	"harmony-backend/internal/service"
	"harmony-backend/internal/snowflake"
	"harmony-backend/internal/tasks"
)

func setupLogger() (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"app.log", "stdout"}
	config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}

	if cfg.AttachmentDir == "" {
		cfg.AttachmentDir = "./public/attachments"
	}
	if cfg.CdnBaseUrl == "" {
		cfg.CdnBaseUrl = "/cdn/attachments"
	}
	if cfg.ModerationUrl == "" {
		cfg.ModerationUrl = "https://api.groq.com/openai/v1/chat/completions"
	}
	if cfg.ModerationModel == "" {
		cfg.ModerationModel = "llama-guard-3-8b"
	}

	return cfg, nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Setting up logger...")
	sugar, err := setupLogger()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		sugar.Fatal(err)
	}

	fmt.Println("Connecting to database...")
	db, err := database.Setup(&cfg)
	if err != nil {
		sugar.Fatal(err)
	}

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(&cfg)
		if err != nil {
			sugar.Fatal(err)
		}
	}

	keyValue.Setup(sugar, redisClient, cfg.SelfContained)

	err = snowflake.Setup(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	isHttps := (cfg.TlsCert != "" && cfg.TlsKey != "")
	jwt.Setup(cfg.JwtSecret, isHttps)

	blobs, err := blob.Setup(sugar, cfg.AttachmentDir, cfg.CdnBaseUrl)
	if err != nil {
		sugar.Fatal(err)
	}

	wsHub := hub.Setup(sugar, redisClient, cfg.SelfContained)

	queue := tasks.NewQueue(sugar, 1024)

	classifier := moderation.NewClient(cfg.ModerationUrl, cfg.ModerationApiKey, cfg.ModerationModel)
	pipeline := moderation.NewPipeline(sugar, db, classifier, wsHub)

	typingService := service.NewTypingService(sugar, db, wsHub)
	messageService := service.NewMessageService(sugar, db, blobs, queue, wsHub)
	serverService := service.NewServerService(sugar, db, blobs, wsHub)
	directService := service.NewDirectService(sugar, db)

	queue.Handle(tasks.TypingClear{}.Kind(), func(ctx context.Context, task tasks.Task) error {
		payload := task.(tasks.TypingClear)
		return typingService.Clear(payload.ConversationID, payload.UserID)
	})
	queue.Handle(tasks.ModerationRun{}.Kind(), func(ctx context.Context, task tasks.Task) error {
		payload := task.(tasks.ModerationRun)
		return pipeline.Run(ctx, payload.MessageID)
	})
	queue.Start(8)
	defer queue.Close()

	fmt.Printf("Server is running on %s:%s\n", cfg.Address, cfg.Port)

	err = handlers.Setup(isHttps, &cfg, sugar, db, handlers.Services{
		Blobs:    blobs,
		Hub:      wsHub,
		Messages: messageService,
		Servers:  serverService,
		Typing:   typingService,
		Directs:  directService,
	})
	if err != nil {
		sugar.Fatal(err)
	}
}
