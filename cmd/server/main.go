package main

import (
	"context"
	"log"

	"messaging-core/internal/api"
	"messaging-core/internal/capture"
	"messaging-core/internal/config"
	"messaging-core/internal/conversation"
	"messaging-core/internal/database"
	"messaging-core/internal/dispatch"
	"messaging-core/internal/gateway"
	"messaging-core/internal/media"
	"messaging-core/internal/template"
	"messaging-core/internal/webhook"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)
	db := database.GormDB

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	gatewayClient := gateway.NewClient(cfg.GraphBaseURL)
	storage := media.NewStorage(cfg.StorageDir, cfg.PublicBaseURL)
	uploader := media.NewUploader(cfg.GraphBaseURL, cfg.AppUploadToken)
	// Header media lives in local storage; read it directly instead of
	// fetching our own public URL.
	uploader.Fetch = func(ctx context.Context, sourceURL string) ([]byte, error) {
		return storage.Open(sourceURL)
	}

	conversations := conversation.NewManager(db)
	dispatcher := dispatch.NewDispatcher(db, gatewayClient, storage, conversations)
	compiler := template.NewCompiler(uploader)
	submitter := template.NewSubmitter(db, gatewayClient, compiler)
	composers := capture.NewRegistry()

	var dedup webhook.Deduper
	if cfg.RedisAddr != "" {
		dedup = webhook.NewRedisDeduper(cfg.RedisAddr)
	}
	webhookHandler := webhook.NewHandler(cfg, db, conversations, dispatcher, dedup)

	accountHandler := api.NewAccountHandler(db)
	conversationHandler := api.NewConversationHandler(db, conversations, dispatcher, composers)
	templateHandler := api.NewTemplateHandler(db, submitter)
	mediaHandler := api.NewMediaHandler(storage)
	knowledgeHandler := api.NewKnowledgeHandler(db)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleEvent)

	// Durable media served from local storage
	r.Static("/media", cfg.StorageDir)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/accounts", accountHandler.GetAccounts)
		apiGroup.POST("/accounts", accountHandler.CreateAccount)
		apiGroup.PUT("/accounts/:id", accountHandler.UpdateAccount)

		apiGroup.GET("/conversations", conversationHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		apiGroup.POST("/conversations/:id/read", conversationHandler.MarkRead)
		apiGroup.POST("/conversations/:id/send", conversationHandler.SendMessage)
		apiGroup.POST("/conversations/:id/attachment", conversationHandler.SetAttachment)
		apiGroup.POST("/conversations/:id/recording/start", conversationHandler.StartRecording)
		apiGroup.POST("/conversations/:id/recording/chunk", conversationHandler.AppendRecording)
		apiGroup.POST("/conversations/:id/recording/stop", conversationHandler.StopRecording)
		apiGroup.POST("/conversations/:id/composer/discard", conversationHandler.DiscardComposer)
		apiGroup.GET("/conversations/:id/composer", conversationHandler.GetComposer)
		apiGroup.POST("/send", conversationHandler.ResolveAndSend)

		apiGroup.GET("/templates", templateHandler.GetTemplates)
		apiGroup.POST("/templates", templateHandler.CreateTemplate)
		apiGroup.POST("/templates/:id/submit", templateHandler.SubmitTemplate)
		apiGroup.POST("/templates/sync", templateHandler.SyncTemplates)

		apiGroup.POST("/media", mediaHandler.UploadMedia)

		apiGroup.GET("/knowledge", knowledgeHandler.GetEntries)
		apiGroup.POST("/knowledge", knowledgeHandler.CreateEntry)
		apiGroup.POST("/knowledge/:id/use", knowledgeHandler.UseEntry)
	}

	// Pending template approvals are refreshed by polling; the poller stops
	// with the server.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go submitter.RunStatusPoller(ctx, cfg.TemplatePollInterval)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
