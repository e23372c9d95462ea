package main

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/RoacherM/a-share-mcp-server/internal/database"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func init() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, relying on actual environment variables")
	}
}

func main() {
	// Message comes from the first argument or BROADCAST_MESSAGE
	message := os.Getenv("BROADCAST_MESSAGE")
	if len(os.Args) > 1 {
		message = os.Args[1]
	}
	if message == "" {
		log.Fatal("No message to broadcast: pass it as an argument or set BROADCAST_MESSAGE")
	}

	// Initialize database
	dbParams := database.ConnectionParams{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	db, err := database.New(dbParams)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Telegram bot
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN not set in environment")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	// Get all users from database
	users, err := db.GetAllUsers()
	if err != nil {
		log.Fatalf("Failed to get users from database: %v", err)
	}

	log.Printf("Found %d users in database", len(users))

	successCount := 0
	errorCount := 0

	for i, user := range users {
		// Send message to user
		msg := tgbotapi.NewMessage(user.ChatID, message)
		msg.ParseMode = "Markdown"

		_, err := bot.Send(msg)
		if err != nil {
			log.Printf("Failed to send message to user %d (chat_id: %d): %v",
				user.UserID, user.ChatID, err)
			errorCount++
		} else {
			log.Printf("Message sent to user %d (chat_id: %d) [%d/%d]",
				user.UserID, user.ChatID, i+1, len(users))
			successCount++
		}

		// Telegram allows 30 messages per second for bots, so we use 50ms delay
		if i < len(users)-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	// Final statistics
	log.Printf("=== BROADCAST COMPLETED ===")
	log.Printf("Total users: %d", len(users))
	log.Printf("Successfully sent: %d", successCount)
	log.Printf("Failed to send: %d", errorCount)

	fmt.Printf("Broadcast completed: %d sent, %d failed out of %d total users\n",
		successCount, errorCount, len(users))
}
