package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/RoacherM/a-share-mcp-server/internal/config"
	"github.com/RoacherM/a-share-mcp-server/internal/database"
	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
	"github.com/RoacherM/a-share-mcp-server/internal/payment"
	"github.com/RoacherM/a-share-mcp-server/internal/valuation"
	"github.com/RoacherM/a-share-mcp-server/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Stock codes look like sh.600000 or sz.000001
var stockCodePattern = regexp.MustCompile(`^(sh|sz|bj)\.\d{6}$`)

// Map to store user states
var userStates = make(map[int64]*UserState)

// User state stages
const (
	StageInitial         = 0
	StageAwaitingCode    = 1
	StageAwaitingPayment = 2
	StagePremium         = 3
)

// UserState represents the current state of a user's interaction
type UserState struct {
	Stage        int       // 0: initial, 1: awaiting stock code, 2: awaiting payment, 3: premium
	StockCode    string    // selected security
	LastActivity time.Time // time of last activity
	PaymentURL   string    // Stripe payment URL
	SessionID    string    // Stripe session ID
}

// Telegram rejects messages over 4096 characters; reports get chunked
const maxMessageLength = 4000

// Global variables for database and payment service
var (
	db            *database.DB
	stripeService *payment.StripeService
	svc           *valuation.Service
)

func init() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, relying on actual environment variables")
	}

	// Initialize database with PostgreSQL connection
	var err error
	dbParams := database.ConnectionParams{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	db, err = database.New(dbParams)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Stripe service
	stripeService = payment.NewStripeService()
}

func main() {
	// Setup logger
	lvl, _ := zerolog.ParseLevel("info")
	log.SetFlags(0)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	// Load data gateway configuration and build the valuation service
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	source := datasource.NewClient(datasource.ClientOptions{
		BaseURL:        cfg.DataAPIURL,
		Token:          cfg.DataAPIToken,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})
	svc = valuation.NewService(source)

	// Get bot token from environment
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	// Initialize Telegram bot
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")

	// Setup update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	// Get updates channel
	updates := bot.GetUpdatesChan(updateConfig)

	// Start a goroutine to regularly check for expired subscriptions
	go checkExpiredSubscriptions()

	// Start handling updates
	for update := range updates {
		if update.Message != nil {
			handleMessage(bot, update.Message, &logger)
		} else if update.CallbackQuery != nil {
			handleCallback(bot, update.CallbackQuery, &logger)
		}
	}
}

// checkExpiredSubscriptions runs periodically to update expired subscriptions
func checkExpiredSubscriptions() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := db.CheckAndUpdateExpirations(); err != nil {
			log.Printf("Error checking expired subscriptions: %v", err)
		}
	}
}

// handleMessage processes incoming text messages
func handleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message, logger *zerolog.Logger) {
	userID := message.From.ID
	chatID := message.Chat.ID

	// Check if this is a start command with parameters
	if strings.HasPrefix(message.Text, "/start") {
		parts := strings.Split(message.Text, " ")
		if len(parts) > 1 {
			param := parts[1]
			if param == "payment_success" {
				// User returned after successful payment
				handlePaymentSuccess(bot, userID, chatID)
				return
			} else if param == "payment_cancel" {
				// User cancelled payment
				handlePaymentCancel(bot, userID, chatID)
				return
			}
		}
	}

	// Get or initialize user state
	state, exists := userStates[userID]
	if !exists || message.Text == "/start" {
		userStates[userID] = &UserState{
			Stage:        StageInitial,
			LastActivity: time.Now(),
		}
		state = userStates[userID]

		// Check if user has an active subscription
		sub, err := db.GetSubscription(userID)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Error retrieving subscription")
		} else if sub != nil && sub.Status == models.PaymentStatusAccepted {
			state.Stage = StagePremium
			state.StockCode = sub.StockCode
		}

		// Send welcome message with main menu
		msg := tgbotapi.NewMessage(chatID, "Welcome to the A-share valuation bot! Select a stock and pick a report.")
		msg.ReplyMarkup = getMainMenuKeyboard(isPremiumUser(userID))
		bot.Send(msg)
		return
	}

	// Update last activity
	state.LastActivity = time.Now()

	switch message.Text {
	case "/start", "Main Menu":
		msg := tgbotapi.NewMessage(chatID, "What would you like to do?")
		msg.ReplyMarkup = getMainMenuKeyboard(isPremiumUser(userID))
		bot.Send(msg)
		state.Stage = StageInitial
	case "Select Stock":
		msg := tgbotapi.NewMessage(chatID, "Send a stock code, e.g. sh.600000 or sz.000001")
		bot.Send(msg)
		state.Stage = StageAwaitingCode
	case "Valuation Metrics", "PEG Ratio", "DCF Valuation", "Industry Comparison":
		if state.StockCode == "" {
			msg := tgbotapi.NewMessage(chatID, "Please select a stock first.")
			bot.Send(msg)
			state.Stage = StageAwaitingCode
			return
		}

		// Check subscription status
		sub, err := db.GetSubscription(userID)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Error retrieving subscription")
			msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error. Please try again later.")
			bot.Send(msg)
			return
		}

		if sub == nil || sub.Status != models.PaymentStatusAccepted {
			msg := tgbotapi.NewMessage(chatID, "To run valuation reports you need a premium subscription. The subscription costs $9.99 per month.")
			msg.ReplyMarkup = getPaymentKeyboard()
			bot.Send(msg)
			state.Stage = StageAwaitingPayment
		} else {
			runReport(bot, chatID, message.Text, state, logger)
			if err := db.UpdateLastReported(userID); err != nil {
				logger.Error().Err(err).Int64("user_id", userID).Msg("Error updating last reported time")
			}
		}
	case "Subscribe Now":
		startCheckout(bot, chatID, userID, state, logger)
	case "/status":
		// Check subscription status
		sub, err := db.GetSubscription(userID)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Error retrieving subscription")
			msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error. Please try again later.")
			bot.Send(msg)
			return
		}

		if sub == nil {
			msg := tgbotapi.NewMessage(chatID, "You don't have an active subscription. Select a stock to subscribe.")
			bot.Send(msg)
		} else {
			var statusMsg string
			switch sub.Status {
			case models.PaymentStatusPending:
				statusMsg = "Your subscription is pending payment. Please complete the payment to activate your subscription."
			case models.PaymentStatusAccepted:
				daysLeft := int(time.Until(sub.ExpiresAt).Hours() / 24)
				statusMsg = fmt.Sprintf("You have an active subscription tracking %s. Your subscription will expire in %d days.", sub.StockCode, daysLeft)
			case models.PaymentStatusClosed:
				statusMsg = "Your subscription has expired. Please subscribe again to continue using premium features."
			default:
				statusMsg = "Your subscription status is unknown. Please contact support."
			}
			msg := tgbotapi.NewMessage(chatID, statusMsg)
			bot.Send(msg)
		}
	case "Cancel Subscription":
		cancelSubscription(bot, chatID, userID, state, logger)
	default:
		// Handle other inputs based on current stage
		switch state.Stage {
		case StageAwaitingCode:
			code := strings.ToLower(strings.TrimSpace(message.Text))
			if stockCodePattern.MatchString(code) {
				state.StockCode = code
				if isPremiumUser(userID) {
					if err := db.UpdateStockCode(userID, code); err != nil {
						logger.Error().Err(err).Int64("user_id", userID).Msg("Error updating stock code")
					}
				}
				msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Selected stock: %s\nPick a report from the menu.", code))
				msg.ReplyMarkup = getMainMenuKeyboard(isPremiumUser(userID))
				bot.Send(msg)
				state.Stage = StageInitial
			} else {
				msg := tgbotapi.NewMessage(chatID, "Invalid stock code. Use the exchange prefix, e.g. sh.600000")
				bot.Send(msg)
			}
		default:
			msg := tgbotapi.NewMessage(chatID, "Please use the menu buttons to interact with the bot.")
			msg.ReplyMarkup = getMainMenuKeyboard(isPremiumUser(userID))
			bot.Send(msg)
		}
	}
}

// handleCallback processes inline keyboard button presses
func handleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery, logger *zerolog.Logger) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Get or initialize user state
	state, exists := userStates[userID]
	if !exists {
		userStates[userID] = &UserState{
			Stage:        StageInitial,
			LastActivity: time.Now(),
		}
		state = userStates[userID]
	}

	// Update last activity
	state.LastActivity = time.Now()

	// Acknowledge the callback query
	bot.Request(tgbotapi.NewCallback(callback.ID, ""))

	switch data {
	case "subscribe":
		startCheckout(bot, chatID, userID, state, logger)
	case "main_menu":
		msg := tgbotapi.NewMessage(chatID, "What would you like to do?")
		msg.ReplyMarkup = getMainMenuKeyboard(isPremiumUser(userID))
		bot.Send(msg)
		state.Stage = StageInitial
	}
}

// startCheckout creates a pending subscription and a Stripe checkout session
func startCheckout(bot *tgbotapi.BotAPI, chatID, userID int64, state *UserState, logger *zerolog.Logger) {
	if state.StockCode == "" {
		msg := tgbotapi.NewMessage(chatID, "Please select a stock before subscribing.")
		bot.Send(msg)
		state.Stage = StageAwaitingCode
		return
	}

	// Create subscription in database
	_, err := db.CreateSubscription(userID, chatID, state.StockCode)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error creating subscription")
		msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error. Please try again later.")
		bot.Send(msg)
		return
	}

	// Create Stripe checkout session
	sessionID, paymentURL, err := stripeService.CreateCheckoutSession(userID, state.StockCode)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error creating Stripe session")

		var errorMsg string
		if strings.Contains(err.Error(), "No such price") {
			errorMsg = "Invalid subscription price configuration. Please contact support."
		} else if strings.Contains(err.Error(), "Invalid API key") {
			errorMsg = "Payment system authentication error. Please contact support."
		} else {
			errorMsg = fmt.Sprintf("Payment system error: %v\n\nPlease try again or contact support.", err)
		}

		msg := tgbotapi.NewMessage(chatID, errorMsg)
		bot.Send(msg)
		return
	}

	// Save payment info in user state
	state.PaymentURL = paymentURL
	state.SessionID = sessionID
	state.Stage = StageAwaitingPayment

	// Send payment instructions
	msg := tgbotapi.NewMessage(chatID, "Please complete your payment to access premium valuation reports.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Pay Now", paymentURL),
		),
	)
	bot.Send(msg)

	followUp := tgbotapi.NewMessage(chatID, "After completing payment, return to this chat. Your subscription will be activated automatically.")
	bot.Send(followUp)
}

// runReport generates the requested valuation report and sends it in chunks
func runReport(bot *tgbotapi.BotAPI, chatID int64, kind string, state *UserState, logger *zerolog.Logger) {
	processing := tgbotapi.NewMessage(chatID, fmt.Sprintf("Generating %s report for %s...", kind, state.StockCode))
	bot.Send(processing)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var report string
	var err error
	switch kind {
	case "Valuation Metrics":
		report, err = svc.ValuationMetrics(ctx, state.StockCode, "", "")
	case "PEG Ratio":
		// Most recent completed annual report
		year := fmt.Sprintf("%d", time.Now().Year()-1)
		report, err = svc.PEGRatio(ctx, state.StockCode, year, 4)
	case "DCF Valuation":
		report, err = svc.DCFValuation(ctx, state.StockCode, 0, 0, 0)
	case "Industry Comparison":
		report, err = svc.IndustryComparison(ctx, state.StockCode, "")
	}

	if err != nil {
		logger.Error().Err(err).Str("code", state.StockCode).Str("kind", kind).Msg("Report generation failed")
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Error: %v", err))
		bot.Send(msg)
		return
	}

	sendLongMessage(bot, chatID, report)
}

// sendLongMessage splits a report on line boundaries to fit Telegram limits
func sendLongMessage(bot *tgbotapi.BotAPI, chatID int64, text string) {
	for len(text) > maxMessageLength {
		cut := strings.LastIndex(text[:maxMessageLength], "\n")
		if cut <= 0 {
			cut = maxMessageLength
		}
		bot.Send(tgbotapi.NewMessage(chatID, text[:cut]))
		text = text[cut:]
	}
	if strings.TrimSpace(text) != "" {
		bot.Send(tgbotapi.NewMessage(chatID, text))
	}
}

// cancelSubscription cancels the Stripe subscription and closes it locally
func cancelSubscription(bot *tgbotapi.BotAPI, chatID, userID int64, state *UserState, logger *zerolog.Logger) {
	logger.Info().Int64("user_id", userID).Msg("User requested subscription cancellation")

	sub, err := db.GetSubscription(userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error getting subscription from database")
		msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error. Please try again later.")
		bot.Send(msg)
		return
	}

	if sub == nil {
		msg := tgbotapi.NewMessage(chatID, "No subscription found.")
		bot.Send(msg)
		return
	}

	if sub.Status == models.PaymentStatusClosed {
		msg := tgbotapi.NewMessage(chatID, "Subscription is already cancelled.")
		bot.Send(msg)
		return
	}

	stripeSuccess := false
	if sub.StripeSubscriptionID != "" {
		if err := stripeService.CancelSubscription(sub.StripeSubscriptionID); err != nil {
			if !strings.Contains(err.Error(), "No such subscription") && !strings.Contains(err.Error(), "already canceled") {
				logger.Error().Err(err).Str("subscription_id", sub.StripeSubscriptionID).Msg("Failed to cancel Stripe subscription")
			}
		} else {
			stripeSuccess = true
		}
	}

	// Cancel in database
	if err := db.CloseSubscription(userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error cancelling subscription in database")
		msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error cancelling your subscription.")
		bot.Send(msg)
		return
	}

	state.Stage = StageInitial

	var resultMsg string
	if stripeSuccess {
		resultMsg = "Your subscription has been cancelled. No further charges will be made."
	} else {
		resultMsg = "Subscription cancelled in the bot. If you are still charged, please contact support."
	}
	msg := tgbotapi.NewMessage(chatID, resultMsg)
	msg.ReplyMarkup = getMainMenuKeyboard(false)
	bot.Send(msg)

	logger.Info().Int64("user_id", userID).Bool("stripe_success", stripeSuccess).Msg("Subscription cancellation completed")
}

// handlePaymentSuccess handles when a user returns after successful payment
func handlePaymentSuccess(bot *tgbotapi.BotAPI, userID, chatID int64) {
	// Check subscription status
	sub, err := db.GetSubscription(userID)
	if err != nil {
		log.Printf("Error retrieving subscription: %v", err)
		msg := tgbotapi.NewMessage(chatID, "Sorry, there was an error. Please try again later.")
		bot.Send(msg)
		return
	}

	if sub == nil {
		msg := tgbotapi.NewMessage(chatID, "No subscription found. Please select a stock to subscribe.")
		bot.Send(msg)
		return
	}

	// Fallback if the webhook hasn't updated the status yet
	if sub.Status == models.PaymentStatusPending {
		log.Printf("Payment success callback received, but subscription status is still pending. Manually updating for user %d", userID)

		paymentID := fmt.Sprintf("manual_%d_%d", userID, time.Now().Unix())
		if err := db.UpdateSubscriptionStatus(userID, models.PaymentStatusAccepted, paymentID); err != nil {
			log.Printf("Failed to manually update subscription status: %v", err)
			msg := tgbotapi.NewMessage(chatID, "Thank you for your payment! Your subscription is being processed and will be activated shortly. If it's not active in a few minutes, please contact support.")
			bot.Send(msg)
			return
		}

		msg := tgbotapi.NewMessage(chatID, "Thank you for your payment! Your subscription has been activated.\n\n"+
			"Disclaimer: valuation reports are for information and educational purposes only and are not investment advice. All investment decisions are made at your own risk.")
		msg.ReplyMarkup = getMainMenuKeyboard(true)
		bot.Send(msg)
	} else if sub.Status == models.PaymentStatusAccepted {
		// Subscription is already active
		daysLeft := int(time.Until(sub.ExpiresAt).Hours() / 24)
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Your subscription is active! You can now run valuation reports for %s. Your subscription will expire in %d days.", sub.StockCode, daysLeft))
		msg.ReplyMarkup = getMainMenuKeyboard(true)
		bot.Send(msg)
	} else {
		// Unexpected status
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Your subscription status is: %s. Please contact support if you believe this is an error.", sub.Status))
		bot.Send(msg)
	}

	// Update user state regardless of the status
	state, exists := userStates[userID]
	if exists {
		state.Stage = StagePremium
		state.StockCode = sub.StockCode
	}
}

// handlePaymentCancel handles when a user returns after cancelling payment
func handlePaymentCancel(bot *tgbotapi.BotAPI, userID, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Your payment was cancelled. You can try again later when you're ready.")
	msg.ReplyMarkup = getMainMenuKeyboard(false)
	bot.Send(msg)

	// Update user state
	state, exists := userStates[userID]
	if exists {
		state.Stage = StageInitial
	}
}

// isPremiumUser reports whether the user has an accepted subscription
func isPremiumUser(userID int64) bool {
	sub, err := db.GetSubscription(userID)
	if err != nil || sub == nil {
		return false
	}
	return sub.Status == models.PaymentStatusAccepted
}

// getMainMenuKeyboard returns the main menu keyboard
func getMainMenuKeyboard(isPremium bool) tgbotapi.ReplyKeyboardMarkup {
	if isPremium {
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Select Stock"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Valuation Metrics"),
				tgbotapi.NewKeyboardButton("PEG Ratio"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("DCF Valuation"),
				tgbotapi.NewKeyboardButton("Industry Comparison"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Cancel Subscription"),
			),
		)
	}

	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Select Stock"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Valuation Metrics"),
			tgbotapi.NewKeyboardButton("PEG Ratio"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("DCF Valuation"),
			tgbotapi.NewKeyboardButton("Industry Comparison"),
		),
	)
}

// getPaymentKeyboard returns the keyboard for payment options
func getPaymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Subscribe ($9.99/month)", "subscribe"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to Main Menu", "main_menu"),
		),
	)
}
