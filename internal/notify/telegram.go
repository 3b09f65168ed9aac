package notify

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/onboardtrack/pkg/models"
)

// TelegramNotifier posts onboarding alerts (awarded milestones,
// high-severity blockers) to an operations chat. All sends are
// best-effort; callers log and continue on failure.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier builds a notifier from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. An unset token disables notifications: the returned
// notifier is nil and that is not an error.
func NewTelegramNotifier() (*TelegramNotifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, nil
	}

	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID environment variable is not a valid chat id: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %v", err)
	}

	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

// NotifyAchievement announces a freshly awarded milestone
func (n *TelegramNotifier) NotifyAchievement(achievement *models.UserAchievement, milestone *models.Milestone) error {
	text := fmt.Sprintf(
		"🏆 Milestone awarded\nUser: %s\nSession: %s\nMilestone: %s (%d points)",
		achievement.UserID,
		achievement.SessionID,
		milestone.Name,
		milestone.Points,
	)
	return n.send(text)
}

// NotifyBlocker raises an alert for a detected blocker
func (n *TelegramNotifier) NotifyBlocker(sessionID string, blocker *models.Blocker) error {
	text := fmt.Sprintf(
		"⚠️ Blocker detected\nSession: %s\nStep: %s\nType: %s (severity %s)\n%s\nSuggested: %s",
		sessionID,
		blocker.StepTitle,
		blocker.BlockerType,
		blocker.Severity,
		blocker.Description,
		blocker.SuggestedResolution,
	)
	if len(blocker.Patterns) > 0 {
		text += "\nPatterns: " + strings.Join(blocker.Patterns, ", ")
	}
	return n.send(text)
}

func (n *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %v", err)
	}
	return nil
}
