package handler

import (
	"context"
	"time"

	"ppe-monitor/internal/config"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/monitor"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/repository"
	"ppe-monitor/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender delivers a text reply to a chat. *telegram.Client satisfies it.
type Sender interface {
	SendText(chatID int64, text string) error
}

type Handler struct {
	client            Sender
	supervisor        *monitor.Supervisor
	settingsService   *service.SettingsService
	payrollService    *service.PayrollService
	workerService     *service.WorkerService
	attendanceService *service.AttendanceService
	violations        repository.ViolationRepository
	webhook           *notify.Webhook
	config            *config.Config
	logger            *logrus.Logger
	now               func() time.Time

	// ctx is handed to camera sessions started from chat.
	ctx context.Context
}

func NewHandler(
	ctx context.Context,
	client Sender,
	supervisor *monitor.Supervisor,
	settingsService *service.SettingsService,
	payrollService *service.PayrollService,
	workerService *service.WorkerService,
	attendanceService *service.AttendanceService,
	violations repository.ViolationRepository,
	webhook *notify.Webhook,
	cfg *config.Config,
) *Handler {
	return &Handler{
		client:            client,
		supervisor:        supervisor,
		settingsService:   settingsService,
		payrollService:    payrollService,
		workerService:     workerService,
		attendanceService: attendanceService,
		violations:        violations,
		webhook:           webhook,
		config:            cfg,
		logger:            logging.New(),
		now:               time.Now,
		ctx:               ctx,
	}
}

// HandleUpdates processes updates until the channel is closed or the context ends.
func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			h.handleMessage(update.Message)
		}
	}
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	user := ""
	if message.From != nil {
		user = message.From.UserName
	}
	h.logger.Infof("[%s] %s", user, message.Text)

	if !message.IsCommand() {
		h.reply(message, "Send /help for the list of commands.")
		return
	}

	chatID := message.Chat.ID
	if !h.config.IsAdmin(chatID) {
		h.logger.WithField("chat_id", chatID).Warn("Unauthorized command")
		h.reply(message, "❌ Access denied. This bot only answers site administrators.")
		return
	}

	h.handleCommand(message)
}

func (h *Handler) reply(message *tgbotapi.Message, text string) {
	if err := h.client.SendText(message.Chat.ID, text); err != nil {
		h.logger.WithError(err).WithField("chat_id", message.Chat.ID).Error("Failed to send reply")
	}
}

func (h *Handler) replyError(message *tgbotapi.Message, prefix string, err error) {
	h.logger.WithError(err).Error(prefix)
	h.reply(message, "❌ "+prefix+": "+err.Error())
}
