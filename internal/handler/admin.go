package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ppe-monitor/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const webhookTestTimeout = 15 * time.Second

func (h *Handler) showSettings(message *tgbotapi.Message) {
	h.reply(message, "⚙️ Settings\n\n"+service.FormatSettings(h.settingsService.Current()))
}

func (h *Handler) setWebhook(message *tgbotapi.Message, args string) {
	if err := h.settingsService.SetWebhookURL(strings.TrimSpace(args)); err != nil {
		h.replyError(message, "Failed to set webhook", err)
		return
	}
	h.logger.Info("Webhook URL updated from chat")
	h.reply(message, "✅ Webhook URL saved. Use /webhook on to enable it.")
}

func (h *Handler) toggleWebhook(message *tgbotapi.Message, args string) {
	enabled, err := parseToggle(args)
	if err != nil {
		h.reply(message, "❌ Usage: /webhook on|off")
		return
	}
	if err := h.settingsService.SetWebhookEnabled(enabled); err != nil {
		h.replyError(message, "Failed to update webhook", err)
		return
	}
	if enabled {
		h.reply(message, "✅ Webhook enabled.")
		return
	}
	h.reply(message, "✅ Webhook disabled.")
}

func (h *Handler) testWebhook(message *tgbotapi.Message) {
	if h.webhook == nil {
		h.reply(message, "❌ Webhook channel is not configured.")
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, webhookTestTimeout)
	defer cancel()

	if err := h.webhook.Test(ctx, h.config.Monitor.SiteLocation); err != nil {
		h.replyError(message, "Webhook test failed", err)
		return
	}
	h.reply(message, "✅ Test payload delivered.")
}

func (h *Handler) setPenalty(message *tgbotapi.Message, args string) {
	category, amount, err := parsePenalty(args)
	if err != nil {
		h.reply(message, "❌ "+err.Error()+"\nUsage: /penalty [helmet|vest|gloves|boots|chest_guard] [amount]")
		return
	}
	if err := h.settingsService.SetPenalty(category, amount); err != nil {
		h.replyError(message, "Failed to set penalty", err)
		return
	}
	h.reply(message, fmt.Sprintf("✅ Penalty for %s set to %.2f.", category, amount))
}

func (h *Handler) setHolidayRate(message *tgbotapi.Message, args string) {
	days, err := parseAmount(args)
	if err != nil {
		h.reply(message, "❌ Usage: /holidayrate [days]")
		return
	}
	if err := h.settingsService.SetHolidayRate(days); err != nil {
		h.replyError(message, "Failed to set holiday rate", err)
		return
	}
	h.reply(message, fmt.Sprintf("✅ Holiday deduction set to %.2f day(s) per violation.", days))
}

func (h *Handler) setViolationPenalty(message *tgbotapi.Message, args string) {
	amount, err := parseAmount(args)
	if err != nil {
		h.reply(message, "❌ Usage: /violationpenalty [amount]")
		return
	}
	if err := h.settingsService.SetViolationPenalty(amount); err != nil {
		h.replyError(message, "Failed to set violation penalty", err)
		return
	}
	h.reply(message, fmt.Sprintf("✅ Salary deduction set to %.2f per violation.", amount))
}
