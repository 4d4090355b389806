package handler

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start", "help":
		h.sendHelpMessage(message)

	// Cameras
	case "cameras", "status":
		h.showCameras(message)
	case "startcam":
		h.startCamera(message, args)
	case "stopcam":
		h.stopCamera(message, args)
	case "resume":
		h.resumeCamera(message, args)

	// Violations and payroll
	case "violations":
		h.showViolations(message, args)
	case "violation":
		h.showViolation(message, args)
	case "offenders":
		h.showOffenders(message, args)
	case "payroll":
		h.showPayroll(message)
	case "workers":
		h.showWorkers(message)
	case "attendance":
		h.markAttendance(message, args)
	case "leave":
		h.setLeave(message, args)

	// Settings
	case "settings":
		h.showSettings(message)
	case "setwebhook":
		h.setWebhook(message, args)
	case "webhook":
		h.toggleWebhook(message, args)
	case "testwebhook":
		h.testWebhook(message)
	case "penalty":
		h.setPenalty(message, args)
	case "holidayrate":
		h.setHolidayRate(message, args)
	case "violationpenalty":
		h.setViolationPenalty(message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message, "❌ Unknown command. Use /help for the list of commands.")
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	text := `📋 Available commands:

📷 Cameras:
/cameras - Camera sessions and their state
/startcam [id] - Start monitoring a camera
/stopcam [id] - Stop monitoring a camera
/resume [id] - Resume a camera halted by an exhausted quota

🦺 Violations:
/violations [N] - Latest N violations (default 10)
/violations [worker] [N] - Latest violations of one worker
/violation [id] - Details of one violation
/offenders [days] - Violation counts per worker (default 7 days)
/payroll - Payroll report with deductions

👷 Workforce:
/workers - Worker roster with leave balances
/attendance - Today's attendance summary
/attendance [employee_id] [present|absent|leave] [notes] - Mark attendance
/leave [employee_id] [total] [remaining] - Set leave balance

⚙️ Settings:
/settings - Current settings
/setwebhook [url] - Set the alert webhook URL
/webhook on|off - Enable or disable the webhook
/testwebhook - Send a test payload
/penalty [helmet|vest|gloves|boots|chest_guard] [amount] - Per-item penalty
/holidayrate [days] - Holidays deducted per violation
/violationpenalty [amount] - Salary deducted per violation`

	h.reply(message, text)
}
