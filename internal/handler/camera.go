package handler

import (
	"fmt"
	"strings"
	"time"

	"ppe-monitor/internal/monitor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) showCameras(message *tgbotapi.Message) {
	h.reply(message, FormatStatuses(h.supervisor.Status()))
}

func (h *Handler) startCamera(message *tgbotapi.Message, args string) {
	id, err := parseCameraID(args, h.supervisor.IDs())
	if err != nil {
		h.reply(message, "❌ Usage: /startcam [id]")
		return
	}
	if err := h.supervisor.Start(h.ctx, id); err != nil {
		h.replyError(message, "Failed to start camera", err)
		return
	}
	h.logger.WithField("camera", id).Info("Camera started from chat")
	h.reply(message, fmt.Sprintf("▶️ Camera %s started.", id))
}

func (h *Handler) stopCamera(message *tgbotapi.Message, args string) {
	id, err := parseCameraID(args, h.supervisor.IDs())
	if err != nil {
		h.reply(message, "❌ Usage: /stopcam [id]")
		return
	}
	if err := h.supervisor.Stop(id); err != nil {
		h.replyError(message, "Failed to stop camera", err)
		return
	}
	h.logger.WithField("camera", id).Info("Camera stopped from chat")
	h.reply(message, fmt.Sprintf("⏹ Camera %s stopped.", id))
}

func (h *Handler) resumeCamera(message *tgbotapi.Message, args string) {
	id, err := parseCameraID(args, h.supervisor.IDs())
	if err != nil {
		h.reply(message, "❌ Usage: /resume [id]")
		return
	}
	if err := h.supervisor.Resume(id); err != nil {
		h.replyError(message, "Failed to resume camera", err)
		return
	}
	h.reply(message, fmt.Sprintf("🔄 Camera %s resumed.", id))
}

// FormatStatuses renders camera session snapshots for chat.
func FormatStatuses(statuses []monitor.Status) string {
	if len(statuses) == 0 {
		return "📷 No cameras configured."
	}

	var b strings.Builder
	b.WriteString("📷 Cameras:\n")
	for _, st := range statuses {
		name := st.Name
		if name == "" {
			name = st.CameraID
		}
		fmt.Fprintf(&b, "\n%s (%s)", name, st.CameraID)
		if st.Zone != "" {
			fmt.Fprintf(&b, " • %s", st.Zone)
		}
		fmt.Fprintf(&b, "\n   State: %s", st.State)
		if st.Halted {
			b.WriteString(" ⛔ halted, use /resume")
		}
		fmt.Fprintf(&b, "\n   Cycles: %d  Violations: %d", st.Cycles, st.Violations)
		if !st.LastRun.IsZero() {
			fmt.Fprintf(&b, "\n   Last run: %s", st.LastRun.Format("2006-01-02 15:04:05"))
		}
		if st.NextDelay > 0 {
			fmt.Fprintf(&b, "\n   Next in: %s", st.NextDelay.Round(time.Second))
		}
		if st.LastError != "" {
			fmt.Fprintf(&b, "\n   Last error: %s", st.LastError)
		}
		b.WriteString("\n")
	}
	return b.String()
}
