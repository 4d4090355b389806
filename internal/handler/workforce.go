package handler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ppe-monitor/internal/models"
	"ppe-monitor/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) showViolations(message *tgbotapi.Message, args string) {
	worker, limit, err := parseViolationQuery(args)
	if err != nil {
		h.reply(message, "❌ Usage: /violations [worker] [N]")
		return
	}

	var records []*models.Violation
	if worker == "" {
		records, err = h.violations.List(limit)
	} else {
		records, err = h.violations.GetByWorkerName(worker, limit)
	}
	if err != nil {
		h.replyError(message, "Failed to load violations", err)
		return
	}

	if worker != "" && len(records) == 0 {
		h.reply(message, fmt.Sprintf("✅ No violations recorded for %s.", worker))
		return
	}
	h.reply(message, FormatViolations(records, h.config.Location()))
}

func (h *Handler) showViolation(message *tgbotapi.Message, args string) {
	id, err := parseViolationID(args)
	if err != nil {
		h.reply(message, "❌ "+err.Error()+"\nUsage: /violation [id]")
		return
	}

	v, err := h.violations.GetByID(id)
	if err != nil {
		h.replyError(message, "Failed to load violation", err)
		return
	}
	if v == nil {
		h.reply(message, fmt.Sprintf("❌ Violation #%d not found.", id))
		return
	}
	h.reply(message, FormatViolation(v, h.config.Location()))
}

func (h *Handler) showOffenders(message *tgbotapi.Message, args string) {
	days, err := parseDays(args)
	if err != nil {
		h.reply(message, "❌ Usage: /offenders [days]")
		return
	}

	since := h.now().AddDate(0, 0, -days)
	counts, err := h.violations.CountByWorkerSince(since)
	if err != nil {
		h.replyError(message, "Failed to count violations", err)
		return
	}
	h.reply(message, FormatOffenders(counts, days))
}

func (h *Handler) showPayroll(message *tgbotapi.Message) {
	rows, err := h.payrollService.Report()
	if err != nil {
		h.replyError(message, "Failed to build payroll", err)
		return
	}
	h.reply(message, "💰 Payroll\n\n"+service.FormatPayroll(rows))
}

func (h *Handler) showWorkers(message *tgbotapi.Message) {
	workers, err := h.workerService.List()
	if err != nil {
		h.replyError(message, "Failed to load workers", err)
		return
	}
	h.reply(message, service.FormatWorkers(workers))
}

func (h *Handler) markAttendance(message *tgbotapi.Message, args string) {
	if strings.TrimSpace(args) == "" {
		summary, err := h.attendanceService.Summary("")
		if err != nil {
			h.replyError(message, "Failed to load attendance", err)
			return
		}
		h.reply(message, service.FormatAttendance(summary))
		return
	}

	employeeID, status, notes, err := parseAttendance(args)
	if err != nil {
		h.reply(message, "❌ "+err.Error()+"\nUsage: /attendance [employee_id] [present|absent|leave] [notes]")
		return
	}

	mark, err := h.attendanceService.Mark(employeeID, status, notes)
	if err != nil {
		h.replyError(message, "Failed to mark attendance", err)
		return
	}
	h.reply(message, fmt.Sprintf("✅ %s marked %s for %s.", mark.Worker.Name, mark.Status, mark.Date))
}

func (h *Handler) setLeave(message *tgbotapi.Message, args string) {
	employeeID, total, remaining, err := parseLeave(args)
	if err != nil {
		h.reply(message, "❌ "+err.Error()+"\nUsage: /leave [employee_id] [total] [remaining]")
		return
	}

	if err := h.workerService.SetLeave(employeeID, total, remaining); err != nil {
		h.replyError(message, "Failed to update leave", err)
		return
	}
	h.reply(message, fmt.Sprintf("✅ Leave for %s: %.1f/%.1f days.", employeeID, remaining, total))
}

// FormatViolations renders violation records newest first, timestamps in loc.
func FormatViolations(records []*models.Violation, loc *time.Location) string {
	if len(records) == 0 {
		return "✅ No violations recorded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🦺 Latest %d violation(s):\n", len(records))
	for _, v := range records {
		icon := "🟠"
		if v.IsHigh() {
			icon = "🔴"
		}
		fmt.Fprintf(&b, "\n%s #%d %s\n   Missing: %s\n   %s",
			icon, v.ID, v.WorkerName, v.MissingPPE, v.CreatedAt.In(loc).Format("2006-01-02 15:04"))
		if v.CameraID != "" {
			fmt.Fprintf(&b, " • camera %s", v.CameraID)
		}
		if v.Zone != "" {
			fmt.Fprintf(&b, " • %s", v.Zone)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatViolation renders a single record with its missing equipment one per line.
func FormatViolation(v *models.Violation, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🦺 Violation #%d\n\nWorker: %s\nSeverity: %s\nRecorded: %s\n",
		v.ID, v.WorkerName, v.Severity, v.CreatedAt.In(loc).Format("2006-01-02 15:04:05"))
	if v.CameraID != "" {
		fmt.Fprintf(&b, "Camera: %s\n", v.CameraID)
	}
	if v.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", v.Location)
	}
	if v.Zone != "" {
		fmt.Fprintf(&b, "Zone: %s\n", v.Zone)
	}

	b.WriteString("\nMissing:\n")
	for _, item := range v.MissingItems() {
		fmt.Fprintf(&b, "  • %s\n", item)
	}

	if v.SalaryDeduction > 0 || v.HolidayDeduction > 0 || v.CategoryPenalty > 0 {
		fmt.Fprintf(&b, "\nDeductions: salary %.2f, holidays %.2f, equipment %.2f\n",
			v.SalaryDeduction, v.HolidayDeduction, v.CategoryPenalty)
	}
	if v.AnalysisID != "" {
		fmt.Fprintf(&b, "Analysis: %s\n", v.AnalysisID)
	}
	return b.String()
}

// FormatOffenders lists workers by violation count, highest first.
func FormatOffenders(counts map[string]int, days int) string {
	if len(counts) == 0 {
		return fmt.Sprintf("✅ No violations in the last %d day(s).", days)
	}

	workers := make([]string, 0, len(counts))
	for w := range counts {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool {
		if counts[workers[i]] != counts[workers[j]] {
			return counts[workers[i]] > counts[workers[j]]
		}
		return workers[i] < workers[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "🏷 Violations in the last %d day(s):\n", days)
	for i, w := range workers {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, w, counts[w])
	}
	return b.String()
}
