package service

import (
	"bytes"
	"fmt"
	"math"
	"ppe-monitor/internal/config"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/repository"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PayrollPolicy holds the rates and tables the deduction calculator needs.
type PayrollPolicy struct {
	SalaryTable         map[string]float64
	DefaultSalary       float64
	PerViolation        float64
	HolidayPerViolation float64
	InitialHolidays     float64
}

type Deduction struct {
	BaseSalary        float64
	TotalDeduction    float64
	FinalSalary       float64
	HolidayDeduction  float64
	RemainingHolidays float64
}

// BaseSalary looks the role up in the salary table, falling back to the default salary.
func (p PayrollPolicy) BaseSalary(role string) float64 {
	if amount, ok := p.SalaryTable[role]; ok && amount > 0 {
		return amount
	}
	return p.DefaultSalary
}

// Calculate projects salary and leave for a worker with the given violation count,
// starting from the policy's initial holiday balance.
func (p PayrollPolicy) Calculate(role string, violations int) Deduction {
	return p.CalculateFor(role, violations, p.InitialHolidays)
}

// CalculateFor is Calculate with an explicit starting holiday balance.
// The final salary is not floored and goes negative when deductions exceed the base.
func (p PayrollPolicy) CalculateFor(role string, violations int, initialHolidays float64) Deduction {
	if violations < 0 {
		violations = 0
	}
	base := p.BaseSalary(role)
	total := float64(violations) * p.PerViolation
	holidays := float64(violations) * p.HolidayPerViolation

	return Deduction{
		BaseSalary:        base,
		TotalDeduction:    total,
		FinalSalary:       base - total,
		HolidayDeduction:  holidays,
		RemainingHolidays: math.Max(0, initialHolidays-holidays),
	}
}

type PayrollService struct {
	violations repository.ViolationRepository
	workers    repository.WorkerRepository
	settings   *SettingsService
	cfg        config.PayrollConfig
	logger     *logrus.Logger
}

func NewPayrollService(
	violations repository.ViolationRepository,
	workers repository.WorkerRepository,
	settings *SettingsService,
	cfg config.PayrollConfig,
) *PayrollService {
	return &PayrollService{
		violations: violations,
		workers:    workers,
		settings:   settings,
		cfg:        cfg,
		logger:     logging.New(),
	}
}

// Policy combines the configured salary table with the persisted rates.
func (s *PayrollService) Policy() PayrollPolicy {
	return PayrollPolicy{
		SalaryTable:         s.cfg.SalaryTable,
		DefaultSalary:       s.cfg.DefaultSalary,
		PerViolation:        s.settings.ViolationPenalty(),
		HolidayPerViolation: s.settings.HolidayRate(),
		InitialHolidays:     s.cfg.InitialHolidays,
	}
}

// Report builds one row per roster worker plus one per free-text name that only
// appears in violation records. Roster rows come first in employee id order.
func (s *PayrollService) Report() ([]models.PayrollRow, error) {
	counts, err := s.violations.CountByWorker()
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}
	workers, err := s.workers.GetAll()
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	policy := s.Policy()
	rows := make([]models.PayrollRow, 0, len(workers)+len(counts))
	seen := make(map[string]bool, len(workers))

	for _, w := range workers {
		seen[w.Name] = true
		n := counts[w.Name]
		d := policy.CalculateFor(w.Role, n, w.TotalHolidays)
		rows = append(rows, payrollRow(w.Name, w.EmployeeID, w.Role, n, w.TotalHolidays, d, true))
	}

	var extra []string
	for name := range counts {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		n := counts[name]
		d := policy.Calculate("", n)
		rows = append(rows, payrollRow(name, "", "", n, policy.InitialHolidays, d, false))
	}

	s.logger.WithFields(logrus.Fields{
		"roster":     len(workers),
		"unassigned": len(extra),
	}).Debug("Payroll report built")

	return rows, nil
}

func payrollRow(name, employeeID, role string, violations int, holidays float64, d Deduction, inRoster bool) models.PayrollRow {
	return models.PayrollRow{
		WorkerName:        name,
		EmployeeID:        employeeID,
		Role:              role,
		Violations:        violations,
		BaseSalary:        d.BaseSalary,
		TotalDeduction:    d.TotalDeduction,
		FinalSalary:       d.FinalSalary,
		Holidays:          holidays,
		HolidayDeduction:  d.HolidayDeduction,
		RemainingHolidays: d.RemainingHolidays,
		InRoster:          inRoster,
	}
}

// FormatPayroll renders rows as an aligned table with grouped rupee amounts.
func FormatPayroll(rows []models.PayrollRow) string {
	p := message.NewPrinter(language.English)

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tROLE\tVIOLATIONS\tBASE\tDEDUCTION\tFINAL\tLEAVE")

	var totalViolations int
	var totalDeduction float64
	for _, r := range rows {
		role := r.Role
		if role == "" {
			role = "-"
		}
		name := r.WorkerName
		if r.EmployeeID != "" {
			name = r.EmployeeID + " " + name
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			name,
			role,
			r.Violations,
			p.Sprintf("₹%.2f", r.BaseSalary),
			p.Sprintf("₹%.2f", r.TotalDeduction),
			p.Sprintf("₹%.2f", r.FinalSalary),
			fmt.Sprintf("%.1f/%.1f", r.RemainingHolidays, r.Holidays),
		)
		totalViolations += r.Violations
		totalDeduction += r.TotalDeduction
	}
	_ = tw.Flush()

	p.Fprintf(&buf, "\nWorkers: %d  Violations: %d  Total deductions: ₹%.2f\n", len(rows), totalViolations, totalDeduction)
	return buf.String()
}
