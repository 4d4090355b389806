package models

// PayrollRow is the read-time salary and leave projection for one worker name.
type PayrollRow struct {
	WorkerName        string  `json:"worker_name"`
	EmployeeID        string  `json:"employee_id,omitempty"`
	Role              string  `json:"role"`
	Violations        int     `json:"violations"`
	BaseSalary        float64 `json:"base_salary"`
	TotalDeduction    float64 `json:"total_deduction"`
	FinalSalary       float64 `json:"final_salary"`
	Holidays          float64 `json:"holidays"`
	HolidayDeduction  float64 `json:"holiday_deduction"`
	RemainingHolidays float64 `json:"remaining_holidays"`
	InRoster          bool    `json:"in_roster"`
}
