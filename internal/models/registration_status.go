package models

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending         RegistrationStatus = "pending"
	StatusReportPaid      RegistrationStatus = "report_paid"
	StatusConfirmPaid     RegistrationStatus = "confirm_paid"
	StatusPaymentRejected RegistrationStatus = "payment_rejected"
	StatusDonation        RegistrationStatus = "donation"
	StatusCancelPending   RegistrationStatus = "cancel_pending"
	StatusCancelAccepted  RegistrationStatus = "cancel_accepted"
	StatusCancelRejected  RegistrationStatus = "cancel_rejected"
	StatusCancelProcessed RegistrationStatus = "cancel_processed"
	StatusCancelled       RegistrationStatus = "cancelled"
	StatusConfirmed       RegistrationStatus = "confirmed"
	StatusCheckedIn       RegistrationStatus = "checked_in"
	StatusCheckedOut      RegistrationStatus = "checked_out"
)

// StatusInfo is the single source for how a status is displayed and treated.
type StatusInfo struct {
	Status   RegistrationStatus `json:"status"`
	Label    string             `json:"label"`
	Color    string             `json:"color"`
	Editable bool               `json:"editable"`
	Paid     bool               `json:"paid"`
	Revenue  bool               `json:"counts_as_revenue"`
	Terminal bool               `json:"terminal"`
	// CheckInAllowed marks statuses from which registrants may be checked in.
	CheckInAllowed bool `json:"check_in_allowed"`
}

var statusCatalog = []StatusInfo{
	{Status: StatusPending, Label: "Chờ thanh toán", Color: "yellow", Editable: true},
	{Status: StatusReportPaid, Label: "Đã báo thanh toán", Color: "blue"},
	{Status: StatusPaymentRejected, Label: "Thanh toán bị từ chối", Color: "red", Editable: true},
	{Status: StatusConfirmPaid, Label: "Đã xác nhận thanh toán", Color: "green", Paid: true, Revenue: true, CheckInAllowed: true},
	{Status: StatusConfirmed, Label: "Đã xác nhận", Color: "emerald", Paid: true, Revenue: true, CheckInAllowed: true},
	{Status: StatusDonation, Label: "Chuyển thành quyên góp", Color: "purple", Paid: true, Revenue: true, Terminal: true},
	{Status: StatusCancelPending, Label: "Chờ duyệt hủy", Color: "orange", Paid: true},
	{Status: StatusCancelAccepted, Label: "Đã chấp nhận hủy", Color: "amber", Paid: true},
	{Status: StatusCancelRejected, Label: "Từ chối hủy", Color: "slate", Paid: true, Revenue: true, CheckInAllowed: true},
	{Status: StatusCancelProcessed, Label: "Đã hoàn tiền", Color: "gray", Terminal: true},
	{Status: StatusCancelled, Label: "Đã hủy", Color: "gray", Terminal: true},
	{Status: StatusCheckedIn, Label: "Đã check-in", Color: "teal", Paid: true, Revenue: true, CheckInAllowed: true},
	{Status: StatusCheckedOut, Label: "Đã check-out", Color: "indigo", Paid: true, Revenue: true, Terminal: true},
}

var statusIndex = func() map[RegistrationStatus]StatusInfo {
	idx := make(map[RegistrationStatus]StatusInfo, len(statusCatalog))
	for _, info := range statusCatalog {
		idx[info.Status] = info
	}
	return idx
}()

// StatusCatalog returns every status in display order.
func StatusCatalog() []StatusInfo {
	out := make([]StatusInfo, len(statusCatalog))
	copy(out, statusCatalog)
	return out
}

// Info returns catalog metadata. Unknown statuses yield a zero value with the raw label.
func (s RegistrationStatus) Info() StatusInfo {
	if info, ok := statusIndex[s]; ok {
		return info
	}
	return StatusInfo{Status: s, Label: string(s), Color: "gray"}
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	_, ok := statusIndex[s]
	return ok
}

// Label returns the display label.
func (s RegistrationStatus) Label() string { return s.Info().Label }

// Editable reports whether registrants may still be added, removed or edited.
func (s RegistrationStatus) Editable() bool { return s.Info().Editable }

// Terminal reports whether no further transitions are possible.
func (s RegistrationStatus) Terminal() bool { return s.Info().Terminal }

// CountsAsRevenue reports whether the amount is included in collected totals.
func (s RegistrationStatus) CountsAsRevenue() bool { return s.Info().Revenue }

// RevenueStatuses lists statuses whose amounts count as collected revenue.
func RevenueStatuses() []RegistrationStatus {
	result := make([]RegistrationStatus, 0)
	for _, info := range statusCatalog {
		if info.Revenue {
			result = append(result, info.Status)
		}
	}
	return result
}

// CheckInStatuses lists statuses whose registrants may attend and receive a badge.
func CheckInStatuses() []RegistrationStatus {
	result := make([]RegistrationStatus, 0)
	for _, info := range statusCatalog {
		if info.CheckInAllowed {
			result = append(result, info.Status)
		}
	}
	return result
}

// RegistrationAction names a user or staff action that moves a registration.
type RegistrationAction string

const (
	ActionReportPayment  RegistrationAction = "report_payment"
	ActionConfirmPayment RegistrationAction = "confirm_payment"
	ActionRejectPayment  RegistrationAction = "reject_payment"
	ActionFinalize       RegistrationAction = "finalize"
	ActionDonate         RegistrationAction = "donate"
	ActionRequestCancel  RegistrationAction = "request_cancel"
	ActionAcceptCancel   RegistrationAction = "accept_cancel"
	ActionRejectCancel   RegistrationAction = "reject_cancel"
	ActionProcessRefund  RegistrationAction = "process_refund"
	ActionCancel         RegistrationAction = "cancel"
)

// TransitionRule allows an action to move a registration from one of From to To.
type TransitionRule struct {
	Action RegistrationAction   `json:"action"`
	From   []RegistrationStatus `json:"from"`
	To     RegistrationStatus   `json:"to"`
	Roles  []UserRole           `json:"roles"`
	// Owner allows the registering user to perform the action.
	Owner bool `json:"owner"`
}

var (
	paymentReviewers = []UserRole{RoleSuperAdmin, RoleCashier}
	finalizers       = []UserRole{RoleSuperAdmin, RoleCashier, RoleRegistrationManager}
	// CheckInRoles may record arrivals and departures.
	CheckInRoles = []UserRole{RoleSuperAdmin, RoleEventOrganizer, RoleRegistrationManager}
)

var transitionRules = []TransitionRule{
	{Action: ActionReportPayment, From: []RegistrationStatus{StatusPending, StatusPaymentRejected}, To: StatusReportPaid, Owner: true},
	{Action: ActionConfirmPayment, From: []RegistrationStatus{StatusReportPaid}, To: StatusConfirmPaid, Roles: paymentReviewers},
	{Action: ActionRejectPayment, From: []RegistrationStatus{StatusReportPaid}, To: StatusPaymentRejected, Roles: paymentReviewers},
	{Action: ActionFinalize, From: []RegistrationStatus{StatusConfirmPaid}, To: StatusConfirmed, Roles: finalizers},
	{Action: ActionDonate, From: []RegistrationStatus{StatusConfirmPaid, StatusConfirmed, StatusCancelRejected}, To: StatusDonation, Roles: paymentReviewers, Owner: true},
	{Action: ActionRequestCancel, From: []RegistrationStatus{StatusConfirmPaid, StatusConfirmed}, To: StatusCancelPending, Owner: true},
	{Action: ActionAcceptCancel, From: []RegistrationStatus{StatusCancelPending}, To: StatusCancelAccepted, Roles: paymentReviewers},
	{Action: ActionRejectCancel, From: []RegistrationStatus{StatusCancelPending}, To: StatusCancelRejected, Roles: paymentReviewers},
	{Action: ActionProcessRefund, From: []RegistrationStatus{StatusCancelAccepted}, To: StatusCancelProcessed, Roles: paymentReviewers},
	{Action: ActionCancel, From: []RegistrationStatus{StatusPending, StatusPaymentRejected}, To: StatusCancelled, Roles: paymentReviewers, Owner: true},
	{Action: ActionCancel, From: []RegistrationStatus{StatusCancelAccepted}, To: StatusCancelled, Roles: paymentReviewers},
}

// TransitionRules returns the full action table.
func TransitionRules() []TransitionRule {
	out := make([]TransitionRule, len(transitionRules))
	copy(out, transitionRules)
	return out
}

// FindTransition returns the rule that applies action to a registration in status from.
func FindTransition(action RegistrationAction, from RegistrationStatus) (TransitionRule, bool) {
	for _, rule := range transitionRules {
		if rule.Action != action {
			continue
		}
		for _, s := range rule.From {
			if s == from {
				return rule, true
			}
		}
	}
	return TransitionRule{}, false
}

// Permits reports whether the actor may run the rule.
func (r TransitionRule) Permits(role UserRole, isOwner bool) bool {
	if r.Owner && isOwner {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// CanTransition reports whether any rule or the check-in projection moves from to to.
func CanTransition(from, to RegistrationStatus) bool {
	for _, rule := range transitionRules {
		if rule.To != to {
			continue
		}
		for _, s := range rule.From {
			if s == from {
				return true
			}
		}
	}
	switch to {
	case StatusCheckedIn:
		return from.Info().CheckInAllowed && from != StatusCheckedIn
	case StatusCheckedOut:
		return from == StatusCheckedIn
	}
	return from == StatusCheckedIn && to.Info().CheckInAllowed && to != StatusCheckedIn
}

// AttendanceCounts summarises registrant attendance for one registration.
type AttendanceCounts struct {
	Total      int `db:"total"`
	CheckedIn  int `db:"checked_in"`
	CheckedOut int `db:"checked_out"`
}

// CheckInProjection derives the registration status from registrant attendance.
// base is the status held before anyone arrived; it is kept while nobody is on site.
// checked_out requires every registrant to have checked in and out.
func CheckInProjection(counts AttendanceCounts, base RegistrationStatus) RegistrationStatus {
	switch {
	case counts.Total > 0 && counts.CheckedOut >= counts.Total:
		return StatusCheckedOut
	case counts.CheckedIn > counts.CheckedOut:
		return StatusCheckedIn
	default:
		return base
	}
}

// ProjectAttendance applies CheckInProjection to a registration currently in status current.
// before is the stored pre-check-in status (empty when none). It returns the projected
// status and the pre-check-in status to store alongside it, empty once that status is restored.
func ProjectAttendance(counts AttendanceCounts, current, before RegistrationStatus) (status, restore RegistrationStatus) {
	base := current
	if current == StatusCheckedIn || current == StatusCheckedOut {
		base = before
	}
	if !base.Info().CheckInAllowed || base == StatusCheckedIn {
		base = StatusConfirmed
	}
	status = CheckInProjection(counts, base)
	if status == StatusCheckedIn || status == StatusCheckedOut {
		return status, base
	}
	return status, ""
}
