package audit

// Matches reports whether record satisfies every filter in q. A nil query
// matches everything.
func (q *Query) Matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.ID != "" && r.ID != q.ID {
		return false
	}
	if q.EventType != "" && r.EventType != q.EventType {
		return false
	}
	if q.Actor != "" && r.Actor != q.Actor {
		return false
	}
	if q.SubjectID != "" && r.SubjectID != q.SubjectID {
		return false
	}
	if q.DecisionID != "" && r.DecisionID != q.DecisionID {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.MinRiskScore != nil && r.RiskScore < *q.MinRiskScore {
		return false
	}
	if q.MaxRiskScore != nil && r.RiskScore > *q.MaxRiskScore {
		return false
	}
	return true
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Guardrails = append([]string(nil), r.Guardrails...)
	return &out
}
