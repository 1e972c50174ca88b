// Package api exposes the governance service over HTTP+JSON.
//
// Routes (all under /api):
//
//	GET    /guardrails?category=        list guardrails
//	POST   /guardrails                  create (owner)
//	GET    /guardrails/categories       category enumeration
//	GET    /guardrails/severities       severity enumeration
//	GET    /guardrails/{id}             get one
//	PATCH  /guardrails/{id}             partial update (owner)
//	DELETE /guardrails/{id}             delete (owner)
//	POST   /decisions                   log a decision
//	GET    /decisions?userId=&status=&from=&to=&limit=
//	GET    /decisions/{id}
//	GET    /interventions?status=
//	GET    /interventions/{id}
//	POST   /interventions/{id}/resolve  resolve (owner)
//	GET    /policies
//	PATCH  /policies/{id}               partial update (owner)
//	GET    /stats
//	GET    /audit                       query the audit trail
//	GET    /audit/export?format=json|csv
//
// Every route requires an authenticated caller; mutating guardrail,
// intervention and policy routes also require an owner. A decision is
// evaluated with the caller's attributes; only owners may log one whose
// userId names someone else. Errors use the
// middleware.ErrorResponse envelope: 400 for validation failures, 401 and
// 403 for authentication and authorization, 404 for unknown ids and 409 for
// conflicts such as reviewing a settled decision.
package api
