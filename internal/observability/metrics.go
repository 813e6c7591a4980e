package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MCacheRequests           MetricKey = "cache_requests_total"
	MPaymentOutcomes         MetricKey = "payment_outcomes_total"
	MPaymentInconsistencies  MetricKey = "payment_inconsistencies_total"
	MEventsHandled           MetricKey = "events_handled_total"
	MEventsRelayed           MetricKey = "events_relayed_total"
)
