// Package web provides the HTTP surface of the journey engine: the run
// trigger endpoint and the journey authoring API.
package web

import (
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
)

// ErrorResponse is the body of a non-2xx response from the run endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the aggregate outcome returned by the run endpoint.
type RunResponse struct {
	OK        bool      `json:"ok"`
	Enrolled  int       `json:"enrolled"`
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	Swept     int       `json:"swept"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateJourneyRequest is the request body for creating a journey.
type CreateJourneyRequest struct {
	TenantID      string               `json:"tenant_id"       validate:"required"`
	Name          string               `json:"name"            validate:"required,min=3"`
	Status        models.JourneyStatus `json:"status"          validate:"omitempty,oneof=draft active paused archived"`
	TriggerType   models.TriggerType   `json:"trigger_type"    validate:"required,oneof=event segment_entry date_based"`
	TriggerConfig models.TriggerConfig `json:"trigger_config"`
	Content       models.GraphContent  `json:"content"`
	ReEntryPolicy models.ReEntryPolicy `json:"re_entry_policy"`
	StartDate     *time.Time           `json:"start_date,omitempty"`
	EndDate       *time.Time           `json:"end_date,omitempty"`
}

// Journey converts the request into the domain model, applying defaults.
func (r CreateJourneyRequest) Journey() *models.Journey {
	status := r.Status
	if status == "" {
		status = models.JourneyStatusDraft
	}

	policy := r.ReEntryPolicy
	if policy == "" {
		policy = models.ReEntryNever
	}

	return &models.Journey{
		TenantID:      r.TenantID,
		Name:          r.Name,
		Status:        status,
		TriggerType:   r.TriggerType,
		TriggerConfig: r.TriggerConfig,
		Content:       r.Content,
		ReEntryPolicy: policy,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
	}
}
