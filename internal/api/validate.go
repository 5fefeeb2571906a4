package api

import (
	"fmt"
	"net/url"

	"fleetnav/internal/model"
)

func validatePlanRequest(req *model.PlanRequest) error {
	if req.Trials < 0 {
		return fmt.Errorf("trials must be >= 0")
	}
	if req.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if req.BudgetMs < 0 {
		return fmt.Errorf("budgetMs must be >= 0")
	}
	if req.Vehicles < 0 {
		return fmt.Errorf("vehicles must be >= 0")
	}
	if req.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0")
	}
	if req.SpeedMPH < 0 {
		return fmt.Errorf("speedMph must be >= 0")
	}
	return nil
}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must be absolute")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	allowed := map[string]struct{}{
		model.EventTrialDone: {}, model.EventPlanComplete: {}, model.EventPlanFailed: {}, "*": {},
	}
	for _, ev := range req.Events {
		if _, ok := allowed[ev]; !ok {
			return fmt.Errorf("unknown event type: %s", ev)
		}
	}
	return nil
}
