package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

// SubscriptionService is the command surface behind the subscription routes.
type SubscriptionService interface {
	Subscribe(ctx context.Context, userID int64, query, url string) (*domain.Subscription, bool, error)
	List(ctx context.Context, userID int64) ([]domain.Subscription, error)
	Unsubscribe(ctx context.Context, userID int64, id string) (bool, error)
}

// SubscriptionHandler handles subscription commands for a user.
type SubscriptionHandler struct {
	svc SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(svc SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// UserPath identifies the user a request acts for.
type UserPath struct {
	UserID int64 `path:"user_id" doc:"Chat user id; notifications are delivered to it" example:"123456789"`
}

// CreateSubscriptionInput is the request for creating a subscription.
type CreateSubscriptionInput struct {
	UserPath
	Body struct {
		Query string `json:"query"         doc:"Free-text product query"                     example:"LG OLED 55"`
		URL   string `json:"url,omitempty" doc:"Optional link included in drop notifications" example:"https://shop.example/lg-oled-55"`
	}
}

// SubscriptionOutput returns a single subscription. Status is 201 when the
// subscription was created and 200 when it already existed.
type SubscriptionOutput struct {
	Status int
	Body   *domain.Subscription
}

// Create subscribes the user to a query.
func (h *SubscriptionHandler) Create(
	ctx context.Context,
	input *CreateSubscriptionInput,
) (*SubscriptionOutput, error) {
	sub, created, err := h.svc.Subscribe(ctx, input.UserID, input.Body.Query, input.Body.URL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError("creating subscription failed: " + err.Error())
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return &SubscriptionOutput{Status: status, Body: sub}, nil
}

// ListSubscriptionsOutput is the response body for listing subscriptions.
type ListSubscriptionsOutput struct {
	Body []domain.Subscription
}

// List returns the user's subscriptions in creation order.
func (h *SubscriptionHandler) List(
	ctx context.Context,
	input *UserPath,
) (*ListSubscriptionsOutput, error) {
	subs, err := h.svc.List(ctx, input.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing subscriptions failed: " + err.Error())
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}

	return &ListSubscriptionsOutput{Body: subs}, nil
}

// DeleteSubscriptionInput is the request for removing a subscription.
type DeleteSubscriptionInput struct {
	UserPath
	ID string `path:"id" doc:"Subscription id"`
}

// DeleteSubscriptionOutput reports whether a subscription was removed.
type DeleteSubscriptionOutput struct {
	Body struct {
		Removed bool `json:"removed" doc:"False when the id is unknown or belongs to another user"`
	}
}

// Delete removes a subscription. Unknown ids are not an error.
func (h *SubscriptionHandler) Delete(
	ctx context.Context,
	input *DeleteSubscriptionInput,
) (*DeleteSubscriptionOutput, error) {
	removed, err := h.svc.Unsubscribe(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("removing subscription failed: " + err.Error())
	}

	resp := &DeleteSubscriptionOutput{}
	resp.Body.Removed = removed
	return resp, nil
}

// RegisterSubscriptionRoutes registers subscription endpoints with the Huma API.
func RegisterSubscriptionRoutes(api huma.API, h *SubscriptionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "create-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{user_id}/subscriptions",
		Summary:     "Subscribe to a query",
		Description: "Creates a subscription whose reference price is the cheapest current listing. " +
			"Subscribing again to the same query updates its URL and returns the existing subscription.",
		Tags:          []string{"subscriptions"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "list-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{user_id}/subscriptions",
		Summary:     "List subscriptions",
		Description: "Returns the user's subscriptions in creation order.",
		Tags:        []string{"subscriptions"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "delete-subscription",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{user_id}/subscriptions/{id}",
		Summary:     "Unsubscribe",
		Tags:        []string{"subscriptions"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Delete)
}
