package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/checkout"
	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/oracle"
	"github.com/arckit11/v-novaa/internal/assistant/prompts"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// UserInfo merges spoken personal details into the checkout form.
type UserInfo struct {
	Deps
}

func (h *UserInfo) Handle(ctx context.Context, transcript string, _ model.CommandContext) (bool, error) {
	if h.UserInfo == nil {
		return false, nil
	}

	var res struct {
		IsUserInfoUpdate any `json:"isUserInfoUpdate"`
		Name             any `json:"name"`
		Email            any `json:"email"`
		Address          any `json:"address"`
		Phone            any `json:"phone"`
	}
	prompt, err := prompts.Transcript(ctx, prompts.UserInfo, transcript)
	found, err := h.askJSON(ctx, prompt, err, &res)
	if err != nil {
		return false, fmt.Errorf("user info: %w", err)
	}
	if !found || !strings.EqualFold(oracle.Scalar(res.IsUserInfoUpdate), "true") {
		return false, nil
	}

	partial := make(map[string]string)
	if v := oracle.Scalar(res.Name); v != "" {
		partial[model.KeyName] = v
	}
	if v := oracle.Scalar(res.Email); v != "" {
		partial[model.KeyEmail] = checkout.SpokenEmail(v)
	}
	if v := oracle.Scalar(res.Address); v != "" {
		partial[model.KeyAddress] = v
	}
	if v := oracle.Scalar(res.Phone); v != "" {
		partial[model.KeyPhone] = v
	}
	if len(partial) == 0 {
		return false, nil
	}

	if err := h.UserInfo.Update(ctx, partial); err != nil {
		return false, fmt.Errorf("user info: %w", err)
	}

	fields := make([]string, 0, len(partial))
	for _, k := range model.UserInfoKeys {
		if _, ok := partial[k]; ok {
			fields = append(fields, k)
		}
	}
	if h.Notifier != nil {
		h.Notifier.FieldUpdated(ctx, model.FieldUpdate{
			Step:          string(model.IntentUserInfo),
			Message:       "Updated your " + joinWords(fields),
			UpdatedFields: fields,
		})
	}
	logx.Info().Strs("fields", fields).Msg("User info updated")
	h.speak(ctx, "I've updated your "+joinWords(fields)+".")
	return true, nil
}

// OrderCompletion moves the shopper to payment or submits the order when already there.
type OrderCompletion struct {
	Deps
}

// OrderKeyword reports whether the utterance explicitly asks to pay or order.
func OrderKeyword(transcript string) bool {
	return hasAny(strings.ToLower(transcript), "checkout", "check out", "place order", "place my order", "pay", "buy")
}

func (h *OrderCompletion) Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error) {
	if !OrderKeyword(transcript) {
		if h.Oracle == nil {
			return false, nil
		}
		prompt, err := prompts.Transcript(ctx, prompts.OrderCompletion, transcript)
		if err != nil {
			return false, fmt.Errorf("order completion: %w", err)
		}
		reply, err := h.Oracle.Complete(ctx, prompt)
		if err != nil {
			return false, fmt.Errorf("order completion: %w", err)
		}
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(reply)), "yes") {
			return false, nil
		}
	}

	if model.IsPaymentRoute(cc.Route) {
		if h.Order == nil {
			return false, nil
		}
		logx.Info().Msg("Submitting order")
		h.Order()
		h.speak(ctx, "Placing your order now.")
		return true, nil
	}

	logx.Info().Msg("Proceeding to payment")
	h.navigate(model.RoutePayment)
	return true, nil
}
