package service

import (
	"testing"

	accessdomain "github.com/pillarworks/meridian/internal/access/domain"
	notificationdomain "github.com/pillarworks/meridian/internal/notification/domain"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatusRuleOrder(t *testing.T) {
	cases := []struct {
		name       string
		current    organizationdomain.Status
		trigger    accessdomain.Trigger
		wantStatus organizationdomain.Status
		wantReason string
		wantKind   string
	}{
		{
			name:       "canceled subscription deactivates",
			current:    organizationdomain.StatusActive,
			trigger:    accessdomain.Trigger{SubscriptionStatus: subscriptiondomain.StatusCanceled},
			wantStatus: organizationdomain.StatusInactive,
			wantReason: ReasonSubscriptionCanceled,
			wantKind:   notificationdomain.KindAccountInactive,
		},
		{
			name:       "suspended subscription suspends",
			current:    organizationdomain.StatusActive,
			trigger:    accessdomain.Trigger{SubscriptionStatus: subscriptiondomain.StatusSuspended},
			wantStatus: organizationdomain.StatusSuspended,
			wantReason: ReasonPaymentEscalation,
			wantKind:   notificationdomain.KindAccountSuspended,
		},
		{
			name:    "cancellation wins over payment success",
			current: organizationdomain.StatusSuspended,
			trigger: accessdomain.Trigger{
				SubscriptionStatus: subscriptiondomain.StatusCanceled,
				PaymentSucceeded:   true,
			},
			wantStatus: organizationdomain.StatusInactive,
			wantReason: ReasonSubscriptionCanceled,
			wantKind:   notificationdomain.KindAccountInactive,
		},
		{
			name:       "payment recovers suspended org",
			current:    organizationdomain.StatusSuspended,
			trigger:    accessdomain.Trigger{PaymentSucceeded: true, SubscriptionStatus: subscriptiondomain.StatusActive},
			wantStatus: organizationdomain.StatusActive,
			wantReason: ReasonPaymentRecovered,
			wantKind:   notificationdomain.KindPaymentRecovered,
		},
		{
			name:       "payment on active org is no change",
			current:    organizationdomain.StatusActive,
			trigger:    accessdomain.Trigger{PaymentSucceeded: true, SubscriptionStatus: subscriptiondomain.StatusActive},
			wantStatus: "",
		},
		{
			name:       "past_due alone changes nothing",
			current:    organizationdomain.StatusActive,
			trigger:    accessdomain.Trigger{SubscriptionStatus: subscriptiondomain.StatusPastDue},
			wantStatus: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason, kind := deriveStatus(tc.current, tc.trigger)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantReason, reason)
			require.Equal(t, tc.wantKind, kind)
		})
	}
}
