package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"workshop/internal/gateway"
	"workshop/internal/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedStatus_CachesOnlyPaid(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	cached := gateway.NewCachedStatus(gw, time.Minute)
	ctx := context.Background()

	gw.EXPECT().CheckStatus(gomock.Any(), "unpaid-bill").
		Return(gateway.BillStatus{Found: true, Status: gateway.StatusUnpaid}, nil).Times(2)
	gw.EXPECT().CheckStatus(gomock.Any(), "paid-bill").
		Return(gateway.BillStatus{Found: true, Paid: true, Status: gateway.StatusPaid}, nil).Times(1)

	for i := 0; i < 2; i++ {
		st, err := cached.CheckStatus(ctx, "unpaid-bill")
		require.NoError(t, err)
		require.False(t, st.Paid)

		st, err = cached.CheckStatus(ctx, "paid-bill")
		require.NoError(t, err)
		require.True(t, st.Paid)
	}
}

func TestCachedStatus_PassesErrorsThrough(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	cached := gateway.NewCachedStatus(gw, time.Minute)

	boom := errors.New("boom")
	gw.EXPECT().CheckStatus(gomock.Any(), "bill").Return(gateway.BillStatus{}, boom).Times(2)

	_, err := cached.CheckStatus(context.Background(), "bill")
	require.ErrorIs(t, err, boom)
	_, err = cached.CheckStatus(context.Background(), "bill")
	require.ErrorIs(t, err, boom)
}
