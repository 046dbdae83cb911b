package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFeed_KeepsNewest(t *testing.T) {
	f := NewFeed(3)
	for i := 1; i <= 5; i++ {
		f.Notify(context.Background(), Notification{ID: fmt.Sprint(i)})
	}

	got := f.Recent()
	require.Len(t, got, 3)
	require.Equal(t, "3", got[0].ID)
	require.Equal(t, "5", got[2].ID)
}

func TestNotifiers_FanOut(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	feed := NewFeed(0)

	ns := Notifiers{LogNotifier{Log: zap.New(core)}, feed}
	ns.Notify(context.Background(), Notification{ID: "n1", Severity: SeverityError, Message: msgRemoveFailed, Op: OpRemove, ProductID: 4})

	require.Len(t, feed.Recent(), 1)
	entries := logs.FilterMessage("cart notification").All()
	require.Len(t, entries, 1)
	require.Equal(t, msgRemoveFailed, entries[0].ContextMap()["message"])
	require.Equal(t, int64(4), entries[0].ContextMap()["product_id"])
}
