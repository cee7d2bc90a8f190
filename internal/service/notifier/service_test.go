package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/storage/memory"
)

func seedItem(t *testing.T, store *memory.Store, id string, stock int32) {
	t.Helper()

	now := time.Now().UTC()
	err := memory.NewItemRepository(store).Create(domain.Item{
		ID:         id,
		Name:       "Item " + id,
		PriceMinor: 1000,
		StockQty:   stock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
}

func TestNotifierStockChangedThreshold(t *testing.T) {
	store := memory.NewStore()
	seedItem(t, store, "item-1", 100)
	svc := NewService(
		memory.NewNotificationRepository(store),
		WithOutbox(memory.NewOutboxRepository(store)),
		WithThreshold(5),
	)

	svc.StockChanged("item-1", "Item item-1", 6)
	unread, err := svc.ListUnread()
	require.NoError(t, err)
	assert.Empty(t, unread, "level above threshold must not notify")

	svc.StockChanged("item-1", "Item item-1", 5)
	svc.StockChanged("item-1", "Item item-1", 0)

	unread, err = svc.ListUnread()
	require.NoError(t, err)
	require.Len(t, unread, 2)

	pending, err := memory.NewOutboxRepository(store).PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "shop.stock.low", pending[0].EventType)
	assert.Equal(t, "item-1", pending[0].AggregateID)
}

func TestNotifierDefaultThreshold(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(memory.NewNotificationRepository(store))

	assert.Equal(t, DefaultThreshold, svc.Threshold())

	svc = NewService(memory.NewNotificationRepository(store), WithThreshold(-1))
	assert.Equal(t, DefaultThreshold, svc.Threshold())
}

func TestNotifierMarkRead(t *testing.T) {
	store := memory.NewStore()
	seedItem(t, store, "item-1", 2)
	svc := NewService(memory.NewNotificationRepository(store))

	svc.StockChanged("item-1", "Item item-1", 2)
	svc.StockChanged("item-1", "Item item-1", 1)

	unread, err := svc.ListUnread()
	require.NoError(t, err)
	require.Len(t, unread, 2)

	require.NoError(t, svc.MarkRead(unread[0].ID))
	assert.ErrorIs(t, svc.MarkRead("missing"), domain.ErrNotificationNotFound)

	count, err := svc.MarkAllRead()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	unread, err = svc.ListUnread()
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestCleanupWorkerDeletesOldReadNotifications(t *testing.T) {
	store := memory.NewStore()
	seedItem(t, store, "item-1", 2)
	repo := memory.NewNotificationRepository(store)

	old := time.Now().UTC().Add(-48 * time.Hour)
	_, err := repo.Create(domain.LowStockNotification{ID: "n-old", ItemID: "item-1", StockLevel: 2, CreatedAt: old})
	require.NoError(t, err)
	_, err = repo.Create(domain.LowStockNotification{ID: "n-new", ItemID: "item-1", StockLevel: 1})
	require.NoError(t, err)
	require.NoError(t, repo.MarkRead("n-old"))
	require.NoError(t, repo.MarkRead("n-new"))

	worker := NewCleanupWorker(repo, WithRetention(24*time.Hour), WithCleanupBatchSize(10))

	deleted, err := worker.DeleteRead(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted, "only notifications older than the retention window go away")

	deleted, err = worker.DeleteRead(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestCleanupWorkerRunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	worker := NewCleanupWorker(
		memory.NewNotificationRepository(store),
		WithCleanupInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("cleanup worker did not stop on context cancel")
	}
}
