package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

const autoConfirmBatch = 100

// AutoConfirmWorker периодически подтверждает залежавшиеся заказы:
// new -> confirmed после настроенной задержки, имитируя принятие продавцом.
type AutoConfirmWorker struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	after     time.Duration
	interval  time.Duration
}

func NewAutoConfirmWorker(log *slog.Logger, orderRepo storage.OrderStorage, after, interval time.Duration) *AutoConfirmWorker {
	return &AutoConfirmWorker{
		log:       log,
		orderRepo: orderRepo,
		after:     after,
		interval:  interval,
	}
}

// Run крутит тикер до отмены контекста. Запускается горутиной из main.
func (w *AutoConfirmWorker) Run(ctx context.Context) {
	const op = "service.AutoConfirmWorker.Run"
	logger := w.log.With(slog.String("op", op))
	logger.Info("auto-confirmation worker started",
		slog.Duration("after", w.after),
		slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("auto-confirmation worker stopped")
			return
		case <-ticker.C:
			w.confirmStale(ctx, logger)
		}
	}
}

func (w *AutoConfirmWorker) confirmStale(ctx context.Context, logger *slog.Logger) {
	ids, err := w.orderRepo.ListStaleNew(ctx, time.Now().Add(-w.after), autoConfirmBatch)
	if err != nil {
		logger.Error("failed to list stale orders", slog.Any("error", err))
		return
	}

	for _, id := range ids {
		err := w.orderRepo.UpdateStatus(ctx, id, models.StatusNew, models.StatusConfirmed)
		if err != nil {
			// заказ успел сменить статус (отмена, заявка) — просто пропускаем
			if errors.Is(err, storage.ErrOrderStatusChanged) {
				continue
			}
			logger.Error("failed to confirm order", slog.Int64("orderID", id), slog.Any("error", err))
			continue
		}
		logger.Info("order auto-confirmed", slog.Int64("orderID", id))
	}
}
