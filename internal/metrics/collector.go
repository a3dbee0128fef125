package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	sprintStatuses = []string{"PLANNING", "ACTIVE", "COMPLETED"}
	taskStatuses   = []string{"TODO", "IN_PROGRESS", "DONE"}
)

// BusinessMetricsCollector refreshes the workflow gauges periodically
type BusinessMetricsCollector struct {
	db      *gorm.DB
	metrics *Metrics
	logger  *zap.Logger
	ticker  *time.Ticker
	done    chan bool
}

// NewBusinessMetricsCollector creates a new collector
func NewBusinessMetricsCollector(db *gorm.DB, metrics *Metrics, logger *zap.Logger) *BusinessMetricsCollector {
	return &BusinessMetricsCollector{
		db:      db,
		metrics: metrics,
		logger:  logger,
		ticker:  time.NewTicker(60 * time.Second),
		done:    make(chan bool),
	}
}

// Start begins collecting metrics
func (c *BusinessMetricsCollector) Start() {
	go func() {
		// 즉시 한 번 수집
		c.collect()

		for {
			select {
			case <-c.ticker.C:
				c.collect()
			case <-c.done:
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *BusinessMetricsCollector) Stop() {
	c.ticker.Stop()
	c.done <- true
}

// collect gathers workflow gauges
func (c *BusinessMetricsCollector) collect() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in business metrics collection",
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if counts, err := c.countByStatus(ctx, "sprints"); err != nil {
		c.logger.Error("Failed to count sprints", zap.Error(err))
	} else {
		for _, status := range sprintStatuses {
			c.metrics.SetSprintsTotal(status, counts[status])
		}
	}

	if counts, err := c.countByStatus(ctx, "tasks"); err != nil {
		c.logger.Error("Failed to count tasks", zap.Error(err))
	} else {
		for _, status := range taskStatuses {
			c.metrics.SetTasksTotal(status, counts[status])
		}
	}

	var boardCount int64
	if err := c.db.WithContext(ctx).Table("boards").Count(&boardCount).Error; err != nil {
		c.logger.Error("Failed to count boards", zap.Error(err))
	} else {
		c.metrics.SetBoardsTotal(boardCount)
	}
}

func (c *BusinessMetricsCollector) countByStatus(ctx context.Context, table string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := c.db.WithContext(ctx).
		Table(table).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
