package handler

import (
	"context"
	"net/http"
	"time"

	"barpos/internal/infra"
	"barpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health checks DB and Redis connectivity and reports the printer circuit
// state and the receipt DLQ depth. An open printer circuit degrades the
// response but does not fail it: sales keep working without receipts.
func Health(db *gorm.DB, rdb *redis.Client, printerCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			dlq, _ = worker.DLQLength(ctx, rdb, worker.QueueRecibos)
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":          status == http.StatusOK,
			"db":          dbStatus,
			"redis":       redisStatus,
			"printer":     printerCB.State().String(),
			"recibos_dlq": dlq,
		})
	}
}

type listadorIncidentes interface {
	ListarIncidentes(ctx context.Context, n int64) ([]worker.Incidente, error)
}

// Incidentes lists the latest inconsistencies and persistent discrepancies
// queued for operators.
func Incidentes(src listadorIncidentes) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := src.ListarIncidentes(c.Request.Context(), 100)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
