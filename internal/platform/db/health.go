package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 5 * time.Second

// ConnStats is the snapshot of the connection pool reported by the
// database health endpoint.
type ConnStats struct {
	Total           int32  `json:"total"`
	Idle            int32  `json:"idle"`
	InUse           int32  `json:"in_use"`
	Max             int32  `json:"max"`
	Acquires        int64  `json:"acquires"`
	AcquireDuration string `json:"acquire_duration"`
}

func snapshotPool(pool *pgxpool.Pool) ConnStats {
	st := pool.Stat()
	return ConnStats{
		Total:           st.TotalConns(),
		Idle:            st.IdleConns(),
		InUse:           st.AcquiredConns(),
		Max:             st.MaxConns(),
		Acquires:        st.AcquireCount(),
		AcquireDuration: st.AcquireDuration().String(),
	}
}

// HealthHandler reports database reachability and pool usage. Clinics poll
// this endpoint from their uptime checks, so it answers quickly and never
// blocks on a slow database for more than pingTimeout.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"error":    err.Error(),
				"database": snapshotPool(pool),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": snapshotPool(pool),
		})
	}
}
