package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jeremyjsx/quill/internal/storage"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthDeps lists what /health probes. Storage and RabbitMQURL are optional;
// the database is required.
type HealthDeps struct {
	DB          Pinger
	Storage     storage.Storage
	RabbitMQURL string
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func Health(deps *HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "healthy"

		if err := deps.DB.PingContext(ctx); err != nil {
			checks["db"] = "unhealthy"
			status = "unhealthy"
		} else {
			checks["db"] = "ok"
		}

		// snapshots are an admin extra; losing them only degrades the service
		if deps.Storage != nil {
			if _, err := deps.Storage.Exists(ctx, "__health__"); err != nil {
				checks["s3"] = "unhealthy"
				status = degrade(status)
			} else {
				checks["s3"] = "ok"
			}
		} else {
			checks["s3"] = "skipped"
		}

		if deps.RabbitMQURL != "" {
			conn, err := amqp.DialConfig(deps.RabbitMQURL, amqp.Config{
				Heartbeat: 10 * time.Second,
				Locale:    "en_US",
				Dial:      amqp.DefaultDial(2 * time.Second),
			})
			if err != nil {
				checks["rabbitmq"] = "unhealthy"
				status = degrade(status)
			} else {
				_ = conn.Close()
				checks["rabbitmq"] = "ok"
			}
		} else {
			checks["rabbitmq"] = "skipped"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Checks: checks})
	}
}

func degrade(status string) string {
	if status == "unhealthy" {
		return status
	}
	return "degraded"
}
