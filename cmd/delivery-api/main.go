package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/bambooreports/securedelivery/internal/api"
	"github.com/bambooreports/securedelivery/internal/gcp"
	"github.com/bambooreports/securedelivery/internal/services"
)

var (
	routerInstance http.Handler
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleDelivery", handleDelivery)
}

// main is required by the Go Functions Framework.
func main() {}

// handleDelivery is the HTTP entry point. All routing happens inside the
// chi router built on first use.
func handleDelivery(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		ctx := context.Background()

		access, err := services.NewDocumentAccess(ctx)
		if err != nil {
			initErr = err
			return
		}
		history, err := services.NewDownloadHistory(ctx, access)
		if err != nil {
			initErr = err
			return
		}

		origins := strings.Split(gcp.GetEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ",")
		routerInstance = api.NewRouter(access, history, origins)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	routerInstance.ServeHTTP(w, r)
}
