package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/database"
)

func TestHandleHealth_Success(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		// Setup
		gin.SetMode(gin.TestMode)
		w, c := createTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

		db := database.NewDatabaseFromPool(tdb.Pool)
		handler := NewHealthHandler(db)

		// Execute
		handler.HandleHealth(c)

		// Assert
		assertStatusCode(t, w, http.StatusOK)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if response["database"] != "connected" {
			t.Errorf("expected database 'connected', got %v", response["database"])
		}

		if _, ok := response["db_latency"]; !ok {
			t.Error("expected db_latency field")
		}

		if _, ok := response["uptime"]; !ok {
			t.Error("expected uptime field")
		}
	})
}

func TestHandleHealth_DBError(t *testing.T) {
	// Setup - no live DB connection
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	db := database.NewDatabaseFromPool(nil) // nil pool = DB error
	handler := NewHealthHandler(db)

	// Execute
	handler.HandleHealth(c)

	// Assert
	assertStatusCode(t, w, http.StatusServiceUnavailable)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["status"] != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %v", response["status"])
	}
}

func TestHandleReady_DBError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	handler := NewHealthHandler(database.NewDatabaseFromPool(nil))
	handler.HandleReady(c)

	assertStatusCode(t, w, http.StatusServiceUnavailable)
}

func TestHandleInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/info", nil)

	handler := NewHealthHandler(nil)
	handler.HandleInfo(c)

	assertStatusCode(t, w, http.StatusOK)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["service"] != "accounts-selfhosted" {
		t.Errorf("expected service 'accounts-selfhosted', got %v", response["service"])
	}
}
